// Package www serves the companion API: fleet listings for dashboards and
// admin operations like registration links, renames, and dispatch notes.
package www

import (
	"net/http"

	"fleetbot/engine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	engine   *engine.Engine
	sessions *sessionStore
}

// NewRouter creates the chi router for the companion API.
func NewRouter(eng *engine.Engine) http.Handler {
	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", h.handleHealthz)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Route("/api", func(r chi.Router) {
		// Read-only fleet views
		r.Get("/vehicles", h.apiListVehicles)
		r.Get("/drivers", h.apiListDrivers)
		r.Get("/shifts", h.apiListShifts)
		r.Get("/shifts/active", h.apiListActiveShifts)

		// Admin operations
		r.Group(func(r chi.Router) {
			r.Use(h.adminMiddleware)

			r.Get("/drivers/{id}/link", h.apiDriverLink)
			r.Get("/vehicles/{id}/link", h.apiVehicleLink)
			r.Put("/vehicles/{id}/name", h.apiRenameVehicle)
			r.Post("/vehicles/{id}/dispatch", h.apiDispatchVehicle)
		})
	})

	return r
}

func (h *Handlers) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := h.sessions.getUser(r)
		if !ok || username == "" {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "node": h.engine.AppConfig().NodeID})
}
