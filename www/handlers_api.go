package www

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fleetbot/store"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// --- Auth ---

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := h.engine.AppConfig().Web
	if cfg.AdminPasswordHash == "" || req.Username != cfg.AdminUser || !checkPassword(req.Password, cfg.AdminPasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.sessions.setUser(w, r, req.Username)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.clear(w, r)
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Fleet views ---

type vehicleView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Linked     bool       `json:"linked"`
	LastLat    *float64   `json:"last_lat,omitempty"`
	LastLon    *float64   `json:"last_lon,omitempty"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	DriverID   string     `json:"driver_id,omitempty"` // driver currently on shift
}

func (h *Handlers) apiListVehicles(w http.ResponseWriter, _ *http.Request) {
	db := h.engine.DB()

	onShift := map[string]string{}
	for _, s := range db.Shifts.Active() {
		onShift[s.VehicleID] = s.DriverID
	}

	views := []vehicleView{}
	for _, v := range db.Vehicles.List() {
		views = append(views, vehicleView{
			ID:         v.ID,
			Name:       v.Name,
			Linked:     v.ChatID != nil,
			LastLat:    v.LastLat,
			LastLon:    v.LastLon,
			LastSeenAt: v.LastSeenAt,
			DriverID:   onShift[v.ID],
		})
	}
	writeJSON(w, views)
}

type driverView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Handle  string `json:"handle,omitempty"`
	Active  bool   `json:"active"`
	Linked  bool   `json:"linked"`
	ShiftID string `json:"shift_id,omitempty"` // active shift, if any
}

func (h *Handlers) apiListDrivers(w http.ResponseWriter, _ *http.Request) {
	db := h.engine.DB()

	active := map[string]string{}
	for _, s := range db.Shifts.Active() {
		active[s.DriverID] = s.ID
	}

	views := []driverView{}
	for _, d := range db.Drivers.List() {
		views = append(views, driverView{
			ID:      d.ID,
			Name:    d.FullName(),
			Handle:  d.Handle,
			Active:  d.Active,
			Linked:  d.ChatID != nil,
			ShiftID: active[d.ID],
		})
	}
	writeJSON(w, views)
}

type shiftView struct {
	ID           string     `json:"id"`
	DriverID     string     `json:"driver_id"`
	DriverName   string     `json:"driver_name,omitempty"`
	VehicleID    string     `json:"vehicle_id"`
	VehicleName  string     `json:"vehicle_name,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	StartReading int64      `json:"start_reading"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	EndReading   *int64     `json:"end_reading,omitempty"`
	Distance     *int64     `json:"distance,omitempty"`
	DurationSec  *int64     `json:"duration_sec,omitempty"`
}

func (h *Handlers) toShiftView(s store.Shift) shiftView {
	v := shiftView{
		ID:           s.ID,
		DriverID:     s.DriverID,
		VehicleID:    s.VehicleID,
		StartedAt:    s.StartedAt,
		StartReading: s.StartReading,
		EndedAt:      s.EndedAt,
		EndReading:   s.EndReading,
	}
	if d, ok := h.engine.DB().Drivers.Get(s.DriverID); ok {
		v.DriverName = d.FullName()
	}
	if veh, ok := h.engine.DB().Vehicles.Get(s.VehicleID); ok {
		v.VehicleName = veh.Name
	}
	if s.EndedAt != nil && s.EndReading != nil {
		distance := *s.EndReading - s.StartReading
		duration := int64(s.EndedAt.Sub(s.StartedAt) / time.Second)
		v.Distance = &distance
		v.DurationSec = &duration
	}
	return v
}

func (h *Handlers) apiListShifts(w http.ResponseWriter, _ *http.Request) {
	views := []shiftView{}
	for _, s := range h.engine.DB().Shifts.List() {
		views = append(views, h.toShiftView(s))
	}
	writeJSON(w, views)
}

func (h *Handlers) apiListActiveShifts(w http.ResponseWriter, _ *http.Request) {
	views := []shiftView{}
	for _, s := range h.engine.DB().Shifts.Active() {
		views = append(views, h.toShiftView(s))
	}
	writeJSON(w, views)
}

// --- Admin operations ---

func (h *Handlers) deepLink(token string) string {
	return fmt.Sprintf("%s?start=%s", h.engine.AppConfig().Bot.EntryURL, token)
}

func (h *Handlers) apiDriverLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.engine.DB().Drivers.Get(id); !ok {
		writeError(w, http.StatusNotFound, "driver not found")
		return
	}
	writeJSON(w, map[string]string{"link": h.deepLink("driver_" + id)})
}

// apiVehicleLink returns a registration link for the vehicle. The vehicle
// record need not exist yet; registration auto-creates it.
func (h *Handlers) apiVehicleLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, map[string]string{"link": h.deepLink("vehicle_" + id)})
}

func (h *Handlers) apiRenameVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	db := h.engine.DB()
	v, ok := db.Vehicles.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	v.Name = req.Name
	db.Vehicles.Put(v)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiDispatchVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if err := h.engine.Dispatch(id, req.Text); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
