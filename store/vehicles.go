package store

import (
	"database/sql"
	"log"
	"sort"
	"sync"
	"time"
)

// Vehicle is a fleet vehicle. Vehicles are created by fleet setup or by a
// vehicle deep-link registration and are never deleted by this subsystem.
type Vehicle struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ChatID     *int64     `json:"chat_id,omitempty"`
	LastLat    *float64   `json:"last_lat,omitempty"`
	LastLon    *float64   `json:"last_lon,omitempty"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// VehicleRepo is the in-memory vehicle collection backed by SQLite.
type VehicleRepo struct {
	mu    sync.Mutex
	db    *sql.DB
	items map[string]Vehicle
}

func (r *VehicleRepo) load() error {
	rows, err := r.db.Query(`SELECT id, name, chat_id, last_lat, last_lon, last_seen_at FROM vehicles`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v Vehicle
		var seenAt *string
		if err := rows.Scan(&v.ID, &v.Name, &v.ChatID, &v.LastLat, &v.LastLon, &seenAt); err != nil {
			return err
		}
		if seenAt != nil {
			t := parseTime(*seenAt)
			v.LastSeenAt = &t
		}
		r.items[v.ID] = v
	}
	return rows.Err()
}

// Get returns the vehicle with the given identifier.
func (r *VehicleRepo) Get(id string) (Vehicle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	return v, ok
}

// ByChat returns the vehicle linked to the given conversation, if any.
func (r *VehicleRepo) ByChat(chatID int64) (Vehicle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.items {
		if v.ChatID != nil && *v.ChatID == chatID {
			return v, true
		}
	}
	return Vehicle{}, false
}

// List returns all vehicles ordered by identifier.
func (r *VehicleRepo) List() []Vehicle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Vehicle, 0, len(r.items))
	for _, v := range r.items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Put inserts or replaces a vehicle and flushes the collection. A flush
// failure is logged; the in-memory record stays authoritative.
func (r *VehicleRepo) Put(v Vehicle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[v.ID] = v
	r.flushLocked()
}

func (r *VehicleRepo) flushLocked() {
	tx, err := r.db.Begin()
	if err != nil {
		log.Printf("store: flush vehicles: %v", err)
		return
	}
	if _, err := tx.Exec(`DELETE FROM vehicles`); err != nil {
		tx.Rollback()
		log.Printf("store: flush vehicles: %v", err)
		return
	}
	for _, v := range r.items {
		var seenAt *string
		if v.LastSeenAt != nil {
			s := formatTime(*v.LastSeenAt)
			seenAt = &s
		}
		if _, err := tx.Exec(`INSERT INTO vehicles (id, name, chat_id, last_lat, last_lon, last_seen_at) VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID, v.Name, v.ChatID, v.LastLat, v.LastLon, seenAt); err != nil {
			tx.Rollback()
			log.Printf("store: flush vehicles: %v", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("store: flush vehicles: %v", err)
	}
}
