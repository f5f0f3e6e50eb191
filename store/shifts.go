package store

import (
	"database/sql"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"
)

// Shift is a driver's vehicle shift. A shift with no end timestamp is active;
// sealed shifts are never mutated again.
type Shift struct {
	ID           string            `json:"id"`
	DriverID     string            `json:"driver_id"`
	VehicleID    string            `json:"vehicle_id"`
	StartedAt    time.Time         `json:"started_at"`
	StartReading int64             `json:"start_reading"`
	Inspection   map[string]string `json:"inspection,omitempty"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
	EndReading   *int64            `json:"end_reading,omitempty"`
}

// Active reports whether the shift has not been sealed yet.
func (s Shift) Active() bool {
	return s.EndedAt == nil
}

// ShiftRepo is the in-memory shift collection backed by SQLite.
type ShiftRepo struct {
	mu    sync.Mutex
	db    *sql.DB
	items map[string]Shift
}

func (r *ShiftRepo) load() error {
	rows, err := r.db.Query(`SELECT id, driver_id, vehicle_id, started_at, start_reading, inspection, ended_at, end_reading FROM shifts`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var s Shift
		var startedAt, inspection string
		var endedAt *string
		if err := rows.Scan(&s.ID, &s.DriverID, &s.VehicleID, &startedAt, &s.StartReading, &inspection, &endedAt, &s.EndReading); err != nil {
			return err
		}
		s.StartedAt = parseTime(startedAt)
		if endedAt != nil {
			t := parseTime(*endedAt)
			s.EndedAt = &t
		}
		if err := json.Unmarshal([]byte(inspection), &s.Inspection); err != nil {
			log.Printf("store: shift %s inspection decode: %v", s.ID, err)
		}
		r.items[s.ID] = s
	}
	return rows.Err()
}

// Get returns the shift with the given identifier.
func (r *ShiftRepo) Get(id string) (Shift, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	return s, ok
}

// ActiveByDriver returns the driver's active shift, if any.
func (r *ShiftRepo) ActiveByDriver(driverID string) (Shift, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.DriverID == driverID && s.Active() {
			return s, true
		}
	}
	return Shift{}, false
}

// LastSealedForVehicle returns the vehicle's most recently ended shift, if any.
func (r *ShiftRepo) LastSealedForVehicle(vehicleID string) (Shift, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best Shift
	found := false
	for _, s := range r.items {
		if s.VehicleID != vehicleID || s.Active() {
			continue
		}
		if !found || s.EndedAt.After(*best.EndedAt) {
			best = s
			found = true
		}
	}
	return best, found
}

// List returns all shifts, newest first.
func (r *ShiftRepo) List() []Shift {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Shift, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Active returns all active shifts, newest first.
func (r *ShiftRepo) Active() []Shift {
	all := r.List()
	out := all[:0]
	for _, s := range all {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// Put inserts or replaces a shift and flushes the collection.
func (r *ShiftRepo) Put(s Shift) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = s
	r.flushLocked()
}

func (r *ShiftRepo) flushLocked() {
	tx, err := r.db.Begin()
	if err != nil {
		log.Printf("store: flush shifts: %v", err)
		return
	}
	if _, err := tx.Exec(`DELETE FROM shifts`); err != nil {
		tx.Rollback()
		log.Printf("store: flush shifts: %v", err)
		return
	}
	for _, s := range r.items {
		inspection, _ := json.Marshal(s.Inspection)
		var endedAt *string
		if s.EndedAt != nil {
			v := formatTime(*s.EndedAt)
			endedAt = &v
		}
		if _, err := tx.Exec(`INSERT INTO shifts (id, driver_id, vehicle_id, started_at, start_reading, inspection, ended_at, end_reading) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.DriverID, s.VehicleID, formatTime(s.StartedAt), s.StartReading, string(inspection), endedAt, s.EndReading); err != nil {
			tx.Rollback()
			log.Printf("store: flush shifts: %v", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("store: flush shifts: %v", err)
	}
}
