package store

import (
	"database/sql"
	"log"
	"sort"
	"sync"
)

// Driver is a fleet driver. The conversation link is attached via a
// registration deep link; a later registration overwrites it (last link wins).
type Driver struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Active    bool   `json:"active"`
	ChatID    *int64 `json:"chat_id,omitempty"`
	Handle    string `json:"handle,omitempty"`
}

// FullName returns the driver's display name.
func (d Driver) FullName() string {
	return d.FirstName + " " + d.LastName
}

// DriverRepo is the in-memory driver collection backed by SQLite.
type DriverRepo struct {
	mu    sync.Mutex
	db    *sql.DB
	items map[string]Driver
}

func (r *DriverRepo) load() error {
	rows, err := r.db.Query(`SELECT id, first_name, last_name, active, chat_id, handle FROM drivers`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Active, &d.ChatID, &d.Handle); err != nil {
			return err
		}
		r.items[d.ID] = d
	}
	return rows.Err()
}

// Get returns the driver with the given identifier.
func (r *DriverRepo) Get(id string) (Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	return d, ok
}

// ByChat returns the driver bound to the given conversation, if any.
func (r *DriverRepo) ByChat(chatID int64) (Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.items {
		if d.ChatID != nil && *d.ChatID == chatID {
			return d, true
		}
	}
	return Driver{}, false
}

// List returns all drivers ordered by identifier.
func (r *DriverRepo) List() []Driver {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Driver, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Put inserts or replaces a driver and flushes the collection.
func (r *DriverRepo) Put(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[d.ID] = d
	r.flushLocked()
}

func (r *DriverRepo) flushLocked() {
	tx, err := r.db.Begin()
	if err != nil {
		log.Printf("store: flush drivers: %v", err)
		return
	}
	if _, err := tx.Exec(`DELETE FROM drivers`); err != nil {
		tx.Rollback()
		log.Printf("store: flush drivers: %v", err)
		return
	}
	for _, d := range r.items {
		if _, err := tx.Exec(`INSERT INTO drivers (id, first_name, last_name, active, chat_id, handle) VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, d.FirstName, d.LastName, d.Active, d.ChatID, d.Handle); err != nil {
			tx.Rollback()
			log.Printf("store: flush drivers: %v", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("store: flush drivers: %v", err)
	}
}
