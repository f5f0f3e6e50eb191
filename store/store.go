package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store owns the three record collections. Each collection is held fully in
// memory and written back to SQLite as a whole on every mutation; reads never
// touch the database after startup.
type Store struct {
	db *sql.DB

	Vehicles *VehicleRepo
	Drivers  *DriverRepo
	Shifts   *ShiftRepo
}

// Open opens (or creates) the SQLite backing store, runs migrations, and loads
// all collections into memory. A missing or empty database yields empty
// collections, not an error.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.Vehicles = &VehicleRepo{db: db, items: map[string]Vehicle{}}
	s.Drivers = &DriverRepo{db: db, items: map[string]Driver{}}
	s.Shifts = &ShiftRepo{db: db, items: map[string]Shift{}}

	if err := s.Vehicles.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	if err := s.Drivers.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load drivers: %w", err)
	}
	if err := s.Shifts.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load shifts: %w", err)
	}

	return s, nil
}

// Close closes the backing database.
func (s *Store) Close() error {
	return s.db.Close()
}
