// Package shifts implements the shift lifecycle: opening a shift after the
// start flow, sealing it on end, and enforcing the one-active-shift-per-driver
// invariant.
package shifts

import (
	"errors"
	"fmt"
	"time"

	"fleetbot/store"

	"github.com/google/uuid"
)

// ErrAlreadyOnShift is returned when a driver with an active shift tries to
// open another.
var ErrAlreadyOnShift = errors.New("driver already on shift")

// ErrShiftNotFound is returned when sealing an unknown shift.
var ErrShiftNotFound = errors.New("shift not found")

// ShiftStore is the slice of the record store the manager needs.
type ShiftStore interface {
	Get(id string) (store.Shift, bool)
	ActiveByDriver(driverID string) (store.Shift, bool)
	LastSealedForVehicle(vehicleID string) (store.Shift, bool)
	Put(s store.Shift)
}

// Summary is the derived reply data for a sealed shift. Distance may be
// negative when the driver enters an inconsistent end reading; it is surfaced
// as-is rather than rejected.
type Summary struct {
	Duration time.Duration
	Distance int64
}

// Manager handles the shift lifecycle.
type Manager struct {
	shifts  ShiftStore
	emitter EventEmitter
	now     func() time.Time
}

// NewManager creates a shift lifecycle manager.
func NewManager(shifts ShiftStore, emitter EventEmitter) *Manager {
	return &Manager{
		shifts:  shifts,
		emitter: emitter,
		now:     time.Now,
	}
}

// HasActiveShift reports whether the driver has a shift with no end timestamp.
func (m *Manager) HasActiveShift(driverID string) bool {
	_, ok := m.shifts.ActiveByDriver(driverID)
	return ok
}

// Active returns the driver's active shift, if any.
func (m *Manager) Active(driverID string) (store.Shift, bool) {
	return m.shifts.ActiveByDriver(driverID)
}

// Open creates and stores a new active shift. It fails without touching the
// store if the driver already has one.
func (m *Manager) Open(driverID, vehicleID string, startReading int64, inspection map[string]string) (store.Shift, error) {
	if m.HasActiveShift(driverID) {
		return store.Shift{}, fmt.Errorf("open shift for driver %s: %w", driverID, ErrAlreadyOnShift)
	}

	s := store.Shift{
		ID:           uuid.New().String(),
		DriverID:     driverID,
		VehicleID:    vehicleID,
		StartedAt:    m.now(),
		StartReading: startReading,
		Inspection:   inspection,
	}
	m.shifts.Put(s)

	m.emitter.EmitShiftOpened(s.ID, driverID, vehicleID, startReading, s.StartedAt)
	return s, nil
}

// LastEndReading returns the end reading of the vehicle's most recently
// sealed shift. Used as a sanity-check hint before the driver enters a new
// start reading.
func (m *Manager) LastEndReading(vehicleID string) (int64, bool) {
	s, ok := m.shifts.LastSealedForVehicle(vehicleID)
	if !ok || s.EndReading == nil {
		return 0, false
	}
	return *s.EndReading, true
}

// Close seals the shift with the end reading and wall-clock end timestamp,
// returning the sealed record and its derived summary.
func (m *Manager) Close(shiftID string, endReading int64) (store.Shift, Summary, error) {
	s, ok := m.shifts.Get(shiftID)
	if !ok {
		return store.Shift{}, Summary{}, fmt.Errorf("close shift %s: %w", shiftID, ErrShiftNotFound)
	}
	if !s.Active() {
		return store.Shift{}, Summary{}, fmt.Errorf("close shift %s: already sealed: %w", shiftID, ErrShiftNotFound)
	}

	endedAt := m.now()
	s.EndedAt = &endedAt
	s.EndReading = &endReading
	m.shifts.Put(s)

	sum := Summary{
		Duration: endedAt.Sub(s.StartedAt),
		Distance: endReading - s.StartReading,
	}
	m.emitter.EmitShiftClosed(s.ID, s.DriverID, s.VehicleID, endReading, sum.Distance, sum.Duration)
	return s, sum, nil
}
