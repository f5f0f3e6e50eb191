package shifts

import (
	"errors"
	"testing"
	"time"

	"fleetbot/store"
)

type memShifts struct {
	items map[string]store.Shift
}

func newMemShifts() *memShifts {
	return &memShifts{items: map[string]store.Shift{}}
}

func (m *memShifts) Get(id string) (store.Shift, bool) {
	s, ok := m.items[id]
	return s, ok
}

func (m *memShifts) ActiveByDriver(driverID string) (store.Shift, bool) {
	for _, s := range m.items {
		if s.DriverID == driverID && s.Active() {
			return s, true
		}
	}
	return store.Shift{}, false
}

func (m *memShifts) LastSealedForVehicle(vehicleID string) (store.Shift, bool) {
	var best store.Shift
	found := false
	for _, s := range m.items {
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

func (m *memShifts) Put(s store.Shift) {
	m.items[s.ID] = s
}

type mockEmitter struct {
	opened int
	closed int

	lastDistance int64
	lastDuration time.Duration
}

func (e *mockEmitter) EmitShiftOpened(_, _, _ string, _ int64, _ time.Time) {
	e.opened++
}

func (e *mockEmitter) EmitShiftClosed(_, _, _ string, _, distance int64, duration time.Duration) {
	e.closed++
	e.lastDistance = distance
	e.lastDuration = duration
}

func TestOpenAndClose(t *testing.T) {
	shifts := newMemShifts()
	emitter := &mockEmitter{}
	m := NewManager(shifts, emitter)

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	s, err := m.Open("d1", "v1", 45230, map[string]string{"tires": "Good"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.DriverID != "d1" || s.VehicleID != "v1" || s.StartReading != 45230 {
		t.Errorf("shift = %+v", s)
	}
	if !m.HasActiveShift("d1") {
		t.Error("driver should have an active shift")
	}
	if emitter.opened != 1 {
		t.Errorf("opened events = %d, want 1", emitter.opened)
	}

	m.now = func() time.Time { return start.Add(6 * time.Hour) }
	sealed, sum, err := m.Close(s.ID, 45480)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if sealed.EndReading == nil || *sealed.EndReading != 45480 {
		t.Errorf("end reading = %v", sealed.EndReading)
	}
	if sum.Distance != 250 {
		t.Errorf("distance = %d, want 250", sum.Distance)
	}
	if sum.Duration != 6*time.Hour {
		t.Errorf("duration = %v, want 6h", sum.Duration)
	}
	if m.HasActiveShift("d1") {
		t.Error("driver should have no active shift after close")
	}
	if emitter.closed != 1 || emitter.lastDistance != 250 {
		t.Errorf("closed events = %d distance = %d", emitter.closed, emitter.lastDistance)
	}
}

func TestOpenRejectsSecondActive(t *testing.T) {
	shifts := newMemShifts()
	emitter := &mockEmitter{}
	m := NewManager(shifts, emitter)

	if _, err := m.Open("d1", "v1", 100, nil); err != nil {
		t.Fatalf("first open: %v", err)
	}
	_, err := m.Open("d1", "v2", 200, nil)
	if !errors.Is(err, ErrAlreadyOnShift) {
		t.Fatalf("err = %v, want ErrAlreadyOnShift", err)
	}
	if len(shifts.items) != 1 {
		t.Errorf("store has %d shifts, want 1 (failed open must not mutate)", len(shifts.items))
	}
	if emitter.opened != 1 {
		t.Errorf("opened events = %d, want 1", emitter.opened)
	}

	// A different driver can still open.
	if _, err := m.Open("d2", "v2", 200, nil); err != nil {
		t.Errorf("open for second driver: %v", err)
	}
}

func TestCloseErrors(t *testing.T) {
	shifts := newMemShifts()
	emitter := &mockEmitter{}
	m := NewManager(shifts, emitter)

	if _, _, err := m.Close("missing", 100); !errors.Is(err, ErrShiftNotFound) {
		t.Errorf("close unknown: err = %v, want ErrShiftNotFound", err)
	}

	s, _ := m.Open("d1", "v1", 100, nil)
	if _, _, err := m.Close(s.ID, 150); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := m.Close(s.ID, 200); !errors.Is(err, ErrShiftNotFound) {
		t.Errorf("close sealed: err = %v, want ErrShiftNotFound", err)
	}
	if emitter.closed != 1 {
		t.Errorf("closed events = %d, want 1", emitter.closed)
	}
}

func TestNegativeDistanceSurfaced(t *testing.T) {
	m := NewManager(newMemShifts(), &mockEmitter{})

	s, _ := m.Open("d1", "v1", 500, nil)
	_, sum, err := m.Close(s.ID, 400)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if sum.Distance != -100 {
		t.Errorf("distance = %d, want -100 (inconsistent readings are surfaced, not rejected)", sum.Distance)
	}
}

func TestLastEndReading(t *testing.T) {
	m := NewManager(newMemShifts(), &mockEmitter{})

	if _, ok := m.LastEndReading("v1"); ok {
		t.Error("no sealed shift yet, want no reading")
	}

	s, _ := m.Open("d1", "v1", 100, nil)
	if _, ok := m.LastEndReading("v1"); ok {
		t.Error("active shift should not count")
	}

	if _, _, err := m.Close(s.ID, 180); err != nil {
		t.Fatalf("close: %v", err)
	}
	last, ok := m.LastEndReading("v1")
	if !ok || last != 180 {
		t.Errorf("last reading = %d, %v, want 180", last, ok)
	}
}
