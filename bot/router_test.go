package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"fleetbot/inspection"
	"fleetbot/recognize"
	"fleetbot/shifts"
	"fleetbot/store"
)

// --- In-memory stores and stub recognizers ---

type memDrivers struct {
	items map[string]store.Driver
}

func (m *memDrivers) Get(id string) (store.Driver, bool) {
	d, ok := m.items[id]
	return d, ok
}

func (m *memDrivers) ByChat(chatID int64) (store.Driver, bool) {
	for _, d := range m.items {
		if d.ChatID != nil && *d.ChatID == chatID {
			return d, true
		}
	}
	return store.Driver{}, false
}

func (m *memDrivers) Put(d store.Driver) { m.items[d.ID] = d }

type memVehicles struct {
	items map[string]store.Vehicle
}

func (m *memVehicles) Get(id string) (store.Vehicle, bool) {
	v, ok := m.items[id]
	return v, ok
}

func (m *memVehicles) ByChat(chatID int64) (store.Vehicle, bool) {
	for _, v := range m.items {
		if v.ChatID != nil && *v.ChatID == chatID {
			return v, true
		}
	}
	return store.Vehicle{}, false
}

func (m *memVehicles) Put(v store.Vehicle) { m.items[v.ID] = v }

type memShiftStore struct {
	items map[string]store.Shift
}

func (m *memShiftStore) Get(id string) (store.Shift, bool) {
	s, ok := m.items[id]
	return s, ok
}

func (m *memShiftStore) ActiveByDriver(driverID string) (store.Shift, bool) {
	for _, s := range m.items {
		if s.DriverID == driverID && s.Active() {
			return s, true
		}
	}
	return store.Shift{}, false
}

func (m *memShiftStore) LastSealedForVehicle(vehicleID string) (store.Shift, bool) {
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

func (m *memShiftStore) Put(s store.Shift) { m.items[s.ID] = s }

type nopShiftEmitter struct{}

func (nopShiftEmitter) EmitShiftOpened(string, string, string, int64, time.Time)            {}
func (nopShiftEmitter) EmitShiftClosed(string, string, string, int64, int64, time.Duration) {}

type stubCodes struct {
	code string
	err  error
}

func (s *stubCodes) DecodeCode(context.Context, string) (string, error) {
	return s.code, s.err
}

type stubGauge struct {
	value int64
	err   error
}

func (s *stubGauge) ReadGauge(context.Context, string) (int64, error) {
	return s.value, s.err
}

// blockingCodes parks DecodeCode until released, to exercise the busy lock
// and stale-result handling.
type blockingCodes struct {
	entered chan struct{}
	release chan struct{}
	code    string
}

func (b *blockingCodes) DecodeCode(context.Context, string) (string, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.code, nil
}

// --- Fixture ---

const (
	driverChat  = int64(100)
	vehicleChat = int64(200)
)

type fixture struct {
	drivers    *memDrivers
	vehicles   *memVehicles
	shiftStore *memShiftStore
	mgr        *shifts.Manager
	router     *Router
}

func newFixture(t *testing.T, codes recognize.CodeDecoder, gauge recognize.GaugeReader) *fixture {
	t.Helper()

	chat := driverChat
	f := &fixture{
		drivers: &memDrivers{items: map[string]store.Driver{
			"d1": {ID: "d1", FirstName: "Aidar", LastName: "S", Active: true, ChatID: &chat},
		}},
		vehicles: &memVehicles{items: map[string]store.Vehicle{
			"V": {ID: "V", Name: "Sprinter 7"},
		}},
		shiftStore: &memShiftStore{items: map[string]store.Shift{}},
	}
	f.mgr = shifts.NewManager(f.shiftStore, nopShiftEmitter{})
	f.router = NewRouter(Config{
		Drivers:            f.drivers,
		Vehicles:           f.vehicles,
		Shifts:             f.mgr,
		Codes:              codes,
		Gauge:              gauge,
		RecognitionTimeout: time.Second,
	})
	return f
}

func command(chatID int64, cmd, arg string) Event {
	return Event{ChatID: chatID, Kind: KindCommand, Command: cmd, Arg: arg}
}

func text(chatID int64, s string) Event {
	return Event{ChatID: chatID, Kind: KindText, Text: s}
}

func photo(chatID int64) Event {
	return Event{ChatID: chatID, Kind: KindPhoto, PhotoRef: "file-1"}
}

func wantContains(t *testing.T, rep Reply, substr string) {
	t.Helper()
	if !strings.Contains(rep.Text, substr) {
		t.Errorf("reply %q does not contain %q", rep.Text, substr)
	}
}

// --- Registration ---

func TestRegistration(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, &stubGauge{value: 1000})
	f.drivers.items["d2"] = store.Driver{ID: "d2", FirstName: "Bella"}

	rep := f.router.HandleEvent(command(300, CmdStart, "driver_d2"))
	wantContains(t, rep, "Bella")
	d, _ := f.drivers.Get("d2")
	if d.ChatID == nil || *d.ChatID != 300 {
		t.Errorf("driver chat = %v, want 300", d.ChatID)
	}

	// Last link wins.
	rep = f.router.HandleEvent(command(301, CmdStart, "driver_d2"))
	wantContains(t, rep, "Bella")
	d, _ = f.drivers.Get("d2")
	if d.ChatID == nil || *d.ChatID != 301 {
		t.Errorf("driver chat after re-link = %v, want 301", d.ChatID)
	}
	if _, ok := f.drivers.ByChat(300); ok {
		t.Error("old chat should no longer resolve to the driver")
	}

	rep = f.router.HandleEvent(command(302, CmdStart, "driver_nope"))
	wantContains(t, rep, "doesn't match any driver")
	if _, ok := f.drivers.ByChat(302); ok {
		t.Error("unknown token must not register anything")
	}

	rep = f.router.HandleEvent(command(303, CmdStart, "garbage"))
	wantContains(t, rep, "isn't recognized")
}

func TestRegistration_VehicleAutoCreate(t *testing.T) {
	f := newFixture(t, nil, nil)

	rep := f.router.HandleEvent(command(vehicleChat, CmdStart, "vehicle_NEW"))
	wantContains(t, rep, "NEW")
	v, ok := f.vehicles.Get("NEW")
	if !ok {
		t.Fatal("vehicle should be auto-created")
	}
	if v.Name != "NEW" || v.ChatID == nil || *v.ChatID != vehicleChat {
		t.Errorf("vehicle = %+v", v)
	}

	// Existing vehicle keeps its name on re-link.
	rep = f.router.HandleEvent(command(201, CmdStart, "vehicle_V"))
	wantContains(t, rep, "Sprinter 7")
	v, _ = f.vehicles.Get("V")
	if v.ChatID == nil || *v.ChatID != 201 {
		t.Errorf("vehicle chat = %v, want 201", v.ChatID)
	}
}

func TestUnregisteredChatRejected(t *testing.T) {
	f := newFixture(t, nil, nil)

	rep := f.router.HandleEvent(text(999, "hello"))
	wantContains(t, rep, "isn't registered")
	rep = f.router.HandleEvent(command(999, CmdScan, ""))
	wantContains(t, rep, "isn't registered")
}

// --- Start and end flow ---

func answerAll(t *testing.T, f *fixture) Reply {
	t.Helper()
	var rep Reply
	for i := 0; i < inspection.Count(); i++ {
		q, _ := inspection.At(i)
		rep = f.router.HandleEvent(text(driverChat, q.Options[0]))
	}
	return rep
}

func TestStartAndEndShift(t *testing.T) {
	gauge := &stubGauge{value: 45230}
	f := newFixture(t, &stubCodes{code: "V"}, gauge)

	rep := f.router.HandleEvent(command(driverChat, CmdScan, ""))
	wantContains(t, rep, "photo of the vehicle code")

	rep = f.router.HandleEvent(photo(driverChat))
	wantContains(t, rep, "Sprinter 7")
	q0, _ := inspection.At(0)
	wantContains(t, rep, q0.Prompt)
	if len(rep.Options) != 3 {
		t.Errorf("options = %v, want the three answers", rep.Options)
	}

	rep = answerAll(t, f)
	wantContains(t, rep, "Inspection complete")

	rep = f.router.HandleEvent(photo(driverChat))
	wantContains(t, rep, "45230")

	rep = f.router.HandleEvent(text(driverChat, "confirm"))
	wantContains(t, rep, "Shift started")
	if !f.mgr.HasActiveShift("d1") {
		t.Fatal("driver should be on shift")
	}
	var opened store.Shift
	for _, s := range f.shiftStore.items {
		opened = s
	}
	if opened.DriverID != "d1" || opened.VehicleID != "V" || opened.StartReading != 45230 {
		t.Errorf("shift = %+v", opened)
	}
	if opened.EndedAt != nil || opened.EndReading != nil {
		t.Errorf("new shift has end fields: %+v", opened)
	}
	if len(opened.Inspection) != inspection.Count() {
		t.Errorf("inspection answers = %d, want %d", len(opened.Inspection), inspection.Count())
	}

	// End flow: recognition fails, manual entry takes over.
	gauge.value, gauge.err = 0, recognize.ErrNoReading

	rep = f.router.HandleEvent(command(driverChat, CmdEndShift, ""))
	wantContains(t, rep, "photo of the odometer")

	rep = f.router.HandleEvent(photo(driverChat))
	wantContains(t, rep, "Type the reading")

	rep = f.router.HandleEvent(text(driverChat, "45480"))
	wantContains(t, rep, "Shift complete")
	wantContains(t, rep, "250")
	if f.mgr.HasActiveShift("d1") {
		t.Error("driver should be off shift")
	}
	sealed, _ := f.shiftStore.Get(opened.ID)
	if sealed.EndReading == nil || *sealed.EndReading != 45480 {
		t.Errorf("end reading = %v, want 45480", sealed.EndReading)
	}
}

func TestSuggestionOverride(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, &stubGauge{value: 45230})

	f.router.HandleEvent(command(driverChat, CmdScan, ""))
	f.router.HandleEvent(photo(driverChat))
	answerAll(t, f)
	f.router.HandleEvent(photo(driverChat))

	rep := f.router.HandleEvent(text(driverChat, "45300"))
	wantContains(t, rep, "Shift started")
	s, _ := f.mgr.Active("d1")
	if s.StartReading != 45300 {
		t.Errorf("start reading = %d, want the typed override 45300", s.StartReading)
	}
}

func TestInvalidInspectionAnswerDoesNotAdvance(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, &stubGauge{value: 45230})

	f.router.HandleEvent(command(driverChat, CmdScan, ""))
	f.router.HandleEvent(photo(driverChat))

	q0, _ := inspection.At(0)
	rep := f.router.HandleEvent(text(driverChat, "maybe"))
	wantContains(t, rep, q0.Prompt)

	// The cursor hasn't moved: the first valid answer still answers step 0.
	rep = f.router.HandleEvent(text(driverChat, q0.Options[0]))
	q1, _ := inspection.At(1)
	wantContains(t, rep, q1.Prompt)
}

func TestUnknownCodeKeepsScanning(t *testing.T) {
	codes := &stubCodes{code: "X"}
	f := newFixture(t, codes, &stubGauge{value: 45230})

	f.router.HandleEvent(command(driverChat, CmdScan, ""))
	rep := f.router.HandleEvent(photo(driverChat))
	wantContains(t, rep, "doesn't match any vehicle")

	// A new photo retries from the same state.
	codes.code = "V"
	rep = f.router.HandleEvent(photo(driverChat))
	wantContains(t, rep, "Sprinter 7")
}

func TestManualEntryValidation(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, &stubGauge{err: recognize.ErrNoReading})

	f.router.HandleEvent(command(driverChat, CmdScan, ""))
	f.router.HandleEvent(photo(driverChat))
	answerAll(t, f)
	f.router.HandleEvent(photo(driverChat)) // gauge fails, manual entry

	for _, bad := range []string{"abc", "-5", "0", "12.5"} {
		rep := f.router.HandleEvent(text(driverChat, bad))
		wantContains(t, rep, "positive whole number")
	}

	rep := f.router.HandleEvent(text(driverChat, "45230"))
	wantContains(t, rep, "Shift started")
}

func TestScanRejectedWhileOnShift(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, &stubGauge{value: 1000})
	if _, err := f.mgr.Open("d1", "V", 1000, nil); err != nil {
		t.Fatal(err)
	}

	rep := f.router.HandleEvent(command(driverChat, CmdScan, ""))
	wantContains(t, rep, "already on shift")
}

func TestEndShiftWithoutActive(t *testing.T) {
	f := newFixture(t, nil, nil)
	rep := f.router.HandleEvent(command(driverChat, CmdEndShift, ""))
	wantContains(t, rep, "no active shift")
}

func TestSanityHintFromLastSealedShift(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, &stubGauge{value: 45230})
	s, _ := f.mgr.Open("d1", "V", 44800, nil)
	if _, _, err := f.mgr.Close(s.ID, 45100); err != nil {
		t.Fatal(err)
	}

	f.router.HandleEvent(command(driverChat, CmdScan, ""))
	f.router.HandleEvent(photo(driverChat))
	rep := answerAll(t, f)
	wantContains(t, rep, "45100")
}

func TestStatusAndHelp(t *testing.T) {
	f := newFixture(t, nil, nil)

	rep := f.router.HandleEvent(command(driverChat, CmdStatus, ""))
	wantContains(t, rep, "No active shift")

	if _, err := f.mgr.Open("d1", "V", 45230, nil); err != nil {
		t.Fatal(err)
	}
	rep = f.router.HandleEvent(command(driverChat, CmdStatus, ""))
	wantContains(t, rep, "Sprinter 7")
	wantContains(t, rep, "45230")

	rep = f.router.HandleEvent(command(driverChat, CmdHelp, ""))
	wantContains(t, rep, "/scan")
}

// --- Capability gating ---

func TestNoGaugeGoesStraightToManual(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, nil)

	f.router.HandleEvent(command(driverChat, CmdScan, ""))
	f.router.HandleEvent(photo(driverChat))
	rep := answerAll(t, f)
	wantContains(t, rep, "Type the odometer reading")

	rep = f.router.HandleEvent(text(driverChat, "500"))
	wantContains(t, rep, "Shift started")
}

func TestNoCodeDecoderBlocksScan(t *testing.T) {
	f := newFixture(t, nil, nil)
	rep := f.router.HandleEvent(command(driverChat, CmdScan, ""))
	wantContains(t, rep, "not available")
}

// --- Cancel and concurrency ---

func TestCancel(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, &stubGauge{value: 45230})

	rep := f.router.HandleEvent(text(driverChat, "cancel"))
	wantContains(t, rep, "Nothing in progress")

	f.router.HandleEvent(command(driverChat, CmdScan, ""))
	f.router.HandleEvent(photo(driverChat))
	rep = f.router.HandleEvent(text(driverChat, "CANCEL"))
	wantContains(t, rep, "Cancelled")

	// Back to idle: no shift opened, scan starts fresh.
	if f.mgr.HasActiveShift("d1") {
		t.Error("cancel must not open a shift")
	}
	rep = f.router.HandleEvent(command(driverChat, CmdScan, ""))
	wantContains(t, rep, "photo of the vehicle code")
}

func TestCommandBlockedMidFlow(t *testing.T) {
	f := newFixture(t, &stubCodes{code: "V"}, &stubGauge{value: 45230})

	f.router.HandleEvent(command(driverChat, CmdScan, ""))
	rep := f.router.HandleEvent(command(driverChat, CmdEndShift, ""))
	wantContains(t, rep, "in progress")
}

func TestStillProcessingRejection(t *testing.T) {
	codes := &blockingCodes{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		code:    "V",
	}
	f := newFixture(t, codes, &stubGauge{value: 45230})

	f.router.HandleEvent(command(driverChat, CmdScan, ""))

	done := make(chan Reply, 1)
	go func() {
		done <- f.router.HandleEvent(photo(driverChat))
	}()
	<-codes.entered

	rep := f.router.HandleEvent(text(driverChat, "hello"))
	wantContains(t, rep, "Still working")

	close(codes.release)
	rep = <-done
	wantContains(t, rep, "Sprinter 7")
}

func TestCancelDropsInFlightRecognition(t *testing.T) {
	codes := &blockingCodes{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		code:    "V",
	}
	f := newFixture(t, codes, &stubGauge{value: 45230})

	f.router.HandleEvent(command(driverChat, CmdScan, ""))

	done := make(chan Reply, 1)
	go func() {
		done <- f.router.HandleEvent(photo(driverChat))
	}()
	<-codes.entered

	// Cancel cuts past the busy conversation.
	rep := f.router.HandleEvent(text(driverChat, "cancel"))
	wantContains(t, rep, "Cancelled")

	// The late decode result lands dead: no reply, no state change.
	close(codes.release)
	rep = <-done
	if rep.Text != "" {
		t.Errorf("stale recognition produced reply %q, want none", rep.Text)
	}

	rep = f.router.HandleEvent(text(driverChat, "anything"))
	wantContains(t, rep, "Commands:")
}

// --- Locations ---

func TestLocationWithActiveShift(t *testing.T) {
	f := newFixture(t, nil, nil)
	if _, err := f.mgr.Open("d1", "V", 1000, nil); err != nil {
		t.Fatal(err)
	}

	rep := f.router.HandleEvent(Event{ChatID: driverChat, Kind: KindLocation, Lat: 43.24, Lon: 76.95})
	wantContains(t, rep, "Location updated")
	v, _ := f.vehicles.Get("V")
	if v.LastLat == nil || *v.LastLat != 43.24 || v.LastLon == nil || *v.LastLon != 76.95 {
		t.Errorf("vehicle position = %v,%v", v.LastLat, v.LastLon)
	}
	if v.LastSeenAt == nil {
		t.Error("last seen timestamp not set")
	}
}

func TestLocationWithoutShiftDiscarded(t *testing.T) {
	f := newFixture(t, nil, nil)

	rep := f.router.HandleEvent(Event{ChatID: driverChat, Kind: KindLocation, Lat: 43.24, Lon: 76.95})
	wantContains(t, rep, "Location received")
	v, _ := f.vehicles.Get("V")
	if v.LastLat != nil {
		t.Error("vehicle position must not change without an active shift")
	}
}

func TestLocationFromVehicleChat(t *testing.T) {
	f := newFixture(t, nil, nil)
	chat := vehicleChat
	v, _ := f.vehicles.Get("V")
	v.ChatID = &chat
	f.vehicles.Put(v)

	rep := f.router.HandleEvent(Event{ChatID: vehicleChat, Kind: KindLocation, Lat: 51.16, Lon: 71.47})
	wantContains(t, rep, "Location updated")
	v, _ = f.vehicles.Get("V")
	if v.LastLat == nil || *v.LastLat != 51.16 {
		t.Errorf("vehicle position = %v", v.LastLat)
	}
}
