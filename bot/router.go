// Package bot implements the conversation engine: per-conversation sessions
// and the state machine that sequences registration, shift start/end flows,
// the pre-shift inspection, and location reports.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"fleetbot/inspection"
	"fleetbot/recognize"
	"fleetbot/shifts"
	"fleetbot/store"
)

// DriverStore is the slice of the record store the router needs for drivers.
type DriverStore interface {
	Get(id string) (store.Driver, bool)
	ByChat(chatID int64) (store.Driver, bool)
	Put(d store.Driver)
}

// VehicleStore is the slice of the record store the router needs for vehicles.
type VehicleStore interface {
	Get(id string) (store.Vehicle, bool)
	ByChat(chatID int64) (store.Vehicle, bool)
	Put(v store.Vehicle)
}

// EventEmitter is the interface the router uses to emit events.
type EventEmitter interface {
	EmitDriverRegistered(driverID string, chatID int64, rebound bool)
	EmitVehicleRegistered(vehicleID string, chatID int64, created bool)
	EmitVehicleLocation(vehicleID string, lat, lon float64)
}

type noopEmitter struct{}

func (noopEmitter) EmitDriverRegistered(string, int64, bool)     {}
func (noopEmitter) EmitVehicleRegistered(string, int64, bool)    {}
func (noopEmitter) EmitVehicleLocation(string, float64, float64) {}

// Config holds the parameters needed to create a Router.
type Config struct {
	Drivers  DriverStore
	Vehicles VehicleStore
	Shifts   *shifts.Manager
	Codes    recognize.CodeDecoder // nil disables code scanning
	Gauge    recognize.GaugeReader // nil routes readings to manual entry
	Emitter  EventEmitter

	CancelWord         string
	RecognitionTimeout time.Duration
}

// Router is the single entry point for inbound conversation events. Events
// for the same conversation are serialized; an event arriving while a
// recognition call is outstanding is rejected with a "still processing" reply
// rather than interleaved into a stale state.
type Router struct {
	drivers  DriverStore
	vehicles VehicleStore
	shifts   *shifts.Manager
	codes    recognize.CodeDecoder
	gauge    recognize.GaugeReader
	emitter  EventEmitter

	cancelWord string
	timeout    time.Duration

	mu    sync.Mutex
	convs map[int64]*conversation
}

// NewRouter creates a conversation router.
func NewRouter(c Config) *Router {
	emitter := c.Emitter
	if emitter == nil {
		emitter = noopEmitter{}
	}
	cancelWord := c.CancelWord
	if cancelWord == "" {
		cancelWord = "cancel"
	}
	timeout := c.RecognitionTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Router{
		drivers:    c.Drivers,
		vehicles:   c.Vehicles,
		shifts:     c.Shifts,
		codes:      c.Codes,
		gauge:      c.Gauge,
		emitter:    emitter,
		cancelWord: cancelWord,
		timeout:    timeout,
		convs:      map[int64]*conversation{},
	}
}

// HandleEvent processes one inbound event and returns the reply to send. A
// zero Reply means nothing should be sent.
func (r *Router) HandleEvent(ev Event) Reply {
	conv := r.conversation(ev.ChatID)

	// Cancel cuts in even while a recognition call holds the busy lock; the
	// generation bump makes the in-flight result land dead.
	if r.isCancel(ev) {
		return r.handleCancel(conv, ev)
	}

	if !conv.busy.TryLock() {
		return reply(ev.ChatID, "Still working on your previous message, one moment.")
	}
	defer conv.busy.Unlock()

	if ev.Kind == KindCommand && ev.Command == CmdStart {
		return r.handleRegistration(conv, ev)
	}

	driver, bound := r.drivers.ByChat(ev.ChatID)
	if ev.Kind == KindLocation {
		return r.handleLocation(ev, driver, bound)
	}
	if !bound {
		return reply(ev.ChatID, "This chat isn't registered. Open your registration link to get started.")
	}

	switch ev.Kind {
	case KindCommand:
		return r.handleCommand(conv, ev, driver)
	case KindText:
		return r.handleText(conv, ev, driver)
	case KindPhoto:
		return r.handlePhoto(conv, ev)
	}
	return reply(ev.ChatID, helpText)
}

func (r *Router) conversation(chatID int64) *conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[chatID]
	if !ok {
		c = &conversation{sess: Session{ChatID: chatID, Flow: FlowIdle}}
		r.convs[chatID] = c
	}
	return c
}

func (r *Router) isCancel(ev Event) bool {
	if ev.Kind == KindCommand && ev.Command == "cancel" {
		return true
	}
	return ev.Kind == KindText && strings.EqualFold(strings.TrimSpace(ev.Text), r.cancelWord)
}

func (r *Router) handleCancel(conv *conversation, ev Event) Reply {
	flow := conv.snapshot().Flow
	conv.update(func(s *Session) { s.reset() })
	if flow == FlowIdle {
		return reply(ev.ChatID, "Nothing in progress.")
	}
	return reply(ev.ChatID, "Cancelled.")
}

// --- Registration ---

func (r *Router) handleRegistration(conv *conversation, ev Event) Reply {
	token := strings.TrimSpace(ev.Arg)

	if id, ok := strings.CutPrefix(token, "driver_"); ok {
		return r.registerDriver(conv, ev, id)
	}
	if id, ok := strings.CutPrefix(token, "vehicle_"); ok {
		return r.registerVehicle(ev, id)
	}
	if token == "" {
		if d, ok := r.drivers.ByChat(ev.ChatID); ok {
			return reply(ev.ChatID, fmt.Sprintf("Welcome back, %s.\n%s", d.FirstName, helpText))
		}
		return reply(ev.ChatID, "This chat isn't registered. Open your registration link to get started.")
	}
	return reply(ev.ChatID, "That registration link isn't recognized.")
}

func (r *Router) registerDriver(conv *conversation, ev Event, driverID string) Reply {
	d, ok := r.drivers.Get(driverID)
	if !ok {
		return reply(ev.ChatID, "That registration link doesn't match any driver. Ask your fleet manager for a new one.")
	}

	// Last link wins: a later registration overwrites the conversation handle.
	rebound := d.ChatID != nil && *d.ChatID != ev.ChatID
	if rebound {
		log.Printf("bot: driver %s re-linked from chat %d to chat %d", d.ID, *d.ChatID, ev.ChatID)
	}
	chatID := ev.ChatID
	d.ChatID = &chatID
	r.drivers.Put(d)

	conv.update(func(s *Session) { s.DriverID = d.ID })
	r.emitter.EmitDriverRegistered(d.ID, ev.ChatID, rebound)
	return reply(ev.ChatID, fmt.Sprintf("Welcome, %s! Send /scan to start a shift.\n%s", d.FirstName, helpText))
}

func (r *Router) registerVehicle(ev Event, vehicleID string) Reply {
	v, ok := r.vehicles.Get(vehicleID)
	created := false
	if !ok {
		v = store.Vehicle{ID: vehicleID, Name: vehicleID}
		created = true
	}
	chatID := ev.ChatID
	v.ChatID = &chatID
	r.vehicles.Put(v)

	r.emitter.EmitVehicleRegistered(v.ID, ev.ChatID, created)
	return reply(ev.ChatID, fmt.Sprintf("Vehicle %s is now linked to this chat.", v.Name))
}

// --- Commands ---

const helpText = "Commands:\n" +
	"/scan - start a shift (photograph the vehicle code)\n" +
	"/endshift - end your current shift\n" +
	"/status - your current shift\n" +
	"/help - this message\n" +
	"Send \"cancel\" at any point to abort."

func (r *Router) handleCommand(conv *conversation, ev Event, driver store.Driver) Reply {
	snap := conv.snapshot()
	if snap.Flow != FlowIdle && ev.Command != CmdStatus && ev.Command != CmdHelp {
		return reply(ev.ChatID, fmt.Sprintf("You have %s in progress. Send %q to abort it first.", flowLabel(snap.Flow), r.cancelWord))
	}

	switch ev.Command {
	case CmdScan:
		if r.shifts.HasActiveShift(driver.ID) {
			return reply(ev.ChatID, "You're already on shift. Send /endshift when you're done.")
		}
		if r.codes == nil {
			return reply(ev.ChatID, "Code scanning is not available right now. Contact your fleet manager.")
		}
		conv.update(func(s *Session) { s.Flow = FlowScanningCode })
		return reply(ev.ChatID, "Send a photo of the vehicle code.")

	case CmdEndShift:
		active, ok := r.shifts.Active(driver.ID)
		if !ok {
			return reply(ev.ChatID, "You have no active shift.")
		}
		if r.gauge == nil {
			conv.update(func(s *Session) {
				s.Flow = FlowManualReading
				s.ShiftID = active.ID
			})
			return reply(ev.ChatID, "Type the current odometer reading.")
		}
		conv.update(func(s *Session) {
			s.Flow = FlowAwaitEndReading
			s.ShiftID = active.ID
		})
		return reply(ev.ChatID, "Send a photo of the odometer.")

	case CmdStatus:
		return r.statusReply(ev.ChatID, driver)

	case CmdHelp:
		return reply(ev.ChatID, helpText)
	}
	return reply(ev.ChatID, "Unknown command.\n"+helpText)
}

func (r *Router) statusReply(chatID int64, driver store.Driver) Reply {
	active, ok := r.shifts.Active(driver.ID)
	if !ok {
		return reply(chatID, "No active shift. Send /scan to start one.")
	}
	elapsed := time.Since(active.StartedAt).Truncate(time.Minute)
	return reply(chatID, fmt.Sprintf("On shift with %s since %s (start reading %d, %s elapsed).",
		r.vehicleName(active.VehicleID), active.StartedAt.Format("15:04"), active.StartReading, elapsed))
}

// vehicleName resolves a display name, tolerating dangling references.
func (r *Router) vehicleName(vehicleID string) string {
	if v, ok := r.vehicles.Get(vehicleID); ok {
		return v.Name
	}
	return "unknown vehicle " + vehicleID
}

// --- Photos ---

func (r *Router) handlePhoto(conv *conversation, ev Event) Reply {
	snap := conv.snapshot()
	switch snap.Flow {
	case FlowScanningCode:
		return r.photoScan(conv, ev, snap)
	case FlowAwaitStartReading, FlowAwaitEndReading:
		return r.photoReading(conv, ev, snap)
	case FlowInspection:
		q, _ := inspection.At(snap.Step)
		return replyOptions(ev.ChatID, "Please answer the question first.\n"+q.Prompt, q.Options[:])
	case FlowManualReading:
		return reply(ev.ChatID, "Type the reading as a number.")
	}
	return reply(ev.ChatID, "I wasn't expecting a photo. Send /scan to start a shift.")
}

func (r *Router) photoScan(conv *conversation, ev Event, snap Session) Reply {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	code, err := r.codes.DecodeCode(ctx, ev.PhotoRef)
	if err != nil {
		if !errors.Is(err, recognize.ErrNoCode) {
			log.Printf("bot: code decode: %v", err)
		}
		// Terminal error display; the conversation stays in scanning so
		// another photo retries.
		return reply(ev.ChatID, fmt.Sprintf("I couldn't read a code in that photo. Try again with the code centered, or send %q.", r.cancelWord))
	}

	v, ok := r.vehicles.Get(code)
	if !ok {
		return reply(ev.ChatID, fmt.Sprintf("Code %q doesn't match any vehicle in the fleet. Try another photo, or send %q.", code, r.cancelWord))
	}

	hint := ""
	if last, ok := r.shifts.LastEndReading(v.ID); ok {
		hint = fmt.Sprintf(" Last recorded reading was %d.", last)
	}

	if !conv.updateIfGen(snap.Gen, func(s *Session) {
		s.Flow = FlowInspection
		s.VehicleID = v.ID
		s.VehicleName = v.Name
		s.Hint = hint
		s.Step = 0
		s.Answers = map[string]string{}
	}) {
		return Reply{} // cancelled while decoding
	}

	q, _ := inspection.At(0)
	return replyOptions(ev.ChatID, fmt.Sprintf("Vehicle %s. Quick inspection first.\n%s", v.Name, q.Prompt), q.Options[:])
}

func (r *Router) photoReading(conv *conversation, ev Event, snap Session) Reply {
	if r.gauge == nil {
		if !conv.updateIfGen(snap.Gen, func(s *Session) { s.Flow = FlowManualReading }) {
			return Reply{}
		}
		return reply(ev.ChatID, "Gauge reading is not available right now. Type the reading as a number.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	v, err := r.gauge.ReadGauge(ctx, ev.PhotoRef)
	if err != nil {
		if !errors.Is(err, recognize.ErrNoReading) {
			log.Printf("bot: gauge read: %v", err)
		}
		if !conv.updateIfGen(snap.Gen, func(s *Session) { s.Flow = FlowManualReading }) {
			return Reply{}
		}
		return reply(ev.ChatID, fmt.Sprintf("I couldn't read the gauge. Type the reading as a number, or send %q.", r.cancelWord))
	}

	if !conv.updateIfGen(snap.Gen, func(s *Session) { s.Suggested = &v }) {
		return Reply{}
	}
	return replyOptions(ev.ChatID,
		fmt.Sprintf("I read %d.%s Reply \"confirm\" to accept, type the correct number, or send %q.", v, snap.Hint, r.cancelWord),
		[]string{"Confirm"})
}

// --- Text ---

func (r *Router) handleText(conv *conversation, ev Event, driver store.Driver) Reply {
	snap := conv.snapshot()
	switch snap.Flow {
	case FlowInspection:
		return r.textInspection(conv, ev, snap)
	case FlowAwaitStartReading, FlowAwaitEndReading, FlowManualReading:
		return r.textReading(conv, ev, snap, driver)
	case FlowScanningCode:
		return reply(ev.ChatID, "Send a photo of the vehicle code, or send "+strconv.Quote(r.cancelWord)+".")
	}
	return reply(ev.ChatID, helpText)
}

func (r *Router) textInspection(conv *conversation, ev Event, snap Session) Reply {
	q, ok := inspection.At(snap.Step)
	if !ok {
		conv.update(func(s *Session) { s.reset() })
		return reply(ev.ChatID, "Something went wrong with the inspection. Send /scan to start over.")
	}

	answer, ok := inspection.Match(snap.Step, ev.Text)
	if !ok {
		// No state advance on an out-of-option answer.
		return replyOptions(ev.ChatID, "Please pick one of the options.\n"+q.Prompt, q.Options[:])
	}

	next := snap.Step + 1
	if !conv.updateIfGen(snap.Gen, func(s *Session) {
		s.Answers[q.Key] = answer
		s.Step = next
		if inspection.Done(next) {
			s.Flow = FlowAwaitStartReading
		}
	}) {
		return Reply{}
	}

	if inspection.Done(next) {
		if r.gauge == nil {
			conv.updateIfGen(snap.Gen, func(s *Session) { s.Flow = FlowManualReading })
			return reply(ev.ChatID, "Inspection complete. Type the odometer reading."+snap.Hint)
		}
		return reply(ev.ChatID, "Inspection complete. Now send a photo of the odometer."+snap.Hint)
	}
	nq, _ := inspection.At(next)
	return replyOptions(ev.ChatID, nq.Prompt, nq.Options[:])
}

func isConfirmWord(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "confirm", "yes", "ok":
		return true
	}
	return false
}

func (r *Router) textReading(conv *conversation, ev Event, snap Session, driver store.Driver) Reply {
	var value int64
	if snap.Suggested != nil && isConfirmWord(ev.Text) {
		value = *snap.Suggested
	} else {
		v, err := strconv.ParseInt(strings.TrimSpace(ev.Text), 10, 64)
		if err != nil || v <= 0 {
			if snap.Suggested != nil {
				return reply(ev.ChatID, "Reply \"confirm\" to accept the reading, or type a positive whole number.")
			}
			return reply(ev.ChatID, "Please enter the reading as a positive whole number.")
		}
		value = v
	}

	// Bail out if the flow was cancelled since the snapshot; the record
	// mutation below must not run against a discarded session.
	if !conv.updateIfGen(snap.Gen, func(*Session) {}) {
		return Reply{}
	}

	if snap.ShiftID == "" {
		return r.openShift(conv, ev.ChatID, snap, driver, value)
	}
	return r.closeShift(conv, ev.ChatID, snap, value)
}

func (r *Router) openShift(conv *conversation, chatID int64, snap Session, driver store.Driver, reading int64) Reply {
	s, err := r.shifts.Open(driver.ID, snap.VehicleID, reading, snap.Answers)
	conv.update(func(sess *Session) { sess.reset() })
	if err != nil {
		if errors.Is(err, shifts.ErrAlreadyOnShift) {
			return reply(chatID, "You're already on shift. Send /endshift when you're done.")
		}
		log.Printf("bot: open shift: %v", err)
		return reply(chatID, "Couldn't start the shift. Please try again.")
	}
	return reply(chatID, fmt.Sprintf("Shift started on %s at reading %d (%s). Drive safe!",
		snap.VehicleName, reading, s.StartedAt.Format("15:04")))
}

func (r *Router) closeShift(conv *conversation, chatID int64, snap Session, reading int64) Reply {
	sealed, sum, err := r.shifts.Close(snap.ShiftID, reading)
	conv.update(func(sess *Session) { sess.reset() })
	if err != nil {
		if errors.Is(err, shifts.ErrShiftNotFound) {
			return reply(chatID, "That shift no longer exists. Send /status to check where you stand.")
		}
		log.Printf("bot: close shift: %v", err)
		return reply(chatID, "Couldn't end the shift. Please try again.")
	}
	return reply(chatID, fmt.Sprintf("Shift complete on %s: %d km driven in %s (end reading %d).",
		r.vehicleName(sealed.VehicleID), sum.Distance, sum.Duration.Truncate(time.Minute), reading))
}

// --- Location ---

func (r *Router) handleLocation(ev Event, driver store.Driver, bound bool) Reply {
	// A conversation linked to a vehicle reports that vehicle's own position.
	if v, ok := r.vehicles.ByChat(ev.ChatID); ok {
		return r.updateVehicleLocation(ev, v)
	}
	if !bound {
		return reply(ev.ChatID, "This chat isn't registered. Open your registration link to get started.")
	}

	active, ok := r.shifts.Active(driver.ID)
	if !ok {
		return reply(ev.ChatID, "Location received.")
	}
	v, ok := r.vehicles.Get(active.VehicleID)
	if !ok {
		log.Printf("bot: location for shift %s references unknown vehicle %s", active.ID, active.VehicleID)
		return reply(ev.ChatID, "Location received.")
	}
	return r.updateVehicleLocation(ev, v)
}

func (r *Router) updateVehicleLocation(ev Event, v store.Vehicle) Reply {
	now := time.Now()
	lat, lon := ev.Lat, ev.Lon
	v.LastLat = &lat
	v.LastLon = &lon
	v.LastSeenAt = &now
	r.vehicles.Put(v)

	r.emitter.EmitVehicleLocation(v.ID, lat, lon)
	return reply(ev.ChatID, "Location updated for "+v.Name+".")
}

func flowLabel(flow string) string {
	switch flow {
	case FlowScanningCode:
		return "a vehicle scan"
	case FlowInspection:
		return "an inspection"
	case FlowAwaitStartReading, FlowAwaitEndReading, FlowManualReading:
		return "a reading entry"
	}
	return "a flow"
}
