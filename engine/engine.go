package engine

import (
	"fmt"

	"fleetbot/bot"
	"fleetbot/config"
	"fleetbot/recognize"
	"fleetbot/shifts"
	"fleetbot/store"
)

// LogFunc is the logging callback signature.
type LogFunc func(format string, args ...interface{})

// Engine centralizes all business logic and orchestrates subsystems.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.Store
	logFn      LogFunc
	debugFn    LogFunc

	shiftMgr *shifts.Manager
	router   *bot.Router

	Events   *EventBus
	stopChan chan struct{}
}

// Config holds the parameters needed to create an Engine.
type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.Store
	LogFunc    LogFunc
	Debug      bool
}

// New creates a new Engine. Call Start() to initialize and wire subsystems.
func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = func(string, ...interface{}) {}
	}
	debugFn := LogFunc(func(string, ...interface{}) {})
	if c.Debug {
		debugFn = logFn
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		logFn:      logFn,
		debugFn:    debugFn,
		Events:     NewEventBus(),
		stopChan:   make(chan struct{}),
	}
}

// Start creates all managers and wires them together.
func (e *Engine) Start() {
	e.shiftMgr = shifts.NewManager(e.db.Shifts, &shiftEmitter{bus: e.Events})

	// Recognition backends are optional; an unset URL disables the capability
	// and the router falls back to manual entry.
	var codes recognize.CodeDecoder
	if e.cfg.Recognition.CodeURL != "" {
		codes = recognize.NewHTTPCodeDecoder(e.cfg.Recognition.CodeURL)
	}
	var gauge recognize.GaugeReader
	if e.cfg.Recognition.GaugeURL != "" {
		gauge = recognize.NewHTTPGaugeReader(e.cfg.Recognition.GaugeURL)
	}

	e.router = bot.NewRouter(bot.Config{
		Drivers:            e.db.Drivers,
		Vehicles:           e.db.Vehicles,
		Shifts:             e.shiftMgr,
		Codes:              codes,
		Gauge:              gauge,
		Emitter:            &botEmitter{bus: e.Events},
		CancelWord:         e.cfg.Bot.CancelWord,
		RecognitionTimeout: e.cfg.Recognition.Timeout,
	})

	e.logFn("Engine started: node=%s scan=%t gauge=%t", e.cfg.NodeID, codes != nil, gauge != nil)
}

// Stop shuts down the engine.
func (e *Engine) Stop() {
	select {
	case <-e.stopChan:
	default:
		close(e.stopChan)
	}
	e.logFn("Engine stopped")
}

// Dispatch queues a dispatch note for a vehicle's conversation. It fails if
// the vehicle has no linked conversation to deliver to.
func (e *Engine) Dispatch(vehicleID, text string) error {
	v, ok := e.db.Vehicles.Get(vehicleID)
	if !ok {
		return fmt.Errorf("dispatch to vehicle %s: not found", vehicleID)
	}
	if v.ChatID == nil {
		return fmt.Errorf("dispatch to vehicle %s: no linked conversation", vehicleID)
	}
	e.Events.Emit(Event{Type: EventDispatchQueued, Payload: DispatchQueuedEvent{
		VehicleID: v.ID, ChatID: *v.ChatID, Text: text,
	}})
	return nil
}

// DB returns the record store handle.
func (e *Engine) DB() *store.Store { return e.db }

// AppConfig returns the app config.
func (e *Engine) AppConfig() *config.Config { return e.cfg }

// ConfigPath returns the config file path.
func (e *Engine) ConfigPath() string { return e.configPath }

// Router returns the conversation router.
func (e *Engine) Router() *bot.Router { return e.router }

// ShiftManager returns the shift lifecycle manager.
func (e *Engine) ShiftManager() *shifts.Manager { return e.shiftMgr }
