package engine

import "time"

// EventType identifies the kind of event emitted by the Engine.
type EventType int

const (
	// Registration events
	EventDriverRegistered EventType = iota + 1
	EventVehicleRegistered

	// Shift events
	EventShiftOpened
	EventShiftClosed

	// Fleet events
	EventVehicleLocation
	EventDispatchQueued
)

// Event is the envelope emitted by the Engine's EventBus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   interface{}
}

// DriverRegisteredEvent is emitted when a driver links a conversation.
type DriverRegisteredEvent struct {
	DriverID string `json:"driver_id"`
	ChatID   int64  `json:"chat_id"`
	Rebound  bool   `json:"rebound"` // a previous conversation link was replaced
}

// VehicleRegisteredEvent is emitted when a vehicle links a conversation.
type VehicleRegisteredEvent struct {
	VehicleID string `json:"vehicle_id"`
	ChatID    int64  `json:"chat_id"`
	Created   bool   `json:"created"` // the vehicle record was auto-created
}

// ShiftOpenedEvent is emitted when a driver starts a shift.
type ShiftOpenedEvent struct {
	ShiftID      string    `json:"shift_id"`
	DriverID     string    `json:"driver_id"`
	VehicleID    string    `json:"vehicle_id"`
	StartReading int64     `json:"start_reading"`
	StartedAt    time.Time `json:"started_at"`
}

// ShiftClosedEvent is emitted when a shift is sealed.
type ShiftClosedEvent struct {
	ShiftID    string        `json:"shift_id"`
	DriverID   string        `json:"driver_id"`
	VehicleID  string        `json:"vehicle_id"`
	EndReading int64         `json:"end_reading"`
	Distance   int64         `json:"distance"`
	Duration   time.Duration `json:"duration"`
}

// VehicleLocationEvent is emitted when a position report updates a vehicle.
type VehicleLocationEvent struct {
	VehicleID string  `json:"vehicle_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// DispatchQueuedEvent is emitted when an operator sends a dispatch note to a
// vehicle's conversation.
type DispatchQueuedEvent struct {
	VehicleID string `json:"vehicle_id"`
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
}
