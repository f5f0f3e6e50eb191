package wire

import "time"

// BotEvent is an inbound conversation event delivered by the messaging
// transport. Kind is one of "command", "text", "photo", "location".
type BotEvent struct {
	ChatID   int64   `json:"chat_id"`
	Kind     string  `json:"kind"`
	Command  string  `json:"command,omitempty"`
	Arg      string  `json:"arg,omitempty"` // deep-link token on /start
	Text     string  `json:"text,omitempty"`
	PhotoRef string  `json:"photo_ref,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
}

// BotReply is an outbound message to a conversation. Options, when present,
// are suggested quick answers the transport may render as buttons.
type BotReply struct {
	ChatID  int64    `json:"chat_id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// GatewayHello announces a gateway node on startup.
type GatewayHello struct {
	NodeID   string `json:"node_id"`
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
}

// GatewayHeartbeat is the periodic liveness report.
type GatewayHeartbeat struct {
	NodeID string `json:"node_id"`
	Uptime int64  `json:"uptime"`
}

// ShiftOpened reports a newly opened shift upstream.
type ShiftOpened struct {
	ShiftID      string    `json:"shift_id"`
	DriverID     string    `json:"driver_id"`
	VehicleID    string    `json:"vehicle_id"`
	StartReading int64     `json:"start_reading"`
	StartedAt    time.Time `json:"started_at"`
}

// ShiftClosed reports a sealed shift upstream.
type ShiftClosed struct {
	ShiftID    string `json:"shift_id"`
	DriverID   string `json:"driver_id"`
	VehicleID  string `json:"vehicle_id"`
	EndReading int64  `json:"end_reading"`
	Distance   int64  `json:"distance"`
	Duration   int64  `json:"duration_sec"`
}

// VehicleLocation reports a vehicle position update upstream.
type VehicleLocation struct {
	VehicleID string    `json:"vehicle_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	At        time.Time `json:"at"`
}
