package wire

// Message type constants for gateway traffic.
const (
	// Gateway node -> hub (published on the fleet topic)
	TypeGatewayHello     = "gateway.hello"
	TypeGatewayHeartbeat = "gateway.heartbeat"
	TypeShiftOpened      = "shift.opened"
	TypeShiftClosed      = "shift.closed"
	TypeVehicleLocation  = "vehicle.location"

	// Messaging transport <-> bot core
	TypeBotEvent = "bot.event" // inbound conversation event
	TypeBotReply = "bot.reply" // outbound reply to a conversation
)

// Roles for Address.Role.
const (
	RoleGateway = "gateway"
	RoleHub     = "hub"
)

// NodeBroadcast addresses every node.
const NodeBroadcast = "*"

// Protocol version.
const Version = 1
