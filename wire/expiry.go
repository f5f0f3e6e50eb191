package wire

import "time"

// Default TTLs by message category. Conversation traffic goes stale quickly;
// a reply delivered minutes late would land in a flow that no longer exists.
var defaultTTLs = map[string]time.Duration{
	TypeGatewayHeartbeat: 90 * time.Second,
	TypeGatewayHello:     5 * time.Minute,

	TypeBotEvent: 2 * time.Minute,
	TypeBotReply: 2 * time.Minute,

	TypeVehicleLocation: 10 * time.Minute,

	TypeShiftOpened: 30 * time.Minute,
	TypeShiftClosed: 30 * time.Minute,
}

// FallbackTTL is used when no specific TTL is configured.
const FallbackTTL = 10 * time.Minute

// DefaultTTLFor returns the default TTL for a message type.
func DefaultTTLFor(msgType string) time.Duration {
	if ttl, ok := defaultTTLs[msgType]; ok {
		return ttl
	}
	return FallbackTTL
}

// IsExpired returns true if the envelope has passed its expiry time.
func IsExpired(env *Envelope) bool {
	if env.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(env.ExpiresAt)
}

// IsExpiredHeader checks expiry using only the raw header.
func IsExpiredHeader(hdr *RawHeader) bool {
	if hdr.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(hdr.ExpiresAt)
}
