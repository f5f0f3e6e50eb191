package wire

import (
	"encoding/json"
	"log"
)

// FilterFunc returns true if the message should be processed.
type FilterFunc func(hdr *RawHeader) bool

// MessageHandler defines callbacks for all gateway message types.
// Embed NoOpHandler and override only the methods you need.
type MessageHandler interface {
	HandleBotEvent(env *Envelope, p *BotEvent)
	HandleBotReply(env *Envelope, p *BotReply)
	HandleGatewayHello(env *Envelope, p *GatewayHello)
	HandleGatewayHeartbeat(env *Envelope, p *GatewayHeartbeat)
	HandleShiftOpened(env *Envelope, p *ShiftOpened)
	HandleShiftClosed(env *Envelope, p *ShiftClosed)
	HandleVehicleLocation(env *Envelope, p *VehicleLocation)
}

// Ingestor performs two-phase decode and dispatches to a MessageHandler.
type Ingestor struct {
	handler MessageHandler
	filter  FilterFunc
}

// NewIngestor creates an ingestor with the given handler and filter.
func NewIngestor(handler MessageHandler, filter FilterFunc) *Ingestor {
	return &Ingestor{
		handler: handler,
		filter:  filter,
	}
}

// HandleRaw is the entry point for raw message bytes from the messaging layer.
func (ing *Ingestor) HandleRaw(data []byte) {
	// Phase 1: decode routing header only
	var hdr RawHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		log.Printf("wire: header decode error: %v", err)
		return
	}

	if IsExpiredHeader(&hdr) {
		log.Printf("wire: dropping expired message %s (type=%s)", hdr.ID, hdr.Type)
		return
	}

	if ing.filter != nil && !ing.filter(&hdr) {
		return
	}

	// Phase 2: full envelope decode
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("wire: envelope decode error: %v", err)
		return
	}

	switch env.Type {
	case TypeBotEvent:
		decodeAndCall(ing.handler.HandleBotEvent, &env)
	case TypeBotReply:
		decodeAndCall(ing.handler.HandleBotReply, &env)
	case TypeGatewayHello:
		decodeAndCall(ing.handler.HandleGatewayHello, &env)
	case TypeGatewayHeartbeat:
		decodeAndCall(ing.handler.HandleGatewayHeartbeat, &env)
	case TypeShiftOpened:
		decodeAndCall(ing.handler.HandleShiftOpened, &env)
	case TypeShiftClosed:
		decodeAndCall(ing.handler.HandleShiftClosed, &env)
	case TypeVehicleLocation:
		decodeAndCall(ing.handler.HandleVehicleLocation, &env)
	default:
		log.Printf("wire: unknown message type: %s", env.Type)
	}
}

// decodeAndCall unmarshals the payload and calls the handler method.
func decodeAndCall[T any](fn func(*Envelope, *T), env *Envelope) {
	var p T
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Printf("wire: payload decode error for %s: %v", env.Type, err)
		return
	}
	fn(env, &p)
}
