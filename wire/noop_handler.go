package wire

// NoOpHandler implements MessageHandler with empty methods.
// Embed it to implement only the callbacks you care about.
type NoOpHandler struct{}

func (NoOpHandler) HandleBotEvent(*Envelope, *BotEvent)                 {}
func (NoOpHandler) HandleBotReply(*Envelope, *BotReply)                 {}
func (NoOpHandler) HandleGatewayHello(*Envelope, *GatewayHello)         {}
func (NoOpHandler) HandleGatewayHeartbeat(*Envelope, *GatewayHeartbeat) {}
func (NoOpHandler) HandleShiftOpened(*Envelope, *ShiftOpened)           {}
func (NoOpHandler) HandleShiftClosed(*Envelope, *ShiftClosed)           {}
func (NoOpHandler) HandleVehicleLocation(*Envelope, *VehicleLocation)   {}
