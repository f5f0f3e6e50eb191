package messaging

import (
	"log"
	"time"

	"fleetbot/engine"
	"fleetbot/store"
	"fleetbot/wire"
)

// Reporter relays engine events upstream: shift lifecycle and vehicle
// positions to the fleet topic, dispatch notes to the reply sender.
type Reporter struct {
	client *Client
	db     *store.Store
	sender *Sender
	nodeID string
	topic  string

	subID engine.SubscriberID
	bus   *engine.EventBus
}

// NewReporter creates an upstream event reporter.
func NewReporter(client *Client, db *store.Store, sender *Sender, nodeID, fleetTopic string) *Reporter {
	return &Reporter{
		client: client,
		db:     db,
		sender: sender,
		nodeID: nodeID,
		topic:  fleetTopic,
	}
}

// Start subscribes to the engine's event bus.
func (r *Reporter) Start(bus *engine.EventBus) {
	r.bus = bus
	r.subID = bus.SubscribeTypes(r.handle,
		engine.EventShiftOpened,
		engine.EventShiftClosed,
		engine.EventVehicleLocation,
		engine.EventDispatchQueued,
	)
}

// Stop unsubscribes from the event bus.
func (r *Reporter) Stop() {
	if r.bus != nil {
		r.bus.Unsubscribe(r.subID)
	}
}

func (r *Reporter) handle(evt engine.Event) {
	switch p := evt.Payload.(type) {
	case engine.ShiftOpenedEvent:
		r.report(wire.TypeShiftOpened, &wire.ShiftOpened{
			ShiftID:      p.ShiftID,
			DriverID:     p.DriverID,
			VehicleID:    p.VehicleID,
			StartReading: p.StartReading,
			StartedAt:    p.StartedAt,
		})
	case engine.ShiftClosedEvent:
		r.report(wire.TypeShiftClosed, &wire.ShiftClosed{
			ShiftID:    p.ShiftID,
			DriverID:   p.DriverID,
			VehicleID:  p.VehicleID,
			EndReading: p.EndReading,
			Distance:   p.Distance,
			Duration:   int64(p.Duration / time.Second),
		})
	case engine.VehicleLocationEvent:
		r.report(wire.TypeVehicleLocation, &wire.VehicleLocation{
			VehicleID: p.VehicleID,
			Lat:       p.Lat,
			Lon:       p.Lon,
			At:        evt.Timestamp,
		})
	case engine.DispatchQueuedEvent:
		r.sender.Notify(p.ChatID, p.Text)
	}
}

func (r *Reporter) report(msgType string, payload any) {
	env, err := wire.NewEnvelope(msgType,
		wire.Address{Role: wire.RoleHub, Node: r.nodeID},
		wire.Address{Role: wire.RoleHub, Node: wire.NodeBroadcast},
		payload,
	)
	if err != nil {
		log.Printf("reporter: build %s: %v", msgType, err)
		return
	}
	if err := r.client.PublishEnvelope(r.topic, env); err != nil {
		log.Printf("reporter: publish %s: %v, queueing to outbox", msgType, err)
		data, encErr := env.Encode()
		if encErr != nil {
			return
		}
		if _, qErr := r.db.EnqueueOutbox(r.topic, data, msgType); qErr != nil {
			log.Printf("reporter: enqueue outbox: %v", qErr)
		}
	}
}
