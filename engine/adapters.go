package engine

import "time"

// botEmitter adapts the engine's EventBus to the bot.EventEmitter interface.
type botEmitter struct {
	bus *EventBus
}

func (e *botEmitter) EmitDriverRegistered(driverID string, chatID int64, rebound bool) {
	e.bus.Emit(Event{Type: EventDriverRegistered, Payload: DriverRegisteredEvent{
		DriverID: driverID, ChatID: chatID, Rebound: rebound,
	}})
}

func (e *botEmitter) EmitVehicleRegistered(vehicleID string, chatID int64, created bool) {
	e.bus.Emit(Event{Type: EventVehicleRegistered, Payload: VehicleRegisteredEvent{
		VehicleID: vehicleID, ChatID: chatID, Created: created,
	}})
}

func (e *botEmitter) EmitVehicleLocation(vehicleID string, lat, lon float64) {
	e.bus.Emit(Event{Type: EventVehicleLocation, Payload: VehicleLocationEvent{
		VehicleID: vehicleID, Lat: lat, Lon: lon,
	}})
}

// shiftEmitter adapts the engine's EventBus to the shifts.EventEmitter interface.
type shiftEmitter struct {
	bus *EventBus
}

func (e *shiftEmitter) EmitShiftOpened(shiftID, driverID, vehicleID string, startReading int64, startedAt time.Time) {
	e.bus.Emit(Event{Type: EventShiftOpened, Payload: ShiftOpenedEvent{
		ShiftID: shiftID, DriverID: driverID, VehicleID: vehicleID,
		StartReading: startReading, StartedAt: startedAt,
	}})
}

func (e *shiftEmitter) EmitShiftClosed(shiftID, driverID, vehicleID string, endReading, distance int64, duration time.Duration) {
	e.bus.Emit(Event{Type: EventShiftClosed, Payload: ShiftClosedEvent{
		ShiftID: shiftID, DriverID: driverID, VehicleID: vehicleID,
		EndReading: endReading, Distance: distance, Duration: duration,
	}})
}
