package shifts

import "time"

// EventEmitter is the interface the shifts package uses to emit events.
type EventEmitter interface {
	EmitShiftOpened(shiftID, driverID, vehicleID string, startReading int64, startedAt time.Time)
	EmitShiftClosed(shiftID, driverID, vehicleID string, endReading, distance int64, duration time.Duration)
}
