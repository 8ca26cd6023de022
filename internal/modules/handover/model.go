// README: Handover records capture vehicle custody changes at pickup and return.
package handover

import (
	"time"

	"fleetrent/internal/modules/booking"
	"fleetrent/internal/types"
)

type Direction string

const (
	DirectionPickup Direction = "pickup"
	DirectionReturn Direction = "return"
)

type FuelStatus string

const (
	FuelFull         FuelStatus = "full"
	FuelThreeQuarter FuelStatus = "3/4"
	FuelHalf         FuelStatus = "1/2"
	FuelQuarter      FuelStatus = "1/4"
	FuelEmpty        FuelStatus = "empty"
)

func (f FuelStatus) Valid() bool {
	switch f {
	case FuelFull, FuelThreeQuarter, FuelHalf, FuelQuarter, FuelEmpty:
		return true
	}
	return false
}

type Handover struct {
	ID          types.ID   `json:"id"`
	BookingID   types.ID   `json:"booking_id"`
	VehicleID   types.ID   `json:"vehicle_id"`
	ProcessedBy types.ID   `json:"processed_by"`
	FuelStatus  FuelStatus `json:"fuel_status"`
	HubID       types.ID   `json:"hub_id"`
	Direction   Direction  `json:"direction"`
	CreatedAt   time.Time  `json:"created_at"`
}

type PickupCommand struct {
	BookingID  types.ID
	VehicleID  types.ID
	FuelStatus FuelStatus
	Actor      types.Actor
}

type ReturnCommand struct {
	BookingID  types.ID
	FuelStatus FuelStatus
	// ReturnHubID defaults to the booking's return hub.
	ReturnHubID types.ID
	Actor       types.Actor
}

// PickupCommit is everything the store applies atomically at pickup.
type PickupCommit struct {
	Handover       Handover
	VehicleVersion int
	Transition     booking.Transition
}

// ReturnCommit parks the vehicle at the return hub and records the handover.
type ReturnCommit struct {
	Handover Handover
}
