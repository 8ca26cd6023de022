// README: Booking aggregate, status definitions and the lifecycle transition table.
package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"fleetrent/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusReserved  Status = "reserved"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusReturned  Status = "returned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Booking struct {
	ID            types.ID
	CustomerID    types.ID
	VehicleTypeID types.ID
	// AssignedVehicleID stays nil until the pickup handover activates the booking.
	AssignedVehicleID *types.ID
	PickupHubID       types.ID
	ReturnHubID       types.ID
	PickupAt          time.Time
	ReturnAt          time.Time
	AddonIDs          []types.ID
	Status            Status
	StatusVersion     int
	EstimatedAmount   decimal.Decimal
	CancelReason      *string
	CreatedAt         time.Time
	ConfirmedAt       *time.Time
	ActivatedAt       *time.Time
	ReturnedAt        *time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
}

// Event is one row of the append-only status audit trail.
type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorRole  types.Role
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the booking lifecycle as code.
var AllowedTransitions = map[Status][]Status{
	StatusReserved:  {StatusConfirmed, StatusActive, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCancelled},
	StatusActive:    {StatusReturned},
	StatusReturned:  {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an *types.InvalidTransitionError when from -> to is not allowed.
func CheckTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return &types.InvalidTransitionError{From: string(from), To: string(to)}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Holding reports whether the booking still claims fleet capacity.
func (s Status) Holding() bool {
	return s == StatusReserved || s == StatusConfirmed || s == StatusActive
}

// Transition is a guarded compare-and-swap of a booking's status.
type Transition struct {
	BookingID types.ID
	From      Status
	To        Status
	Version   int
	VehicleID *types.ID
	Reason    string
	Actor     types.Actor
	At        time.Time
}

func (t Transition) Event() *Event {
	return &Event{
		BookingID:  t.BookingID,
		FromStatus: t.From,
		ToStatus:   t.To,
		ActorRole:  t.Actor.Role,
		ActorID:    types.IDPtr(t.Actor.ID),
		CreatedAt:  t.At,
	}
}

type Filter struct {
	CustomerID types.ID
	HubID      types.ID
	Status     Status
	Limit      int
}
