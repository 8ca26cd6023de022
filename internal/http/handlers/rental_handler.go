// README: Staff handover and return handlers, plus invoice lookup.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleetrent/internal/http/middleware"
	"fleetrent/internal/modules/handover"
	"fleetrent/internal/modules/invoice"
	"fleetrent/internal/types"
)

type Handovers interface {
	Pickup(ctx context.Context, cmd handover.PickupCommand) (*handover.Handover, error)
	Return(ctx context.Context, cmd handover.ReturnCommand) (*handover.Handover, error)
	List(ctx context.Context, actor types.Actor, bookingID types.ID) ([]handover.Handover, error)
}

type Invoices interface {
	Generate(ctx context.Context, cmd invoice.GenerateCommand) (*invoice.Invoice, error)
	GetByBooking(ctx context.Context, actor types.Actor, bookingID types.ID) (*invoice.Invoice, error)
}

type RentalHandler struct {
	handovers Handovers
	invoices  Invoices
}

func NewRentalHandler(handovers Handovers, invoices Invoices) *RentalHandler {
	return &RentalHandler{handovers: handovers, invoices: invoices}
}

type handoverReq struct {
	VehicleID  string `json:"vehicle_id" binding:"required"`
	FuelStatus string `json:"fuel_status" binding:"required"`
}

func (h *RentalHandler) Handover(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req handoverReq
	if !bindJSON(c, &req) {
		return
	}
	ho, err := h.handovers.Pickup(c.Request.Context(), handover.PickupCommand{
		BookingID:  id,
		VehicleID:  types.ID(req.VehicleID),
		FuelStatus: handover.FuelStatus(req.FuelStatus),
		Actor:      middleware.Actor(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, ho)
}

type returnReq struct {
	ActualReturnAt time.Time `json:"actual_return_at" binding:"required"`
	// FuelStatus records the return handover. It may be omitted only on a
	// retry after the handover was recorded.
	FuelStatus  string `json:"fuel_status"`
	ReturnHubID string `json:"return_hub_id"`
}

// Return records the return handover (when fuel_status is given) and generates the invoice.
func (h *RentalHandler) Return(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req returnReq
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	actor := middleware.Actor(c)

	var ho *handover.Handover
	if req.FuelStatus != "" {
		var err error
		ho, err = h.handovers.Return(ctx, handover.ReturnCommand{
			BookingID:   id,
			FuelStatus:  handover.FuelStatus(req.FuelStatus),
			ReturnHubID: types.ID(req.ReturnHubID),
			Actor:       actor,
		})
		if err != nil && !errors.Is(err, types.ErrAlreadyHandedOver) {
			writeServiceError(c, err)
			return
		}
	} else {
		recorded, err := h.returnHandover(ctx, actor, id)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		if recorded == nil {
			writeServiceError(c, types.Invalid("fuel_status", "required until the return handover is recorded"))
			return
		}
		ho = recorded
	}

	inv, err := h.invoices.Generate(ctx, invoice.GenerateCommand{
		BookingID:      id,
		ActualReturnAt: req.ActualReturnAt.UTC(),
		Actor:          actor,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"invoice": inv, "handover": ho})
}

func (h *RentalHandler) returnHandover(ctx context.Context, actor types.Actor, bookingID types.ID) (*handover.Handover, error) {
	list, err := h.handovers.List(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Direction == handover.DirectionReturn {
			return &list[i], nil
		}
	}
	return nil, nil
}

func (h *RentalHandler) Handovers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.handovers.List(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if list == nil {
		list = []handover.Handover{}
	}
	writeJSON(c, http.StatusOK, gin.H{"handovers": list})
}

func (h *RentalHandler) Invoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.GetByBooking(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, inv)
}
