// README: Booking handlers: quote, create, read, confirm and cancel.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fleetrent/internal/http/middleware"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/pricing"
	"fleetrent/internal/types"
)

type Quoter interface {
	Quote(ctx context.Context, req pricing.QuoteRequest) (pricing.Quote, error)
}

type Bookings interface {
	Create(ctx context.Context, cmd booking.CreateCommand) (*booking.Booking, pricing.Quote, error)
	Get(ctx context.Context, actor types.Actor, id types.ID) (*booking.Booking, error)
	List(ctx context.Context, actor types.Actor, f booking.Filter) ([]booking.Booking, error)
	Confirm(ctx context.Context, actor types.Actor, id types.ID) (*booking.Booking, error)
	Cancel(ctx context.Context, actor types.Actor, id types.ID, reason string) (*booking.Booking, error)
}

type BookingHandler struct {
	quoter   Quoter
	bookings Bookings
}

func NewBookingHandler(quoter Quoter, bookings Bookings) *BookingHandler {
	return &BookingHandler{quoter: quoter, bookings: bookings}
}

type quoteReq struct {
	VehicleTypeID string    `json:"vehicle_type_id" binding:"required"`
	PickupAt      time.Time `json:"pickup_at" binding:"required"`
	ReturnAt      time.Time `json:"return_at" binding:"required"`
	AddonID       string    `json:"addon_id"`
}

func (r quoteReq) addonIDs() []types.ID {
	if r.AddonID == "" {
		return nil
	}
	return []types.ID{types.ID(r.AddonID)}
}

type createBookingReq struct {
	quoteReq
	PickupHubID string `json:"pickup_hub_id" binding:"required"`
	ReturnHubID string `json:"return_hub_id"`
}

type bookingResp struct {
	ID                types.ID        `json:"id"`
	CustomerID        types.ID        `json:"customer_id"`
	VehicleTypeID     types.ID        `json:"vehicle_type_id"`
	AssignedVehicleID *types.ID       `json:"assigned_vehicle_id"`
	PickupHubID       types.ID        `json:"pickup_hub_id"`
	ReturnHubID       types.ID        `json:"return_hub_id"`
	PickupAt          time.Time       `json:"pickup_at"`
	ReturnAt          time.Time       `json:"return_at"`
	AddonIDs          []types.ID      `json:"addon_ids"`
	Status            booking.Status  `json:"status"`
	EstimatedAmount   decimal.Decimal `json:"estimated_amount"`
	CancelReason      *string         `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func toBookingResp(b *booking.Booking) bookingResp {
	addons := b.AddonIDs
	if addons == nil {
		addons = []types.ID{}
	}
	return bookingResp{
		ID:                b.ID,
		CustomerID:        b.CustomerID,
		VehicleTypeID:     b.VehicleTypeID,
		AssignedVehicleID: b.AssignedVehicleID,
		PickupHubID:       b.PickupHubID,
		ReturnHubID:       b.ReturnHubID,
		PickupAt:          b.PickupAt,
		ReturnAt:          b.ReturnAt,
		AddonIDs:          addons,
		Status:            b.Status,
		EstimatedAmount:   b.EstimatedAmount,
		CancelReason:      b.CancelReason,
		CreatedAt:         b.CreatedAt,
	}
}

func (h *BookingHandler) Quote(c *gin.Context) {
	var req quoteReq
	if !bindJSON(c, &req) {
		return
	}
	q, err := h.quoter.Quote(c.Request.Context(), pricing.QuoteRequest{
		VehicleTypeID: types.ID(req.VehicleTypeID),
		PickupAt:      req.PickupAt.UTC(),
		ReturnAt:      req.ReturnAt.UTC(),
		AddonIDs:      req.addonIDs(),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if !bindJSON(c, &req) {
		return
	}
	b, q, err := h.bookings.Create(c.Request.Context(), booking.CreateCommand{
		Actor:         middleware.Actor(c),
		VehicleTypeID: types.ID(req.VehicleTypeID),
		PickupHubID:   types.ID(req.PickupHubID),
		ReturnHubID:   types.ID(req.ReturnHubID),
		PickupAt:      req.PickupAt.UTC(),
		ReturnAt:      req.ReturnAt.UTC(),
		AddonIDs:      req.addonIDs(),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"booking": toBookingResp(b), "quote": q})
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResp(b))
}

func (h *BookingHandler) List(c *gin.Context) {
	f := booking.Filter{
		CustomerID: types.ID(c.Query("customer_id")),
		HubID:      types.ID(c.Query("hub_id")),
		Status:     booking.Status(c.Query("status")),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	list, err := h.bookings.List(c.Request.Context(), middleware.Actor(c), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]bookingResp, 0, len(list))
	for i := range list {
		out = append(out, toBookingResp(&list[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": out})
}

func (h *BookingHandler) Confirm(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Confirm(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResp(b))
}

type cancelReq struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cancelReq
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), middleware.Actor(c), id, req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResp(b))
}
