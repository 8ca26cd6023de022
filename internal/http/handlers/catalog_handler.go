// README: Offer and fleet inventory handlers.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fleetrent/internal/http/middleware"
	"fleetrent/internal/modules/fleet"
	"fleetrent/internal/modules/offer"
	"fleetrent/internal/modules/pricing"
	"fleetrent/internal/types"
)

type Offers interface {
	List(ctx context.Context) ([]offer.Offer, error)
	Create(ctx context.Context, actor types.Actor, cmd offer.CreateCommand) (*offer.Offer, error)
}

type Fleet interface {
	ListAvailable(ctx context.Context, hubID, vehicleTypeID types.ID) ([]fleet.Vehicle, error)
}

type Addons interface {
	ListAddons(ctx context.Context) ([]pricing.Addon, error)
}

type CatalogHandler struct {
	offers Offers
	fleet  Fleet
	addons Addons
}

func NewCatalogHandler(offers Offers, fleet Fleet, addons Addons) *CatalogHandler {
	return &CatalogHandler{offers: offers, fleet: fleet, addons: addons}
}

func (h *CatalogHandler) ListOffers(c *gin.Context) {
	list, err := h.offers.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if list == nil {
		list = []offer.Offer{}
	}
	writeJSON(c, http.StatusOK, gin.H{"offers": list})
}

type createOfferReq struct {
	Name            string          `json:"name" binding:"required"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	StartsOn        string          `json:"starts_on" binding:"required"`
	EndsOn          string          `json:"ends_on" binding:"required"`
}

func (h *CatalogHandler) CreateOffer(c *gin.Context) {
	var req createOfferReq
	if !bindJSON(c, &req) {
		return
	}
	starts, err := time.Parse(time.DateOnly, req.StartsOn)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid starts_on")
		return
	}
	ends, err := time.Parse(time.DateOnly, req.EndsOn)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid ends_on")
		return
	}
	o, err := h.offers.Create(c.Request.Context(), middleware.Actor(c), offer.CreateCommand{
		Name:            req.Name,
		DiscountPercent: req.DiscountPercent,
		StartsOn:        starts,
		EndsOn:          ends,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *CatalogHandler) ListAddons(c *gin.Context) {
	list, err := h.addons.ListAddons(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, a := range list {
		out = append(out, gin.H{"id": a.ID, "name": a.Name, "price_per_day": a.PricePerDay})
	}
	writeJSON(c, http.StatusOK, gin.H{"addons": out})
}

func (h *CatalogHandler) HubVehicles(c *gin.Context) {
	hubID, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.fleet.ListAvailable(c.Request.Context(), hubID, types.ID(c.Query("vehicle_type_id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if list == nil {
		list = []fleet.Vehicle{}
	}
	writeJSON(c, http.StatusOK, gin.H{"vehicles": list})
}
