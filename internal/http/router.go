// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetrent/internal/http/handlers"
	"fleetrent/internal/http/middleware"
	"fleetrent/internal/infra"
	"fleetrent/internal/types"
)

type RouterDeps struct {
	Verifier  infra.TokenVerifier
	Quoter    handlers.Quoter
	Bookings  handlers.Bookings
	Handovers handlers.Handovers
	Invoices  handlers.Invoices
	Payments  handlers.Payments
	Offers    handlers.Offers
	Fleet     handlers.Fleet
	Addons    handlers.Addons
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	staff := middleware.RequireRole(types.RoleStaff, types.RoleAdmin)
	admin := middleware.RequireRole(types.RoleAdmin)
	customer := middleware.RequireRole(types.RoleCustomer)

	api := r.Group("/api/v1", middleware.Auth(deps.Verifier))

	bookingHandler := handlers.NewBookingHandler(deps.Quoter, deps.Bookings)
	api.POST("/quotes", bookingHandler.Quote)
	api.POST("/bookings", customer, bookingHandler.Create)
	api.GET("/bookings", bookingHandler.List)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/confirm", staff, bookingHandler.Confirm)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)

	rentalHandler := handlers.NewRentalHandler(deps.Handovers, deps.Invoices)
	api.POST("/bookings/:id/handover", staff, rentalHandler.Handover)
	api.POST("/bookings/:id/return", staff, rentalHandler.Return)
	api.GET("/bookings/:id/handovers", rentalHandler.Handovers)
	api.GET("/bookings/:id/invoice", rentalHandler.Invoice)

	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	api.POST("/payments/orders", paymentHandler.CreateOrder)
	api.POST("/payments/verify", paymentHandler.Verify)
	api.POST("/payments/failure", paymentHandler.ReportFailure)

	catalogHandler := handlers.NewCatalogHandler(deps.Offers, deps.Fleet, deps.Addons)
	api.GET("/offers", catalogHandler.ListOffers)
	api.POST("/offers", admin, catalogHandler.CreateOffer)
	api.GET("/addons", catalogHandler.ListAddons)
	api.GET("/hubs/:id/vehicles", staff, catalogHandler.HubVehicles)

	return r
}
