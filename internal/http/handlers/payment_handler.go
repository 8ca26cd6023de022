// README: Payment handlers: create provider order, verify confirmation, report failure.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetrent/internal/http/middleware"
	"fleetrent/internal/modules/payment"
	"fleetrent/internal/types"
)

type Payments interface {
	CreateOrder(ctx context.Context, actor types.Actor, invoiceID types.ID) (*payment.Order, error)
	Verify(ctx context.Context, cmd payment.VerifyCommand) (*payment.Receipt, error)
	ReportFailure(ctx context.Context, actor types.Actor, invoiceID types.ID, reason string) error
}

type PaymentHandler struct {
	payments Payments
}

func NewPaymentHandler(payments Payments) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createOrderReq struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.payments.CreateOrder(c.Request.Context(), middleware.Actor(c), types.ID(req.InvoiceID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, order)
}

type verifyReq struct {
	InvoiceID         string `json:"invoice_id" binding:"required"`
	ProviderOrderID   string `json:"provider_order_id" binding:"required"`
	ProviderPaymentID string `json:"provider_payment_id" binding:"required"`
	ProviderSignature string `json:"provider_signature" binding:"required"`
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	var req verifyReq
	if !bindJSON(c, &req) {
		return
	}
	receipt, err := h.payments.Verify(c.Request.Context(), payment.VerifyCommand{
		InvoiceID:         types.ID(req.InvoiceID),
		ProviderOrderID:   req.ProviderOrderID,
		ProviderPaymentID: req.ProviderPaymentID,
		ProviderSignature: req.ProviderSignature,
		Actor:             middleware.Actor(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, receipt)
}

type failureReq struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
	Reason    string `json:"reason" binding:"max=500"`
}

func (h *PaymentHandler) ReportFailure(c *gin.Context) {
	var req failureReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.payments.ReportFailure(c.Request.Context(), middleware.Actor(c), types.ID(req.InvoiceID), req.Reason); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"invoice_id": req.InvoiceID, "payment_status": "failed"})
}
