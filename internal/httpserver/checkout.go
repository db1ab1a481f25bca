package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace-orders/internal/domain"
	"marketplace-orders/internal/service/checkout"
)

const headerIdempotencyKey = "Idempotency-Key"

type checkoutRequest struct {
	CartID        string               `json:"cartId"`
	Lines         []domain.CartLine    `json:"lineItems"`
	Customer      domain.Customer      `json:"customer"`
	Billing       checkout.BillingInfo `json:"billing"`
	PaymentMethod string               `json:"paymentMethod"`
}

// submitCheckout places and pays an order. A declined or timed out payment
// answers 402 with the cancelled order in the body.
func (h *handlers) submitCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if a, _ := actorFrom(c.Request.Context()); a.Role == domain.RoleCustomer && req.Customer.ID == "" {
		req.Customer.ID = a.ID
	}
	method := domain.PaymentMethod(req.PaymentMethod)
	if m, ok := domain.ParsePaymentMethod(req.PaymentMethod); ok {
		method = m
	}

	o, err := h.checkout.Submit(c.Request.Context(), checkout.SubmitInput{
		IdempotencyKey: strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
		CartID:         strings.TrimSpace(req.CartID),
		Lines:          req.Lines,
		Customer:       req.Customer,
		Billing:        req.Billing,
		PaymentMethod:  method,
	})
	if err != nil {
		writeError(c, h.logger, err, h.payload(c, o))
		return
	}
	c.JSON(http.StatusCreated, h.payload(c, o))
}
