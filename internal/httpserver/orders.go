package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
	ordersvc "marketplace-orders/internal/service/order"
)

const defaultPageLimit = 20

// orderPayload is an order as rendered to clients, with its display label
// and the statuses the caller may move it to.
type orderPayload struct {
	domain.Order
	StatusLabel  string          `json:"statusLabel"`
	StatusSlug   string          `json:"statusSlug"`
	NextStatuses []domain.Status `json:"nextStatuses"`
}

type orderList struct {
	Orders []orderPayload `json:"orders"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

func (h *handlers) payload(c *gin.Context, o *domain.Order) *orderPayload {
	if o == nil {
		return nil
	}
	next := []domain.Status{}
	if a, ok := actorFrom(c.Request.Context()); ok {
		if targets := h.orders.Targets(*o, a.Role); targets != nil {
			next = targets
		}
	}
	return &orderPayload{
		Order:        *o,
		StatusLabel:  o.Status.Label(),
		StatusSlug:   o.Status.Slug(),
		NextStatuses: next,
	}
}

type createOrderRequest struct {
	Cart            domain.Cart     `json:"cart"`
	Customer        domain.Customer `json:"customer"`
	PaymentMethod   string          `json:"paymentMethod"`
	ShippingAddress domain.Address  `json:"shippingAddress"`
	Discount        decimal.Decimal `json:"discount"`
}

func (h *handlers) createOrder(c *gin.Context) {
	var req createOrderRequest
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

	o, err := h.orders.CreateOrder(c.Request.Context(), ordersvc.CreateInput{
		Cart:            req.Cart,
		Customer:        req.Customer,
		PaymentMethod:   method,
		ShippingAddress: req.ShippingAddress,
		Discount:        req.Discount,
	})
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusCreated, h.payload(c, o))
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.payload(c, o))
}

type confirmPaymentRequest struct {
	Reference string `json:"reference"`
}

func (h *handlers) confirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	o, err := h.orders.ConfirmPayment(c.Request.Context(), c.Param("id"), req.Reference)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.payload(c, o))
}

type transitionRequest struct {
	Status           string `json:"status" binding:"required"`
	Note             string `json:"note"`
	TrackingNumber   string `json:"trackingNumber"`
	ShippingProvider string `json:"shippingProvider"`
}

func (h *handlers) transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	target, ok := domain.ParseStatus(req.Status)
	if !ok {
		writeError(c, h.logger, domain.Invalid("status", "unknown status "+strconv.Quote(req.Status)), nil)
		return
	}
	a, _ := actorFrom(c.Request.Context())
	o, err := h.orders.Transition(c.Request.Context(), c.Param("id"), target, a.Role, ordersvc.TransitionOptions{
		Note:             req.Note,
		TrackingNumber:   req.TrackingNumber,
		ShippingProvider: req.ShippingProvider,
	})
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.payload(c, o))
}

type discountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *handlers) applyDiscount(c *gin.Context) {
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	o, err := h.orders.ApplyDiscount(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.payload(c, o))
}

// filterFromQuery reads status, q, vendorId, customerId, offset and limit.
// An unrecognized status means no status filter.
func filterFromQuery(c *gin.Context) (domain.OrderFilter, error) {
	f := domain.OrderFilter{
		SearchText: strings.TrimSpace(c.Query("q")),
		VendorID:   strings.TrimSpace(c.Query("vendorId")),
		CustomerID: strings.TrimSpace(c.Query("customerId")),
		Limit:      defaultPageLimit,
	}
	if st, ok := domain.ParseStatus(c.Query("status")); ok {
		f.Status = &st
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, domain.Invalid("offset", "must be an integer")
		}
		f.Offset = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, domain.Invalid("limit", "must be an integer")
		}
		f.Limit = n
	}
	return f, nil
}

func (h *handlers) list(c *gin.Context, f domain.OrderFilter) {
	res, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	out := orderList{
		Orders: make([]orderPayload, 0, len(res.Orders)),
		Total:  res.Total,
		Offset: f.Offset,
		Limit:  f.Limit,
	}
	for i := range res.Orders {
		out.Orders = append(out.Orders, *h.payload(c, &res.Orders[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) listOrders(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	h.list(c, f)
}

func (h *handlers) vendorOrders(c *gin.Context) {
	vendorID, ok := vendorScope(c)
	if !ok {
		return
	}
	f, err := filterFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	f.VendorID = vendorID
	h.list(c, f)
}

func (h *handlers) customerOrders(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	a, _ := actorFrom(c.Request.Context())
	f.CustomerID = a.ID
	f.VendorID = ""
	h.list(c, f)
}

type summaryEntry struct {
	Status domain.Status `json:"status"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
}

func (h *handlers) summary(c *gin.Context) {
	counts, err := h.orders.SummaryByStatus(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	out := make([]summaryEntry, 0, len(domain.Statuses))
	for _, st := range domain.Statuses {
		out = append(out, summaryEntry{Status: st, Label: st.Label(), Count: counts[st]})
	}
	c.JSON(http.StatusOK, gin.H{"summary": out})
}

// vendorScope resolves the vendor a request is about: the caller for a
// vendor, the vendorId query parameter for an admin.
func vendorScope(c *gin.Context) (string, bool) {
	a, _ := actorFrom(c.Request.Context())
	if a.Role == domain.RoleVendor {
		if a.ID == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "missing "+headerActorID+" header")
			return "", false
		}
		return a.ID, true
	}
	id := strings.TrimSpace(c.Query("vendorId"))
	if id == "" {
		badRequest(c, "vendorId query parameter is required")
		return "", false
	}
	return id, true
}
