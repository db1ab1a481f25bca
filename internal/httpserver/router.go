package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
	cartsvc "marketplace-orders/internal/service/cart"
	"marketplace-orders/internal/service/checkout"
	"marketplace-orders/internal/service/dashboard"
	ordersvc "marketplace-orders/internal/service/order"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in ordersvc.CreateInput) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, orderID, providerReference string) (*domain.Order, error)
	Transition(ctx context.Context, orderID string, target domain.Status, role domain.Role, opts ordersvc.TransitionOptions) (*domain.Order, error)
	ApplyDiscount(ctx context.Context, orderID string, amount decimal.Decimal) (*domain.Order, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) (ordersvc.ListResult, error)
	SummaryByStatus(ctx context.Context) (map[domain.Status]int, error)
	Targets(o domain.Order, role domain.Role) []domain.Status
}

type CheckoutService interface {
	Submit(ctx context.Context, in checkout.SubmitInput) (*domain.Order, error)
}

type CartService interface {
	Create(ctx context.Context, in cartsvc.CreateInput) (*domain.Cart, error)
	Get(ctx context.Context, id string) (*domain.Cart, error)
	Update(ctx context.Context, cartID string, in cartsvc.UpdateInput) (*domain.Cart, error)
}

type DashboardService interface {
	Admin(ctx context.Context) (dashboard.AdminStats, error)
	Vendor(ctx context.Context, vendorID string) (dashboard.VendorStats, error)
}

// ReadyCheck reports whether a backing service is reachable.
type ReadyCheck func(ctx context.Context) error

// Deps groups the services the router exposes.
type Deps struct {
	Orders      OrderService
	Checkout    CheckoutService
	Carts       CartService
	Dashboard   DashboardService
	Metrics     http.Handler
	Tracer      trace.Tracer
	ReadyChecks map[string]ReadyCheck
	CORSOrigins []string
}

func (d Deps) validate() error {
	if d.Orders == nil {
		return errors.New("httpserver: order service is required")
	}
	if d.Checkout == nil {
		return errors.New("httpserver: checkout service is required")
	}
	if d.Carts == nil {
		return errors.New("httpserver: cart service is required")
	}
	if d.Dashboard == nil {
		return errors.New("httpserver: dashboard service is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("httpserver")
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		tracingMiddleware(deps.Tracer),
		accessLogMiddleware(logger),
	)
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", headerActorRole, headerActorID, headerIdempotencyKey, headerRequestID},
			ExposeHeaders:    []string{headerRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.ReadyChecks))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	h := &handlers{
		logger:    logger,
		orders:    deps.Orders,
		checkout:  deps.Checkout,
		carts:     deps.Carts,
		dashboard: deps.Dashboard,
	}

	api := router.Group("/api", actorMiddleware())

	carts := api.Group("/carts", requireRoles(domain.RoleCustomer, domain.RoleAdmin))
	carts.POST("", h.createCart)
	carts.GET("/:id", h.getCart)
	carts.POST("/:id", h.updateCart)

	api.POST("/checkout", requireRoles(domain.RoleCustomer, domain.RoleAdmin), h.submitCheckout)

	orders := api.Group("/orders")
	orders.POST("", requireRoles(domain.RoleCustomer, domain.RoleAdmin, domain.RoleSystem), h.createOrder)
	orders.GET("/:id", requireRoles(domain.RoleCustomer, domain.RoleVendor, domain.RoleAdmin, domain.RoleSystem), h.getOrder)
	orders.POST("/:id/payment", requireRoles(domain.RoleSystem, domain.RoleAdmin), h.confirmPayment)
	orders.POST("/:id/transitions", requireRoles(domain.RoleCustomer, domain.RoleVendor, domain.RoleAdmin, domain.RoleSystem), h.transition)
	orders.POST("/:id/discount", requireRoles(domain.RoleVendor, domain.RoleAdmin), h.applyDiscount)

	admin := api.Group("/admin", requireRoles(domain.RoleAdmin))
	admin.GET("/orders", h.listOrders)
	admin.GET("/orders/summary", h.summary)
	admin.GET("/dashboard", h.adminDashboard)

	vendor := api.Group("/vendor", requireRoles(domain.RoleVendor, domain.RoleAdmin))
	vendor.GET("/orders", h.vendorOrders)
	vendor.GET("/dashboard", h.vendorDashboard)

	customer := api.Group("/customer", requireRoles(domain.RoleCustomer), requireActorID())
	customer.GET("/orders", h.customerOrders)

	return router, nil
}

type handlers struct {
	logger    *zap.Logger
	orders    OrderService
	checkout  CheckoutService
	carts     CartService
	dashboard DashboardService
}
