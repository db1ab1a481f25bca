// Package checkout turns a cart submission into a paid order, or a
// cancelled one when the payment provider declines or does not answer.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"marketplace-orders/internal/domain"
	"marketplace-orders/internal/payment"
	"marketplace-orders/internal/repository/idempotency"
	ordersvc "marketplace-orders/internal/service/order"
)

// DefaultPaymentTimeout bounds the wait on a provider.
const DefaultPaymentTimeout = 10 * time.Second

type Service struct {
	orders   orderManager
	carts    cartReader
	payments providerLookup
	idem     idempotency.Store
	group    singleflight.Group
	timeout  time.Duration
	tracer   trace.Tracer
	metrics  Recorder
	logger   *zap.Logger
}

type orderManager interface {
	CreateOrder(ctx context.Context, in ordersvc.CreateInput) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, orderID, providerReference string) (*domain.Order, error)
	Transition(ctx context.Context, orderID string, target domain.Status, role domain.Role, opts ordersvc.TransitionOptions) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	RecordChargeReference(ctx context.Context, orderID, providerReference string) (*domain.Order, error)
}

type cartReader interface {
	Get(ctx context.Context, id string) (*domain.Cart, error)
}

type providerLookup interface {
	Lookup(method domain.PaymentMethod) (payment.Provider, error)
}

type Recorder interface {
	Checkout(method domain.PaymentMethod, outcome string)
	PaymentObserved(method domain.PaymentMethod, outcome domain.PaymentOutcome, d time.Duration)
}

type Options struct {
	PaymentTimeout time.Duration
	Tracer         trace.Tracer
	Metrics        Recorder
	Logger         *zap.Logger
}

func New(orders orderManager, carts cartReader, payments providerLookup, idem idempotency.Store, opts Options) *Service {
	s := &Service{
		orders:   orders,
		carts:    carts,
		payments: payments,
		idem:     idem,
		timeout:  opts.PaymentTimeout,
		tracer:   opts.Tracer,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultPaymentTimeout
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("checkout")
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.idem == nil {
		s.idem = idempotency.NewMemory(idempotency.DefaultTTL)
	}
	return s
}

// BillingInfo mirrors the checkout form.
type BillingInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country,omitempty"`
}

func (b BillingInfo) validate() error {
	fields := []struct {
		name, value string
	}{
		{"billing.email", b.Email},
		{"billing.firstName", b.FirstName},
		{"billing.lastName", b.LastName},
		{"billing.address", b.Address},
		{"billing.city", b.City},
		{"billing.state", b.State},
		{"billing.zipCode", b.ZipCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return domain.Invalid(f.name, "required")
		}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(b.Email)); err != nil {
		return domain.Invalid("billing.email", "not a valid address")
	}
	return nil
}

func (b BillingInfo) shippingAddress() domain.Address {
	return domain.Address{
		FirstName:  strings.TrimSpace(b.FirstName),
		LastName:   strings.TrimSpace(b.LastName),
		Line1:      strings.TrimSpace(b.Address),
		City:       strings.TrimSpace(b.City),
		State:      strings.TrimSpace(b.State),
		PostalCode: strings.TrimSpace(b.ZipCode),
		Country:    strings.TrimSpace(b.Country),
	}
}

type SubmitInput struct {
	IdempotencyKey string
	// CartID names a stored cart. Lines are used when it is empty.
	CartID        string
	Lines         []domain.CartLine
	Customer      domain.Customer
	Billing       BillingInfo
	PaymentMethod domain.PaymentMethod
}

type settlement struct {
	order *domain.Order
	err   error
}

// Submit validates the cart and billing details, creates the order, charges
// the provider and settles the order. On a declined or timed out charge the
// cancelled order is returned together with a *domain.PaymentError.
//
// Submissions sharing an idempotency key produce at most one order.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Submit", trace.WithAttributes(
		attribute.String("payment.method", string(in.PaymentMethod)),
		attribute.Bool("checkout.idempotent", in.IdempotencyKey != ""),
	))
	defer span.End()

	order, err := s.submit(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if order != nil {
		span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.status", string(order.Status)))
	}
	return order, err
}

func (s *Service) submit(ctx context.Context, in SubmitInput) (*domain.Order, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		cart, provider, err := s.prepare(ctx, in)
		if err != nil {
			return nil, err
		}
		return s.place(ctx, cart, in, provider, "")
	}

	v, _, _ := s.group.Do(key, func() (interface{}, error) {
		o, err := s.placeOnce(ctx, in, key)
		return settlement{order: o, err: err}, nil
	})
	res := v.(settlement)
	if res.order != nil {
		c := res.order.Clone()
		return &c, res.err
	}
	return nil, res.err
}

// prepare loads the cart and checks everything a new order needs.
func (s *Service) prepare(ctx context.Context, in SubmitInput) (domain.Cart, payment.Provider, error) {
	cart, err := s.resolveCart(ctx, in)
	if err != nil {
		s.metrics.Checkout(in.PaymentMethod, "rejected")
		return domain.Cart{}, nil, err
	}
	if cart.Empty() {
		s.metrics.Checkout(in.PaymentMethod, "rejected")
		return domain.Cart{}, nil, domain.Invalid("cart", "must contain at least one item")
	}
	if err := in.Billing.validate(); err != nil {
		s.metrics.Checkout(in.PaymentMethod, "rejected")
		return domain.Cart{}, nil, err
	}
	provider, err := s.payments.Lookup(in.PaymentMethod)
	if err != nil {
		s.metrics.Checkout(in.PaymentMethod, "rejected")
		return domain.Cart{}, nil, err
	}
	return cart, provider, nil
}

func (s *Service) resolveCart(ctx context.Context, in SubmitInput) (domain.Cart, error) {
	if in.CartID == "" {
		return domain.Cart{Lines: in.Lines}, nil
	}
	if s.carts == nil {
		return domain.Cart{}, domain.Invalid("cartId", "stored carts are not available")
	}
	c, err := s.carts.Get(ctx, in.CartID)
	if err != nil {
		return domain.Cart{}, err
	}
	return *c, nil
}

// placeOnce consults the idempotency store before anything else, so a
// replay never depends on the cart that the first submit already cleared.
func (s *Service) placeOnce(ctx context.Context, in SubmitInput, key string) (*domain.Order, error) {
	existing, err := s.idem.Reserve(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		return s.replay(ctx, existing)
	}

	var order *domain.Order
	cart, provider, err := s.prepare(ctx, in)
	if err == nil {
		order, err = s.place(ctx, cart, in, provider, key)
	}
	if order == nil {
		if rerr := s.idem.Release(context.WithoutCancel(ctx), key); rerr != nil {
			s.logger.Warn("release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
	}
	return order, err
}

func (s *Service) replay(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order for replayed checkout: %w", err)
	}
	s.metrics.Checkout(o.PaymentMethod, "replayed")
	switch {
	case o.Status == domain.StatusAwaitingPayment:
		return o, domain.ErrCheckoutInProgress
	case o.Status == domain.StatusCancelled && o.PaymentReference != "":
		return o, &domain.PaymentError{
			OrderID:        o.ID,
			Method:         o.PaymentMethod,
			Outcome:        domain.PaymentSucceeded,
			Reason:         "charge arrived after the order was cancelled",
			Reference:      o.PaymentReference,
			RefundRequired: true,
		}
	case o.Status == domain.StatusCancelled:
		return o, &domain.PaymentError{
			OrderID: o.ID,
			Method:  o.PaymentMethod,
			Outcome: domain.PaymentFailed,
			Reason:  "checkout was already settled without payment",
		}
	}
	return o, nil
}

func (s *Service) place(ctx context.Context, cart domain.Cart, in SubmitInput, provider payment.Provider, key string) (*domain.Order, error) {
	customer := in.Customer
	if strings.TrimSpace(customer.Email) == "" {
		customer.Email = strings.TrimSpace(in.Billing.Email)
	}
	if strings.TrimSpace(customer.Name) == "" {
		customer.Name = strings.TrimSpace(in.Billing.FirstName + " " + in.Billing.LastName)
	}
	if strings.TrimSpace(customer.ID) == "" {
		customer.ID = strings.ToLower(customer.Email)
	}

	order, err := s.orders.CreateOrder(ctx, ordersvc.CreateInput{
		Cart:            cart,
		Customer:        customer,
		PaymentMethod:   in.PaymentMethod,
		ShippingAddress: in.Billing.shippingAddress(),
		IdempotencyKey:  key,
	})
	if err != nil {
		s.metrics.Checkout(in.PaymentMethod, "rejected")
		return nil, err
	}
	bound := true
	if key != "" {
		if err := s.idem.Bind(ctx, key, order.ID); err != nil {
			bound = false
			s.logger.Warn("bind idempotency key", zap.String("key", key), zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	trace.SpanFromContext(ctx).AddEvent("order.created", trace.WithAttributes(attribute.String("order.id", order.ID)))

	settled, err := s.settle(ctx, provider, order)

	// A key left pending would answer every replay with ErrCheckoutInProgress
	// until it expires.
	if !bound {
		if berr := s.idem.Bind(context.WithoutCancel(ctx), key, order.ID); berr != nil {
			s.logger.Error("bind idempotency key after settlement", zap.String("key", key), zap.String("order_id", order.ID), zap.Error(berr))
		}
	}
	return settled, err
}

// settle charges the provider and moves the order out of AwaitingPayment.
func (s *Service) settle(ctx context.Context, provider payment.Provider, order *domain.Order) (*domain.Order, error) {
	method := order.PaymentMethod
	res := s.charge(ctx, provider, order)

	// Settlement must finish even if the caller goes away.
	settleCtx := context.WithoutCancel(ctx)
	if res.Outcome == domain.PaymentSucceeded {
		ref := res.Reference
		if ref == "" {
			ref = "ref-" + order.ID
		}
		paid, err := s.orders.ConfirmPayment(settleCtx, order.ID, ref)
		var invalid *domain.InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			return s.lateCharge(settleCtx, order, ref, invalid.From)
		case err != nil:
			s.metrics.Checkout(method, "settle_error")
			return order, fmt.Errorf("confirm payment for %s: %w", order.ID, err)
		}
		s.metrics.Checkout(method, string(domain.PaymentSucceeded))
		return paid, nil
	}

	cancelled, err := s.orders.Transition(settleCtx, order.ID, domain.StatusCancelled, domain.RoleSystem, ordersvc.TransitionOptions{
		Note: fmt.Sprintf("payment %s: %s", res.Outcome, res.Reason),
	})
	if err != nil {
		s.logger.Error("cancel unpaid order", zap.String("order_id", order.ID), zap.Error(err))
		s.metrics.Checkout(method, "settle_error")
		return order, fmt.Errorf("cancel unpaid order %s: %w", order.ID, err)
	}
	s.metrics.Checkout(method, string(res.Outcome))
	return cancelled, &domain.PaymentError{
		OrderID: order.ID,
		Method:  method,
		Outcome: res.Outcome,
		Reason:  res.Reason,
	}
}

// lateCharge handles a successful charge for an order that left
// AwaitingPayment while the provider was still working. The reference is
// stored on the order and the caller is told a refund is owed.
func (s *Service) lateCharge(ctx context.Context, order *domain.Order, ref string, status domain.Status) (*domain.Order, error) {
	s.metrics.Checkout(order.PaymentMethod, "refund_required")
	s.logger.Error("charge succeeded after order left awaiting payment",
		zap.String("order_id", order.ID),
		zap.String("reference", ref),
		zap.String("status", string(status)),
	)

	current, err := s.orders.RecordChargeReference(ctx, order.ID, ref)
	if err != nil {
		s.logger.Error("record late charge", zap.String("order_id", order.ID), zap.String("reference", ref), zap.Error(err))
		if current, err = s.orders.GetOrder(ctx, order.ID); err != nil {
			current = order
		}
	}
	return current, &domain.PaymentError{
		OrderID:        order.ID,
		Method:         order.PaymentMethod,
		Outcome:        domain.PaymentSucceeded,
		Reason:         fmt.Sprintf("charge arrived after the order became %s", status),
		Reference:      ref,
		RefundRequired: true,
	}
}

type chargeReply struct {
	res payment.Result
	err error
}

// charge waits for the provider at most s.timeout, even when the provider
// ignores its context.
func (s *Service) charge(ctx context.Context, provider payment.Provider, order *domain.Order) payment.Result {
	ctx, span := s.tracer.Start(ctx, "payment.Charge", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("payment.method", string(order.PaymentMethod)),
		attribute.String("payment.amount", order.TotalAmount.StringFixed(2)),
	))
	defer span.End()

	chargeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := payment.ChargeRequest{
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Method:   order.PaymentMethod,
		Metadata: map[string]string{
			"order_id":    order.ID,
			"customer_id": order.CustomerID,
			"vendor_id":   order.VendorID,
		},
	}

	start := time.Now()
	replies := make(chan chargeReply, 1)
	go func() {
		r, err := provider.Charge(chargeCtx, req)
		replies <- chargeReply{res: r, err: err}
	}()

	var res payment.Result
	select {
	case rep := <-replies:
		res = rep.res
		if rep.err != nil {
			res = payment.Result{Outcome: domain.PaymentFailed, Reason: rep.err.Error()}
			if errors.Is(rep.err, context.DeadlineExceeded) || errors.Is(rep.err, context.Canceled) {
				res.Outcome = domain.PaymentTimedOut
			}
		}
	case <-chargeCtx.Done():
		res = payment.Result{Outcome: domain.PaymentTimedOut, Reason: "no answer from provider: " + chargeCtx.Err().Error()}
	}
	switch res.Outcome {
	case domain.PaymentSucceeded, domain.PaymentFailed, domain.PaymentTimedOut:
	default:
		res = payment.Result{Outcome: domain.PaymentFailed, Reason: fmt.Sprintf("unknown provider outcome %q", res.Outcome)}
	}

	elapsed := time.Since(start)
	s.metrics.PaymentObserved(order.PaymentMethod, res.Outcome, elapsed)
	span.SetAttributes(attribute.String("payment.outcome", string(res.Outcome)))
	if res.Outcome != domain.PaymentSucceeded {
		span.SetStatus(codes.Error, res.Reason)
	}
	s.logger.Info("payment settled",
		zap.String("order_id", order.ID),
		zap.String("method", string(order.PaymentMethod)),
		zap.String("outcome", string(res.Outcome)),
		zap.Duration("elapsed", elapsed),
	)
	return res
}

type nopRecorder struct{}

func (nopRecorder) Checkout(domain.PaymentMethod, string)                                      {}
func (nopRecorder) PaymentObserved(domain.PaymentMethod, domain.PaymentOutcome, time.Duration) {}
