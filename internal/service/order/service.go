package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
	"marketplace-orders/internal/events"
	"marketplace-orders/internal/policy"
	"marketplace-orders/internal/pricing"
	orderrepo "marketplace-orders/internal/repository/order"
)

const idAttempts = 5

// Service owns order records and the status state machine. Mutations of one
// order are serialized; reads see a consistent snapshot of the store.
type Service struct {
	repo      orderRepo
	policy    *policy.Policy
	pricing   *pricing.Calculator
	carts     CartClearer
	methods   MethodSet
	publisher events.Publisher
	metrics   Recorder
	logger    *zap.Logger
	currency  string
	now       func() time.Time
	newID     func() string
	locks     *keyedMutex
}

type orderRepo interface {
	Insert(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, id string, fn orderrepo.Mutator) (*domain.Order, error)
	List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

// CartClearer empties the cart an order was created from.
type CartClearer interface {
	Clear(ctx context.Context, cartID string) error
}

// MethodSet reports which payment methods can be charged.
type MethodSet interface {
	Supports(method domain.PaymentMethod) bool
}

type Recorder interface {
	OrderCreated()
	Transition(from, to domain.Status, role domain.Role)
	Rejected(reason string)
}

type Options struct {
	Pricing   *pricing.Calculator
	Carts     CartClearer
	Methods   MethodSet
	Publisher events.Publisher
	Metrics   Recorder
	Logger    *zap.Logger
	Currency  string
	Now       func() time.Time
	NewID     func() string
}

func New(repo orderRepo, pol *policy.Policy, opts Options) *Service {
	s := &Service{
		repo:      repo,
		policy:    pol,
		pricing:   opts.Pricing,
		carts:     opts.Carts,
		methods:   opts.Methods,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		currency:  opts.Currency,
		now:       opts.Now,
		newID:     opts.NewID,
		locks:     newKeyedMutex(),
	}
	if s.policy == nil {
		s.policy = policy.Default()
	}
	if s.pricing == nil {
		s.pricing = pricing.New(pricing.DefaultTaxRate)
	}
	if s.methods == nil {
		s.methods = builtinMethods{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.publisher == nil {
		s.publisher = events.NewLog(s.logger)
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.currency == "" {
		s.currency = "USD"
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = NewOrderID
	}
	return s
}

// NewOrderID returns ids such as "ORD-3F9A1C07".
func NewOrderID() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

type CreateInput struct {
	Cart            domain.Cart          `json:"cart"`
	Customer        domain.Customer      `json:"customer"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	ShippingAddress domain.Address       `json:"shippingAddress"`
	Discount        decimal.Decimal      `json:"discount"`
	IdempotencyKey  string               `json:"-"`
}

// CreateOrder turns a cart into an order awaiting payment.
func (s *Service) CreateOrder(ctx context.Context, in CreateInput) (*domain.Order, error) {
	lines, vendorID, vendorName, err := linesFromCart(in.Cart)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Customer.ID) == "" {
		return nil, domain.Invalid("customer.id", "required")
	}
	if !s.methods.Supports(in.PaymentMethod) {
		return nil, domain.Invalid("paymentMethod", fmt.Sprintf("unsupported payment method %q", in.PaymentMethod))
	}
	if field := in.ShippingAddress.MissingField(); field != "" {
		return nil, domain.Invalid("shippingAddress."+field, "required")
	}
	breakdown, err := s.pricing.Price(lines, in.Discount)
	if err != nil {
		return nil, domain.Invalid("discount", err.Error())
	}

	currency := in.Cart.Currency
	if currency == "" {
		currency = s.currency
	}
	now := s.now().UTC()
	o := domain.Order{
		CustomerID:       in.Customer.ID,
		CustomerName:     strings.TrimSpace(in.Customer.Name),
		CustomerEmail:    strings.TrimSpace(in.Customer.Email),
		VendorID:         vendorID,
		VendorName:       vendorName,
		LineItems:        lines,
		Status:           domain.StatusAwaitingPayment,
		PaymentMethod:    in.PaymentMethod,
		ShippingAddress:  in.ShippingAddress,
		ShippingProvider: domain.DefaultShippingProvider,
		Currency:         currency,
		IdempotencyKey:   in.IdempotencyKey,
		CartID:           in.Cart.ID,
		History:          []domain.StatusChange{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	breakdown.Apply(&o)

	for i := 0; i < idAttempts; i++ {
		o.ID = s.newID()
		err = s.repo.Insert(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrAlreadyExists) || in.IdempotencyKey != "" {
			return nil, fmt.Errorf("insert order: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("insert order: id collision after %d attempts: %w", idAttempts, err)
	}

	s.metrics.OrderCreated()
	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.String("vendor_id", o.VendorID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
		zap.String("payment_method", string(o.PaymentMethod)),
	)
	s.publish(ctx, events.NewEvent(events.TypeOrderCreated, o, "", domain.RoleCustomer))
	return &o, nil
}

// ConfirmPayment settles an order awaiting payment and clears its cart.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, providerReference string) (*domain.Order, error) {
	ref := strings.TrimSpace(providerReference)
	if ref == "" {
		return nil, domain.Invalid("providerReference", "required")
	}
	updated, err := s.apply(ctx, orderID, domain.StatusProcessing, domain.RoleSystem, func(o *domain.Order) error {
		if o.Status != domain.StatusAwaitingPayment {
			return &domain.InvalidTransitionError{OrderID: o.ID, From: o.Status, To: domain.StatusProcessing}
		}
		o.PaymentReference = ref
		return nil
	}, "payment confirmed: "+ref)
	if err != nil {
		return nil, err
	}

	if updated.CartID != "" && s.carts != nil {
		if err := s.carts.Clear(ctx, updated.CartID); err != nil {
			s.logger.Warn("clear cart after payment",
				zap.String("order_id", updated.ID),
				zap.String("cart_id", updated.CartID),
				zap.Error(err),
			)
		}
	}
	return updated, nil
}

type TransitionOptions struct {
	Note             string `json:"note,omitempty"`
	TrackingNumber   string `json:"trackingNumber,omitempty"`
	ShippingProvider string `json:"shippingProvider,omitempty"`
}

// Transition moves an order along one edge of the state machine on behalf
// of role.
func (s *Service) Transition(ctx context.Context, orderID string, target domain.Status, role domain.Role, opts TransitionOptions) (*domain.Order, error) {
	if !target.Valid() {
		return nil, domain.Invalid("status", fmt.Sprintf("unknown status %q", target))
	}
	return s.apply(ctx, orderID, target, role, func(o *domain.Order) error {
		if settlesPayment(o.Status, target) {
			return domain.Invalid("status", "orders awaiting payment move to Processing only through payment confirmation")
		}
		if target != domain.StatusShipped {
			return nil
		}
		if p := strings.TrimSpace(opts.ShippingProvider); p != "" {
			o.ShippingProvider = p
		}
		o.TrackingNumber = strings.TrimSpace(opts.TrackingNumber)
		if o.TrackingNumber == "" {
			o.TrackingNumber = trackingNumber(o.ShippingProvider)
		}
		return nil
	}, opts.Note)
}

// settlesPayment reports whether from -> to is the payment edge, which only
// ConfirmPayment may take.
func settlesPayment(from, to domain.Status) bool {
	return from == domain.StatusAwaitingPayment && to == domain.StatusProcessing
}

// RecordChargeReference stores the reference of a charge that arrived after
// the order stopped awaiting payment. The status is left as it is.
func (s *Service) RecordChargeReference(ctx context.Context, orderID, providerReference string) (*domain.Order, error) {
	ref := strings.TrimSpace(providerReference)
	if ref == "" {
		return nil, domain.Invalid("providerReference", "required")
	}
	unlock := s.locks.Lock(orderID)
	defer unlock()

	return s.repo.Update(ctx, orderID, func(o *domain.Order) error {
		if o.Status == domain.StatusAwaitingPayment {
			return &domain.InvalidTransitionError{OrderID: o.ID, From: o.Status, To: o.Status}
		}
		if o.PaymentReference != "" && o.PaymentReference != ref {
			return domain.Invalid("providerReference", fmt.Sprintf("order already records charge %s", o.PaymentReference))
		}
		o.PaymentReference = ref
		o.UpdatedAt = s.now().UTC()
		return nil
	})
}

// apply runs the edge and role checks and the extra edit as one atomic
// update while holding the order's lock.
func (s *Service) apply(ctx context.Context, orderID string, target domain.Status, role domain.Role, extra orderrepo.Mutator, note string) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	var from domain.Status
	updated, err := s.repo.Update(ctx, orderID, func(o *domain.Order) error {
		from = o.Status
		edge, ok := s.policy.Lookup(o.Status, target)
		if !ok {
			return &domain.InvalidTransitionError{OrderID: o.ID, From: o.Status, To: target}
		}
		if !edge.Permits(role) {
			return &domain.ForbiddenError{OrderID: o.ID, Role: role, From: o.Status, To: target}
		}
		if o.Status == domain.StatusAwaitingPayment && target == domain.StatusProcessing {
			if field := o.ShippingAddress.MissingField(); field != "" {
				return domain.Invalid("shippingAddress."+field, "required before processing")
			}
		}
		if extra != nil {
			if err := extra(o); err != nil {
				return err
			}
		}
		now := s.now().UTC()
		o.Status = target
		o.UpdatedAt = now
		o.History = append(o.History, domain.StatusChange{
			From: from,
			To:   target,
			Role: role,
			Note: strings.TrimSpace(note),
			At:   now,
		})
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	s.metrics.Transition(from, target, role)
	s.logger.Info("order transitioned",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("role", string(role)),
	)
	s.publish(ctx, events.NewEvent(events.TypeOrderStatusChanged, *updated, from, role))
	return updated, nil
}

// ApplyDiscount reprices an order that is still awaiting payment.
func (s *Service) ApplyDiscount(ctx context.Context, orderID string, amount decimal.Decimal) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	return s.repo.Update(ctx, orderID, func(o *domain.Order) error {
		if o.Status != domain.StatusAwaitingPayment {
			return &domain.InvalidTransitionError{OrderID: o.ID, From: o.Status, To: o.Status}
		}
		b, err := s.pricing.Price(o.LineItems, amount)
		if err != nil {
			return domain.Invalid("discount", err.Error())
		}
		b.Apply(o)
		o.UpdatedAt = s.now().UTC()
		return nil
	})
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

type ListResult struct {
	Orders []domain.Order `json:"orders"`
	Total  int            `json:"total"`
}

// ListOrders returns matching orders in insertion order.
func (s *Service) ListOrders(ctx context.Context, f domain.OrderFilter) (ListResult, error) {
	if f.Offset < 0 {
		return ListResult{}, domain.Invalid("offset", "must not be negative")
	}
	if f.Limit < 0 {
		return ListResult{}, domain.Invalid("limit", "must not be negative")
	}
	orders, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("list orders: %w", err)
	}
	return ListResult{Orders: orders, Total: total}, nil
}

// SummaryByStatus counts orders per status, zero counts included.
func (s *Service) SummaryByStatus(ctx context.Context) (map[domain.Status]int, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	out := make(map[domain.Status]int, len(domain.Statuses))
	for _, st := range domain.Statuses {
		out[st] = counts[st]
	}
	return out, nil
}

// Targets lists statuses role may move the order to through Transition.
func (s *Service) Targets(o domain.Order, role domain.Role) []domain.Status {
	var out []domain.Status
	for _, to := range s.policy.Targets(o.Status) {
		if settlesPayment(o.Status, to) {
			continue
		}
		if e, ok := s.policy.Lookup(o.Status, to); ok && e.Permits(role) {
			out = append(out, to)
		}
	}
	return out
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish order event",
			zap.String("type", e.Type),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

func (s *Service) recordRejection(err error) {
	var (
		invalid   *domain.InvalidTransitionError
		forbidden *domain.ForbiddenError
	)
	switch {
	case errors.As(err, &invalid):
		s.metrics.Rejected("invalid")
	case errors.As(err, &forbidden):
		s.metrics.Rejected("forbidden")
	}
}

func linesFromCart(c domain.Cart) ([]domain.LineItem, string, string, error) {
	if c.Empty() {
		return nil, "", "", domain.Invalid("cart", "must contain at least one item")
	}
	var vendorID, vendorName string
	lines := make([]domain.LineItem, 0, len(c.Lines))
	for i, l := range c.Lines {
		field := fmt.Sprintf("cart.lineItems[%d]", i)
		if strings.TrimSpace(l.ProductID) == "" {
			return nil, "", "", domain.Invalid(field+".productId", "required")
		}
		if l.Quantity <= 0 {
			return nil, "", "", domain.Invalid(field+".quantity", "must be positive")
		}
		if l.UnitPrice.IsNegative() {
			return nil, "", "", domain.Invalid(field+".unitPrice", "must not be negative")
		}
		if l.VendorID != "" {
			if vendorID != "" && vendorID != l.VendorID {
				return nil, "", "", domain.Invalid("cart", "items from more than one vendor")
			}
			vendorID = l.VendorID
			if l.VendorName != "" {
				vendorName = l.VendorName
			}
		}
		name := l.Name
		if name == "" {
			name = l.ProductID
		}
		lines = append(lines, domain.LineItem{
			ProductID:   l.ProductID,
			ProductName: name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}
	if vendorID == "" {
		return nil, "", "", domain.Invalid("cart.vendorId", "required")
	}
	return lines, vendorID, vendorName, nil
}

func trackingNumber(provider string) string {
	prefix := "TRK"
	if strings.EqualFold(provider, domain.DefaultShippingProvider) {
		prefix = "SR"
	}
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

type builtinMethods struct{}

func (builtinMethods) Supports(m domain.PaymentMethod) bool {
	parsed, ok := domain.ParsePaymentMethod(string(m))
	return ok && parsed == m
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated()                               {}
func (nopRecorder) Transition(_, _ domain.Status, _ domain.Role) {}
func (nopRecorder) Rejected(string)                             {}
