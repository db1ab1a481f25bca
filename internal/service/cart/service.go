package cart

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
	cartrepo "marketplace-orders/internal/repository/cart"
)

type Service struct {
	repo   cartRepo
	logger *zap.Logger
}

type cartRepo interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID string, line domain.CartLine) error
	ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error
	Clear(ctx context.Context, cartID string) error
}

func New(repo cartRepo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

type CreateInput struct {
	CustomerID string `json:"customerId"`
	Currency   string `json:"currency"`
}

type UpdateInput struct {
	Actions []UpdateAction `json:"actions"`
}

type UpdateAction struct {
	Action     string          `json:"action"`
	ProductID  string          `json:"productId,omitempty"`
	Name       string          `json:"name,omitempty"`
	VendorID   string          `json:"vendorId,omitempty"`
	VendorName string          `json:"vendorName,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	LineItemID string          `json:"lineItemId,omitempty"`
	Quantity   int             `json:"quantity,omitempty"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Cart, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		return nil, domain.Invalid("currency", "required")
	}
	return s.repo.Create(ctx, cartrepo.CreateCartInput{
		CustomerID: strings.TrimSpace(in.CustomerID),
		Currency:   currency,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Cart, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies actions in order and returns the resulting cart. Actions
// before a failing one stay applied.
func (s *Service) Update(ctx context.Context, cartID string, in UpdateInput) (*domain.Cart, error) {
	if len(in.Actions) == 0 {
		return nil, domain.Invalid("actions", "required")
	}
	if _, err := s.repo.GetByID(ctx, cartID); err != nil {
		return nil, err
	}

	for _, action := range in.Actions {
		switch strings.ToLower(strings.TrimSpace(action.Action)) {
		case "addlineitem":
			line, err := lineFromAction(action)
			if err != nil {
				return nil, err
			}
			if err := s.repo.AddLineItem(ctx, cartID, line); err != nil {
				return nil, err
			}
		case "changelineitemquantity":
			lineID := strings.TrimSpace(action.LineItemID)
			if lineID == "" {
				return nil, domain.Invalid("lineItemId", "required")
			}
			if action.Quantity < 0 {
				return nil, domain.Invalid("quantity", "must not be negative")
			}
			if err := s.repo.ChangeLineItemQuantity(ctx, cartID, lineID, action.Quantity); err != nil {
				return nil, err
			}
		default:
			return nil, domain.Invalid("action", "unsupported action "+action.Action)
		}
	}

	return s.repo.GetByID(ctx, cartID)
}

// Clear empties the cart once its order is paid.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if err := s.repo.Clear(ctx, cartID); err != nil {
		return err
	}
	s.logger.Debug("cart cleared", zap.String("cart_id", cartID))
	return nil
}

func lineFromAction(a UpdateAction) (domain.CartLine, error) {
	productID := strings.TrimSpace(a.ProductID)
	if productID == "" {
		return domain.CartLine{}, domain.Invalid("productId", "required")
	}
	if a.Quantity <= 0 {
		return domain.CartLine{}, domain.Invalid("quantity", "must be positive")
	}
	if a.UnitPrice.IsNegative() {
		return domain.CartLine{}, domain.Invalid("unitPrice", "must not be negative")
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = productID
	}
	return domain.CartLine{
		ProductID:  productID,
		Name:       name,
		VendorID:   strings.TrimSpace(a.VendorID),
		VendorName: strings.TrimSpace(a.VendorName),
		UnitPrice:  a.UnitPrice,
		Quantity:   a.Quantity,
	}, nil
}
