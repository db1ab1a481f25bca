package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
	cartrepo "marketplace-orders/internal/repository/cart"
)

type stubRepo struct {
	cart              *domain.Cart
	getErr            error
	addLineItemErr    error
	changeLineItemErr error
	clearErr          error
	lastAddCartID     string
	lastAddLine       domain.CartLine
	lastChangeLineID  string
	lastChangeQty     int
	lastClearCartID   string
	lastCreate        cartrepo.CreateCartInput
}

func (s *stubRepo) Create(_ context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error) {
	s.lastCreate = in
	return &domain.Cart{ID: "cart-1", CustomerID: in.CustomerID, Currency: in.Currency}, nil
}

func (s *stubRepo) GetByID(_ context.Context, _ string) (*domain.Cart, error) {
	return s.cart, s.getErr
}

func (s *stubRepo) AddLineItem(_ context.Context, cartID string, line domain.CartLine) error {
	s.lastAddCartID = cartID
	s.lastAddLine = line
	return s.addLineItemErr
}

func (s *stubRepo) ChangeLineItemQuantity(_ context.Context, _ string, lineItemID string, quantity int) error {
	s.lastChangeLineID = lineItemID
	s.lastChangeQty = quantity
	return s.changeLineItemErr
}

func (s *stubRepo) Clear(_ context.Context, cartID string) error {
	s.lastClearCartID = cartID
	return s.clearErr
}

func TestCreate_RequiresCurrency(t *testing.T) {
	svc := New(&stubRepo{}, zap.NewNop())
	_, err := svc.Create(context.Background(), CreateInput{CustomerID: "cus-1"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "currency" {
		t.Fatalf("expected currency validation error, got %v", err)
	}
}

func TestCreate_NormalizesCurrency(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, zap.NewNop())
	if _, err := svc.Create(context.Background(), CreateInput{Currency: " usd "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastCreate.Currency != "USD" {
		t.Fatalf("expected USD, got %q", repo.lastCreate.Currency)
	}
}

func TestUpdate_AddLineItem(t *testing.T) {
	repo := &stubRepo{cart: &domain.Cart{ID: "cart-1"}}
	svc := New(repo, zap.NewNop())
	_, err := svc.Update(context.Background(), "cart-1", UpdateInput{Actions: []UpdateAction{{
		Action:     "addLineItem",
		ProductID:  "spk",
		Name:       "Bluetooth Speaker",
		VendorID:   "ven-1",
		VendorName: "SoundWave",
		UnitPrice:  decimal.RequireFromString("79.99"),
		Quantity:   2,
	}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastAddCartID != "cart-1" || repo.lastAddLine.ProductID != "spk" || repo.lastAddLine.Quantity != 2 {
		t.Fatalf("unexpected add call: %s %+v", repo.lastAddCartID, repo.lastAddLine)
	}
}

func TestUpdate_Validation(t *testing.T) {
	cases := []struct {
		name   string
		action UpdateAction
		field  string
	}{
		{name: "missing product", action: UpdateAction{Action: "addLineItem", Quantity: 1}, field: "productId"},
		{name: "zero quantity", action: UpdateAction{Action: "addLineItem", ProductID: "p"}, field: "quantity"},
		{name: "negative price", action: UpdateAction{Action: "addLineItem", ProductID: "p", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}, field: "unitPrice"},
		{name: "missing line id", action: UpdateAction{Action: "changeLineItemQuantity", Quantity: 1}, field: "lineItemId"},
		{name: "unknown action", action: UpdateAction{Action: "setShippingAddress"}, field: "action"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := New(&stubRepo{cart: &domain.Cart{ID: "cart-1"}}, zap.NewNop())
			_, err := svc.Update(context.Background(), "cart-1", UpdateInput{Actions: []UpdateAction{tc.action}})
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestUpdate_ChangeQuantityZeroRemoves(t *testing.T) {
	repo := &stubRepo{cart: &domain.Cart{ID: "cart-1"}}
	svc := New(repo, zap.NewNop())
	_, err := svc.Update(context.Background(), "cart-1", UpdateInput{Actions: []UpdateAction{{
		Action:     "changeLineItemQuantity",
		LineItemID: "line-1",
		Quantity:   0,
	}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastChangeLineID != "line-1" || repo.lastChangeQty != 0 {
		t.Fatalf("unexpected change call: %s %d", repo.lastChangeLineID, repo.lastChangeQty)
	}
}

func TestUpdate_UnknownCart(t *testing.T) {
	repo := &stubRepo{getErr: &domain.NotFoundError{Resource: "cart", ID: "x"}}
	svc := New(repo, zap.NewNop())
	_, err := svc.Update(context.Background(), "x", UpdateInput{Actions: []UpdateAction{{Action: "addLineItem"}}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClear(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, zap.NewNop())
	if err := svc.Clear(context.Background(), "cart-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastClearCartID != "cart-9" {
		t.Fatalf("expected clear of cart-9, got %q", repo.lastClearCartID)
	}
}
