package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"marketplace-orders/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (id, customer_id, currency, state)
VALUES ($1, $2, $3, 'active')
RETURNING id, customer_id, currency, state, created_at
`
	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, q, uuid.NewString(), in.CustomerID, in.Currency).Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.Currency,
		&cart.State,
		&cart.CreatedAt,
	); err != nil {
		return nil, err
	}
	cart.Lines = []domain.CartLine{}
	return &cart, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	const cartQuery = `
SELECT id, customer_id, currency, state, created_at
FROM carts
WHERE id = $1
`
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, id).Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.Currency,
		&cart.State,
		&cart.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}

	const linesQuery = `
SELECT id, product_id, name, vendor_id, vendor_name, unit_price::text, quantity
FROM cart_lines
WHERE cart_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Lines = []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		var price string
		if err := rows.Scan(
			&line.ID,
			&line.ProductID,
			&line.Name,
			&line.VendorID,
			&line.VendorName,
			&price,
			&line.Quantity,
		); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) AddLineItem(ctx context.Context, cartID string, line domain.CartLine) error {
	const q = `
INSERT INTO cart_lines (id, cart_id, product_id, name, vendor_id, vendor_name, unit_price, quantity)
SELECT $1, c.id, $3, $4, $5, $6, $7::numeric, $8
FROM carts c
WHERE c.id = $2
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_lines.quantity + EXCLUDED.quantity
`
	cmd, err := r.pool.Exec(ctx, q,
		uuid.NewString(),
		cartID,
		line.ProductID,
		line.Name,
		line.VendorID,
		line.VendorName,
		line.UnitPrice.String(),
		line.Quantity,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return notFound(cartID)
	}
	return nil
}

func (r *postgresRepo) ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error {
	var (
		q    string
		args []any
	)
	if quantity <= 0 {
		q = `
DELETE FROM cart_lines
WHERE id = $1 AND cart_id = $2
`
		args = []any{lineItemID, cartID}
	} else {
		q = `
UPDATE cart_lines
SET quantity = $3
WHERE id = $1 AND cart_id = $2
`
		args = []any{lineItemID, cartID, quantity}
	}
	cmd, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "cart line", ID: lineItemID}
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, cartID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notFound(cartID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
