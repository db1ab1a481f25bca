package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `
id, customer_id, customer_name, customer_email, vendor_id, vendor_name, status,
payment_method, payment_reference, shipping_address, shipping_provider, tracking_number,
currency, subtotal::text, tax::text, discount::text, total_amount::text,
coalesce(idempotency_key, ''), cart_id, line_items, history, created_at, updated_at`

func (r *postgresRepo) Insert(ctx context.Context, o domain.Order) error {
	const q = `
INSERT INTO orders (
	id, customer_id, customer_name, customer_email, vendor_id, vendor_name, status,
	payment_method, payment_reference, shipping_address, shipping_provider, tracking_number,
	currency, subtotal, tax, discount, total_amount,
	idempotency_key, cart_id, line_items, history, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12,
	$13, $14::numeric, $15::numeric, $16::numeric, $17::numeric,
	NULLIF($18, ''), $19, $20, $21, $22, $23
)
`
	args, err := orderArgs(o)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, q, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, fn Mutator) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	current, err := scanOrder(tx.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}

	const upd = `
UPDATE orders
SET status = $2,
    payment_reference = $3,
    shipping_address = $4,
    shipping_provider = $5,
    tracking_number = $6,
    subtotal = $7::numeric,
    tax = $8::numeric,
    discount = $9::numeric,
    total_amount = $10::numeric,
    history = $11,
    updated_at = $12
WHERE id = $1
`
	addr, err := json.Marshal(next.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	history, err := json.Marshal(next.History)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	if _, err := tx.Exec(ctx, upd,
		id,
		string(next.Status),
		next.PaymentReference,
		addr,
		next.ShippingProvider,
		next.TrackingNumber,
		next.Subtotal.String(),
		next.Tax.String(),
		next.Discount.String(),
		next.TotalAmount.String(),
		history,
		next.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *postgresRepo) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	where, args := filterClause(f)

	// Count and page inside one snapshot so Total matches the rows returned.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	var total int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY seq ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, tx.Commit(ctx)
}

func (r *postgresRepo) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	const q = `
SELECT status, count(*)
FROM orders
GROUP BY status
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		s, ok := domain.ParseStatus(status)
		if !ok {
			r.logger.Warn("skipping unknown order status", zap.String("status", status))
			continue
		}
		counts[s] += n
	}
	return counts, rows.Err()
}

func filterClause(f domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.VendorID != "" {
		args = append(args, f.VendorID)
		conds = append(conds, fmt.Sprintf("vendor_id = $%d", len(args)))
	}
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if text := strings.TrimSpace(f.SearchText); text != "" {
		args = append(args, "%"+likeEscaper.Replace(text)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(id ILIKE $%[1]d OR customer_name ILIKE $%[1]d OR vendor_name ILIKE $%[1]d
	OR EXISTS (SELECT 1 FROM jsonb_array_elements(line_items) li WHERE li->>'productName' ILIKE $%[1]d))`, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func orderArgs(o domain.Order) ([]any, error) {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	lines, err := json.Marshal(o.LineItems)
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}
	history := o.History
	if history == nil {
		history = []domain.StatusChange{}
	}
	hist, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return []any{
		o.ID, o.CustomerID, o.CustomerName, o.CustomerEmail, o.VendorID, o.VendorName, string(o.Status),
		string(o.PaymentMethod), o.PaymentReference, addr, o.ShippingProvider, o.TrackingNumber,
		o.Currency, o.Subtotal.String(), o.Tax.String(), o.Discount.String(), o.TotalAmount.String(),
		o.IdempotencyKey, o.CartID, lines, hist, o.CreatedAt, o.UpdatedAt,
	}, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                          domain.Order
		status, method             string
		subtotal, tax, disc, total string
		addr, lines, history       []byte
	)
	if err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.VendorID,
		&o.VendorName,
		&status,
		&method,
		&o.PaymentReference,
		&addr,
		&o.ShippingProvider,
		&o.TrackingNumber,
		&o.Currency,
		&subtotal,
		&tax,
		&disc,
		&total,
		&o.IdempotencyKey,
		&o.CartID,
		&lines,
		&history,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)
	o.PaymentMethod = domain.PaymentMethod(method)

	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("decode subtotal: %w", err)
	}
	if o.Tax, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("decode tax: %w", err)
	}
	if o.Discount, err = decimal.NewFromString(disc); err != nil {
		return nil, fmt.Errorf("decode discount: %w", err)
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("decode total: %w", err)
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if err := json.Unmarshal(lines, &o.LineItems); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	if err := json.Unmarshal(history, &o.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &o, nil
}
