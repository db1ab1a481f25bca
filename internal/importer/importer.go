package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
)

type OrderWriter interface {
	Insert(ctx context.Context, o domain.Order) error
}

// CSVImporter loads historical orders into an order store. Each row with an
// id starts an order; rows with an empty id add another line item to the
// order above them. Orders whose id already exists are skipped.
type CSVImporter struct {
	reader *csv.Reader
	orders OrderWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, orders OrderWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader: csvr,
		orders: orders,
		logger: logger,
	}
}

type csvRow struct {
	line             int
	ID               string
	CustomerID       string
	Customer         string
	CustomerEmail    string
	VendorID         string
	Vendor           string
	Product          string
	Quantity         int
	Amount           decimal.Decimal
	Status           string
	Date             string
	Address          string
	PaymentMethod    string
	ShippingProvider string
	TrackingNumber   string
	Currency         string
}

// Run parses CSV rows and inserts one order per id.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"id", "customer", "vendor", "product", "amount", "status", "date", "address", "paymentMethod"} {
		if _, ok := index[strings.ToLower(required)]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	var (
		current  *domain.Order
		imported int
		line     = 1
	)
	flush := func() error {
		if current == nil {
			return nil
		}
		ok, err := i.save(ctx, current)
		if err != nil {
			return err
		}
		if ok {
			imported++
		}
		return nil
	}

	for {
		record, err := i.reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}

		if row.ID != "" {
			if err := flush(); err != nil {
				return imported, err
			}
			o, err := orderFromRow(row)
			if err != nil {
				return imported, err
			}
			current = o
			continue
		}

		// Continuation rows add products to the current order.
		if current == nil {
			return imported, fmt.Errorf("row %d: line item without an order", line)
		}
		current.LineItems = append(current.LineItems, lineItem(row))
	}

	if err := flush(); err != nil {
		return imported, err
	}
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, o *domain.Order) (bool, error) {
	subtotal := decimal.Zero
	for _, l := range o.LineItems {
		subtotal = subtotal.Add(l.Total())
	}
	// Historical amounts are final totals; tax is already included.
	o.Subtotal = subtotal.Round(2)
	o.Tax = decimal.Zero
	o.Discount = decimal.Zero
	o.TotalAmount = o.Subtotal

	err := i.orders.Insert(ctx, *o)
	if errors.Is(err, domain.ErrAlreadyExists) {
		i.logger.Info("order already present, skipped", zap.String("order_id", o.ID))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert order %q: %w", o.ID, err)
	}
	return true, nil
}

func orderFromRow(row *csvRow) (*domain.Order, error) {
	status, ok := domain.ParseStatus(row.Status)
	if !ok {
		return nil, fmt.Errorf("row %d: unknown status %q", row.line, row.Status)
	}
	method, ok := domain.ParsePaymentMethod(row.PaymentMethod)
	if !ok {
		return nil, fmt.Errorf("row %d: unknown payment method %q", row.line, row.PaymentMethod)
	}
	created, err := parseDate(row.Date)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", row.line, err)
	}
	if row.Customer == "" || row.Vendor == "" {
		return nil, fmt.Errorf("row %d: customer and vendor are required", row.line)
	}
	addr, err := parseAddress(row.Address, row.Customer)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", row.line, err)
	}

	o := &domain.Order{
		ID:               row.ID,
		CustomerID:       firstNonEmpty(row.CustomerID, "cust-"+slug(row.Customer)),
		CustomerName:     row.Customer,
		CustomerEmail:    row.CustomerEmail,
		VendorID:         firstNonEmpty(row.VendorID, slug(row.Vendor)),
		VendorName:       row.Vendor,
		LineItems:        []domain.LineItem{lineItem(row)},
		Status:           status,
		PaymentMethod:    method,
		ShippingAddress:  addr,
		ShippingProvider: firstNonEmpty(row.ShippingProvider, domain.DefaultShippingProvider),
		TrackingNumber:   row.TrackingNumber,
		Currency:         firstNonEmpty(strings.ToUpper(row.Currency), "USD"),
		History:          []domain.StatusChange{},
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	if status != domain.StatusAwaitingPayment {
		o.PaymentReference = "imported-" + row.ID
		o.History = append(o.History, domain.StatusChange{
			From: domain.StatusAwaitingPayment,
			To:   status,
			Role: domain.RoleSystem,
			Note: "imported",
			At:   created,
		})
	}
	return o, nil
}

func lineItem(row *csvRow) domain.LineItem {
	return domain.LineItem{
		ProductID:   slug(row.Product),
		ProductName: row.Product,
		Quantity:    row.Quantity,
		UnitPrice:   row.Amount,
	}
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

var statePostal = regexp.MustCompile(`^([A-Za-z]{2})\s+(\S+)$`)

// parseAddress splits "123 Main St, New York, NY 10001". The recipient is
// the order's customer.
func parseAddress(raw, customer string) (domain.Address, error) {
	parts := strings.Split(raw, ",")
	if len(parts) < 3 {
		return domain.Address{}, fmt.Errorf("address %q: expected street, city, state and postal code", raw)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	m := statePostal.FindStringSubmatch(parts[2])
	if m == nil {
		return domain.Address{}, fmt.Errorf("address %q: expected state and postal code after the city", raw)
	}
	first, last, _ := strings.Cut(strings.TrimSpace(customer), " ")
	a := domain.Address{
		FirstName:  first,
		LastName:   firstNonEmpty(strings.TrimSpace(last), first),
		Line1:      parts[0],
		City:       parts[1],
		State:      strings.ToUpper(m[1]),
		PostalCode: m[2],
	}
	if len(parts) > 3 {
		a.Country = parts[3]
	}
	return a, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	row := &csvRow{
		line:             line,
		ID:               pick(record, index, "id"),
		CustomerID:       pick(record, index, "customerid"),
		Customer:         pick(record, index, "customer"),
		CustomerEmail:    pick(record, index, "customeremail"),
		VendorID:         pick(record, index, "vendorid"),
		Vendor:           pick(record, index, "vendor"),
		Product:          pick(record, index, "product"),
		Status:           pick(record, index, "status"),
		Date:             pick(record, index, "date"),
		Address:          pick(record, index, "address"),
		PaymentMethod:    pick(record, index, "paymentmethod"),
		ShippingProvider: pick(record, index, "shippingprovider"),
		TrackingNumber:   pick(record, index, "trackingnumber"),
		Currency:         pick(record, index, "currency"),
		Quantity:         1,
	}
	if row.ID == "" && row.Product == "" {
		return nil, nil
	}
	if row.Product == "" {
		return nil, fmt.Errorf("row %d: product is required", line)
	}

	amount, err := decimal.NewFromString(strings.TrimPrefix(pick(record, index, "amount"), "$"))
	if err != nil || amount.IsNegative() {
		return nil, fmt.Errorf("row %d: invalid amount %q", line, pick(record, index, "amount"))
	}
	row.Amount = amount
	if raw := pick(record, index, "quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q <= 0 {
			return nil, fmt.Errorf("row %d: invalid quantity %q", line, raw)
		}
		row.Quantity = q
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
