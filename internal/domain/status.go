package domain

import (
	"strings"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusAwaitingPayment Status = "AwaitingPayment"
	StatusProcessing      Status = "Processing"
	StatusShipped         Status = "Shipped"
	StatusDelivered       Status = "Delivered"
	StatusCancelled       Status = "Cancelled"
	StatusRefunded        Status = "Refunded"
	StatusDisputed        Status = "Disputed"
	StatusRefundRequested Status = "RefundRequested"
)

// Statuses lists every known status in display order.
var Statuses = []Status{
	StatusAwaitingPayment,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusRefunded,
	StatusDisputed,
	StatusRefundRequested,
}

var statusLabels = map[Status]string{
	StatusAwaitingPayment: "Awaiting Payment",
	StatusProcessing:      "Processing",
	StatusShipped:         "Shipped",
	StatusDelivered:       "Delivered",
	StatusCancelled:       "Cancelled",
	StatusRefunded:        "Refunded",
	StatusDisputed:        "Disputed",
	StatusRefundRequested: "Refund Request",
}

// statusAliases maps normalized external spellings onto statuses. Keys have
// spaces, dashes and underscores removed and are lower case.
var statusAliases = func() map[string]Status {
	m := make(map[string]Status, len(Statuses)*2)
	for _, s := range Statuses {
		m[normalizeStatus(string(s))] = s
		m[normalizeStatus(statusLabels[s])] = s
	}
	m["refundrequest"] = StatusRefundRequested
	m["canceled"] = StatusCancelled
	m["pendingpayment"] = StatusAwaitingPayment
	return m
}()

func (s Status) String() string {
	return string(s)
}

// Label is the human readable name shown in dashboards.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Slug is the URL form of the label, e.g. "refund-request".
func (s Status) Slug() string {
	return strings.ReplaceAll(strings.ToLower(s.Label()), " ", "-")
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// ParseStatus maps canonical names, labels and slugs onto a Status,
// ignoring case. The second result is false for unrecognized input.
func ParseStatus(raw string) (Status, bool) {
	key := normalizeStatus(raw)
	if key == "" {
		return "", false
	}
	s, ok := statusAliases[key]
	return s, ok
}

func normalizeStatus(raw string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(raw)))
}
