package domain

import "strings"

// Role identifies the kind of actor requesting a change.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
	// RoleSystem is used for changes driven by payment settlement.
	RoleSystem Role = "system"
)

func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCustomer, RoleVendor, RoleAdmin, RoleSystem:
		return r, true
	}
	return "", false
}

// PaymentMethod names a payment provider.
type PaymentMethod string

const (
	PaymentStripe   PaymentMethod = "Stripe"
	PaymentPhonePe  PaymentMethod = "PhonePe"
	PaymentRazorpay PaymentMethod = "Razorpay"
)

// ParsePaymentMethod accepts any casing of a known method name.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stripe":
		return PaymentStripe, true
	case "phonepe":
		return PaymentPhonePe, true
	case "razorpay":
		return PaymentRazorpay, true
	}
	return "", false
}

// PaymentOutcome is the terminal result of a provider charge.
type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "success"
	PaymentFailed    PaymentOutcome = "failure"
	PaymentTimedOut  PaymentOutcome = "timeout"
)
