package models

import (
	"fmt"
	"time"
)

// PaymentStatus enumerates the states of a recorded payment claim.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ParsePaymentStatus converts a stored string into a PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch status := PaymentStatus(s); status {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusFailed, PaymentStatusRefunded:
		return status, nil
	default:
		return "", fmt.Errorf("unknown payment status: %q", s)
	}
}

// Payment records an externally-asserted payment claim against a deal.
// The service never moves money itself. ID is an opaque payment token
// (a UUID assigned by the lifecycle layer), not the storage row number.
type Payment struct {
	ID          string
	DealID      string
	PayerID     int64
	Amount      float64
	Method      string
	ReferenceID string
	Status      PaymentStatus
	CreatedAt   time.Time
}
