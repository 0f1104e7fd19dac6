package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment attempt.  The only
// legal transitions are Pending -> Completed and Pending -> Failed.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
)

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// Settled reports whether the payment has left Pending.  A settled
// payment is never modified again.
func (s PaymentStatus) Settled() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// Payment records a single attempt to pay for a booking through the
// payment gateway.  A row is created only after the gateway accepted the
// initialization request and is updated only by verification.
//
// Fields:
//
//	ID               – primary key identifier.
//	BookingReference – opaque booking correlation string (not a foreign key).
//	Amount           – amount charged; always positive.
//	TransactionID    – gateway transaction reference (tx_ref), unique.
//	Status           – Pending, Completed or Failed.
//	CreatedAt        – creation timestamp, never updated.
type Payment struct {
	ID               uint64          // payments.id
	BookingReference string          // payments.booking_reference
	Amount           decimal.Decimal // payments.amount
	TransactionID    string          // payments.transaction_id
	Status           PaymentStatus   // payments.status
	CreatedAt        time.Time       // payments.created_at
}
