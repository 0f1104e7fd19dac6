package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
)

// PaymentRepo persists payment attempts.  Status changes go through
// TransitionStatus only, which enforces the forward-only lifecycle in the
// database rather than in application code.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, booking_reference, amount, transaction_id, status, created_at`

// Create inserts a new payment in the Pending state and populates the
// generated ID and creation time on p.  ErrDuplicateTransaction is
// returned when the transaction id is already recorded.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	p.Status = model.PaymentPending
	p.CreatedAt = time.Now().UTC()
	const q = `INSERT INTO payments (booking_reference, amount, transaction_id, status, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.BookingReference, p.Amount, p.TransactionID, string(p.Status), p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	p.ID = uint64(id)
	return nil
}

// GetByTransactionID returns the payment recorded for a gateway
// transaction reference, or ErrPaymentNotFound.
func (r *PaymentRepo) GetByTransactionID(ctx context.Context, txRef string) (*model.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = ? LIMIT 1`, txRef)
	return scanPayment(row)
}

// GetByID returns the payment with the given primary key, or ErrPaymentNotFound.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	return scanPayment(row)
}

// TransitionStatus moves a Pending payment to a settled status in a single
// conditional UPDATE.  It reports false when the payment was no longer
// Pending (another verify won the race, or it was settled earlier), in
// which case nothing is written.
func (r *PaymentRepo) TransitionStatus(ctx context.Context, id uint64, to model.PaymentStatus) (bool, error) {
	if !to.Settled() {
		return false, fmt.Errorf("invalid target status %q", to)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(model.PaymentPending))
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	return n == 1, nil
}

func scanPayment(row *sql.Row) (*model.Payment, error) {
	var (
		p      model.Payment
		status string
	)
	if err := row.Scan(&p.ID, &p.BookingReference, &p.Amount, &p.TransactionID, &status, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	if !p.Status.Valid() {
		return nil, fmt.Errorf("payment %d: unknown status %q", p.ID, status)
	}
	return &p, nil
}
