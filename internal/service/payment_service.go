// Package service implements the payment flow: initiating a transaction
// at the gateway, verifying it, recording the outcome and queueing the
// confirmation email.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/travel-booking/internal/gateway"
	"github.com/iliyamo/travel-booking/internal/metrics"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
)

// PaymentStore is the persistence the payment flow needs.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByTransactionID(ctx context.Context, txRef string) (*model.Payment, error)
	TransitionStatus(ctx context.Context, id uint64, to model.PaymentStatus) (bool, error)
}

// Gateway is the payment provider client.
type Gateway interface {
	Initialize(ctx context.Context, req gateway.InitializeRequest) (json.RawMessage, error)
	Verify(ctx context.Context, txRef string) (json.RawMessage, error)
}

// JobEnqueuer queues background notification jobs.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, kind queue.JobKind, entityID uint64) error
}

// InitiateRequest is the input to Initiate.  Amount is a pointer so that an
// absent amount can be told apart from zero.
type InitiateRequest struct {
	BookingReference string           `json:"booking_reference"`
	Amount           *decimal.Decimal `json:"amount"`
	Email            string           `json:"email"`
}

// Result carries the gateway's raw payload back to the caller along with
// whether the gateway reported success.
type Result struct {
	Payload json.RawMessage
	OK      bool
}

// envelope is the part of the gateway's response this service reads.
type envelope struct {
	Status string `json:"status"`
	Data   *struct {
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	} `json:"data"`
}

const statusSuccess = "success"

// PaymentService orchestrates initiate and verify.
type PaymentService struct {
	Payments    PaymentStore
	Gateway     Gateway
	Jobs        JobEnqueuer
	Currency    string
	CallbackURL string
	Metrics     *metrics.Metrics
}

// Initiate validates req, starts a transaction at the gateway and, when the
// gateway accepts it, records a Pending payment.  A gateway rejection is
// not an error: the payload is returned with OK=false and nothing is
// stored.
func (s *PaymentService) Initiate(ctx context.Context, req InitiateRequest) (Result, error) {
	if err := validateInitiate(req); err != nil {
		s.Metrics.PaymentInitiated("invalid")
		return Result{}, err
	}
	ref := strings.TrimSpace(req.BookingReference)

	start := time.Now()
	raw, err := s.Gateway.Initialize(ctx, gateway.InitializeRequest{
		Amount:      *req.Amount,
		Currency:    s.Currency,
		Email:       strings.TrimSpace(req.Email),
		TxRef:       ref,
		CallbackURL: s.CallbackURL,
	})
	s.Metrics.ObserveGateway("initialize", start)
	if err != nil {
		s.Metrics.PaymentInitiated("gateway_error")
		log.Printf("payment: initialize ref=%s failed: %v", ref, err)
		return Result{}, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)
	if env.Status != statusSuccess {
		s.Metrics.PaymentInitiated("rejected")
		log.Printf("payment: initialize ref=%s rejected by gateway (status=%q)", ref, env.Status)
		return Result{Payload: raw}, nil
	}

	txID := ref
	if env.Data != nil && env.Data.TxRef != "" {
		txID = env.Data.TxRef
	}
	p := &model.Payment{
		BookingReference: ref,
		Amount:           *req.Amount,
		TransactionID:    txID,
	}
	if err := s.Payments.Create(ctx, p); err != nil {
		if !errors.Is(err, repository.ErrDuplicateTransaction) {
			s.Metrics.PaymentInitiated("store_error")
			return Result{}, fmt.Errorf("record payment: %w", err)
		}
		log.Printf("payment: tx=%s already recorded; keeping existing record", txID)
	} else {
		log.Printf("payment: recorded pending payment id=%d tx=%s amount=%s", p.ID, txID, p.Amount)
	}
	s.Metrics.PaymentInitiated("accepted")
	return Result{Payload: raw, OK: true}, nil
}

// Verify asks the gateway for the outcome of txRef and settles the local
// payment accordingly.  Only the call that actually moves the payment from
// Pending to Completed queues a confirmation email, so concurrent or
// repeated verifies never send duplicates.  The gateway payload is
// returned whatever the outcome.
func (s *PaymentService) Verify(ctx context.Context, txRef string) (Result, error) {
	txRef = strings.TrimSpace(txRef)
	if txRef == "" {
		return Result{}, &ValidationError{Fields: []string{"tx_ref"}}
	}
	p, err := s.Payments.GetByTransactionID(ctx, txRef)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		s.Metrics.PaymentVerified("not_found")
		return Result{}, ErrNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("load payment: %w", err)
	}

	start := time.Now()
	raw, err := s.Gateway.Verify(ctx, txRef)
	s.Metrics.ObserveGateway("verify", start)
	if err != nil {
		s.Metrics.PaymentVerified("gateway_error")
		log.Printf("payment: verify tx=%s failed: %v", txRef, err)
		return Result{}, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)
	paid := env.Status == statusSuccess && env.Data != nil && env.Data.Status == statusSuccess

	to := model.PaymentFailed
	if paid {
		to = model.PaymentCompleted
	}
	changed, err := s.Payments.TransitionStatus(ctx, p.ID, to)
	if err != nil {
		return Result{}, fmt.Errorf("settle payment: %w", err)
	}
	if !changed {
		s.Metrics.PaymentVerified("already_settled")
		log.Printf("payment: tx=%s already settled (was %s); no change", txRef, p.Status)
		return Result{Payload: raw, OK: paid}, nil
	}

	if !paid {
		s.Metrics.PaymentVerified("failed")
		log.Printf("payment: tx=%s marked Failed", txRef)
		return Result{Payload: raw}, nil
	}

	s.Metrics.PaymentVerified("completed")
	if err := s.Jobs.Enqueue(ctx, queue.KindPaymentConfirmation, p.ID); err != nil {
		log.Printf("payment: tx=%s completed but confirmation not queued: %v", txRef, err)
	} else {
		log.Printf("payment: tx=%s completed; confirmation queued (payment=%d)", txRef, p.ID)
	}
	return Result{Payload: raw, OK: true}, nil
}

// Limits of the payments table: booking_reference is VARCHAR(100) and
// amount is DECIMAL(12,2).
const (
	maxReferenceLen = 100
	amountScale     = 2
)

var maxAmount = decimal.New(1, 10) // exclusive; 10 integer digits

func validateInitiate(req InitiateRequest) error {
	var bad []string
	if ref := strings.TrimSpace(req.BookingReference); ref == "" || utf8.RuneCountInString(ref) > maxReferenceLen {
		bad = append(bad, "booking_reference")
	}
	if a := req.Amount; a == nil || !a.IsPositive() || !a.Equal(a.Truncate(amountScale)) || a.GreaterThanOrEqual(maxAmount) {
		bad = append(bad, "amount")
	}
	if email := strings.TrimSpace(req.Email); email == "" {
		bad = append(bad, "email")
	} else if _, err := mail.ParseAddress(email); err != nil {
		bad = append(bad, "email")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}
