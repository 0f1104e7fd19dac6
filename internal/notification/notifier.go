// Package notification renders and sends the confirmation emails behind
// the booking_confirmation and payment_confirmation jobs.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/worker"
)

// BookingStore loads bookings for the booking confirmation email.
type BookingStore interface {
	GetByID(ctx context.Context, id uint64) (*model.BookingDetail, error)
}

// PaymentStore loads payments for the payment confirmation email.
type PaymentStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Payment, error)
}

// Notifier holds everything the email handlers need.
type Notifier struct {
	Bookings BookingStore
	Payments PaymentStore
	Mailer   Mailer
	From     string
	// FallbackRecipient receives payment confirmations.  Payments do not
	// record the payer's address, so until they reference a booking there
	// is no real recipient to use.
	FallbackRecipient string
}

// Handlers returns the job registry for a worker.
func (n *Notifier) Handlers() map[queue.JobKind]worker.Handler {
	return map[queue.JobKind]worker.Handler{
		queue.KindBookingConfirmation: n.BookingConfirmation,
		queue.KindPaymentConfirmation: n.PaymentConfirmation,
	}
}

// BookingConfirmation emails the traveler that their booking is confirmed.
func (n *Notifier) BookingConfirmation(ctx context.Context, bookingID uint64) error {
	b, err := n.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		log.Printf("notify: booking %d not found", bookingID)
		return worker.Permanent(err)
	}
	if err != nil {
		return worker.Retryable(fmt.Errorf("load booking %d: %w", bookingID, err))
	}

	body, err := render(bookingTmpl, b)
	if err != nil {
		return worker.Permanent(fmt.Errorf("render booking email: %w", err))
	}
	msg := Message{
		Subject: "Booking Confirmation - " + b.Listing.Title,
		HTML:    body,
		Plain:   StripTags(body),
		From:    n.From,
		To:      []string{b.UserEmail},
	}
	if err := n.Mailer.Send(ctx, msg); err != nil {
		return worker.Retryable(err)
	}
	log.Printf("notify: booking confirmation email sent to %s (booking=%d)", b.UserEmail, b.ID)
	return nil
}

// PaymentConfirmation emails a receipt for a completed payment.
func (n *Notifier) PaymentConfirmation(ctx context.Context, paymentID uint64) error {
	p, err := n.Payments.GetByID(ctx, paymentID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		log.Printf("notify: payment %d not found", paymentID)
		return worker.Permanent(err)
	}
	if err != nil {
		return worker.Retryable(fmt.Errorf("load payment %d: %w", paymentID, err))
	}

	body, err := render(paymentTmpl, p)
	if err != nil {
		return worker.Permanent(fmt.Errorf("render payment email: %w", err))
	}
	msg := Message{
		Subject: "Payment Confirmation - " + p.BookingReference,
		HTML:    body,
		Plain:   StripTags(body),
		From:    n.From,
		To:      []string{n.FallbackRecipient},
	}
	if err := n.Mailer.Send(ctx, msg); err != nil {
		return worker.Retryable(err)
	}
	log.Printf("notify: payment confirmation email sent for %s", p.TransactionID)
	return nil
}
