package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/travel-booking/internal/model"
)

// BookingRepo is the read side of bookings.  Creating and editing
// bookings happens elsewhere; this subsystem only needs to look them up
// to render confirmation emails.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// GetByID loads a booking together with its listing.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	const q = `SELECT b.id, b.listing_id, b.user_name, b.user_email, b.check_in, b.check_out, b.created_at,
		l.id, l.title, l.location, l.price_per_night
		FROM bookings b
		JOIN listings l ON l.id = b.listing_id
		WHERE b.id = ?`
	var d model.BookingDetail
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.ListingID, &d.UserName, &d.UserEmail, &d.CheckIn, &d.CheckOut, &d.CreatedAt,
		&d.Listing.ID, &d.Listing.Title, &d.Listing.Location, &d.Listing.PricePerNight,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Exists reports whether a booking with the given id exists.
func (r *BookingRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
