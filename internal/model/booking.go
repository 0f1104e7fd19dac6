package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is a property that travelers can book.
type Listing struct {
	ID            uint64          // listings.id
	Title         string          // listings.title
	Location      string          // listings.location
	PricePerNight decimal.Decimal // listings.price_per_night
}

// Booking is a traveler's reservation of a listing.  Bookings are owned
// by the booking management side of the application; the notification
// worker only reads them to render confirmation emails.
//
// Fields:
//
//	ID        – primary key identifier.
//	ListingID – the booked listing.
//	UserName  – display name used in the email greeting.
//	UserEmail – recipient of the confirmation email.
//	CheckIn   – first night.
//	CheckOut  – departure day.
//	CreatedAt – creation timestamp.
type Booking struct {
	ID        uint64    // bookings.id
	ListingID uint64    // bookings.listing_id
	UserName  string    // bookings.user_name
	UserEmail string    // bookings.user_email
	CheckIn   time.Time // bookings.check_in
	CheckOut  time.Time // bookings.check_out
	CreatedAt time.Time // bookings.created_at
}

// BookingDetail is a booking joined with its listing, which is everything
// the booking confirmation email needs.
type BookingDetail struct {
	Booking
	Listing Listing
}
