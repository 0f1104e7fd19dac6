package repository

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/travel-booking/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every pooled connection would get its own in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema := []string{
		`CREATE TABLE listings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			location TEXT NOT NULL,
			price_per_night DECIMAL(10,2) NOT NULL
		)`,
		`CREATE TABLE bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			listing_id INTEGER NOT NULL REFERENCES listings(id),
			user_name TEXT NOT NULL,
			user_email TEXT NOT NULL,
			check_in DATE NOT NULL,
			check_out DATE NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_reference TEXT NOT NULL,
			amount DECIMAL(12,2) NOT NULL,
			transaction_id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func newPayment(txRef string) *model.Payment {
	return &model.Payment{
		BookingReference: txRef,
		Amount:           decimal.NewFromInt(500),
		TransactionID:    txRef,
	}
}

func TestPaymentRepo_CreateAndGet(t *testing.T) {
	repo := NewPaymentRepo(setupTestDB(t))
	ctx := context.Background()

	p := newPayment("BR100")
	require.NoError(t, repo.Create(ctx, p))
	assert.NotZero(t, p.ID)
	assert.Equal(t, model.PaymentPending, p.Status)

	got, err := repo.GetByTransactionID(ctx, "BR100")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "BR100", got.BookingReference)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(500)), "amount %s", got.Amount)
	assert.Equal(t, model.PaymentPending, got.Status)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Second)

	byID, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "BR100", byID.TransactionID)
}

func TestPaymentRepo_NotFound(t *testing.T) {
	repo := NewPaymentRepo(setupTestDB(t))

	_, err := repo.GetByTransactionID(context.Background(), "UNKNOWN")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestPaymentRepo_UnknownStoredStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRepo(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO payments (booking_reference, amount, transaction_id, status, created_at)
		VALUES ('BR7', 10, 'BR7', 'Refunded', ?)`, time.Now().UTC())
	require.NoError(t, err)

	_, err = repo.GetByTransactionID(ctx, "BR7")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentNotFound)
	assert.Contains(t, err.Error(), `unknown status "Refunded"`)
}

func TestPaymentRepo_CreateDuplicateTransaction(t *testing.T) {
	repo := NewPaymentRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newPayment("BR1")))
	err := repo.Create(ctx, newPayment("BR1"))
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
}

func TestPaymentRepo_TransitionStatus_ForwardOnly(t *testing.T) {
	repo := NewPaymentRepo(setupTestDB(t))
	ctx := context.Background()
	p := newPayment("BR2")
	require.NoError(t, repo.Create(ctx, p))

	changed, err := repo.TransitionStatus(ctx, p.ID, model.PaymentCompleted)
	require.NoError(t, err)
	assert.True(t, changed)

	// a settled payment never moves again
	changed, err = repo.TransitionStatus(ctx, p.ID, model.PaymentFailed)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, got.Status)
}

func TestPaymentRepo_TransitionStatus_RejectsPending(t *testing.T) {
	repo := NewPaymentRepo(setupTestDB(t))
	_, err := repo.TransitionStatus(context.Background(), 1, model.PaymentPending)
	assert.Error(t, err)
}

func TestPaymentRepo_TransitionStatus_ConcurrentSingleWinner(t *testing.T) {
	repo := NewPaymentRepo(setupTestDB(t))
	ctx := context.Background()
	p := newPayment("BR-race")
	require.NoError(t, repo.Create(ctx, p))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TransitionStatus(ctx, p.ID, model.PaymentCompleted)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestBookingRepo_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepo(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO listings (title, location, price_per_night) VALUES (?, ?, ?)`,
		"Lake House", "Bishoftu", "120.50")
	require.NoError(t, err)
	checkIn := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 11, 4, 0, 0, 0, 0, time.UTC)
	res, err := db.Exec(`INSERT INTO bookings (listing_id, user_name, user_email, check_in, check_out, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		1, "Abebe", "abebe@example.com", checkIn, checkOut, time.Now().UTC())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	d, err := repo.GetByID(ctx, uint64(id))
	require.NoError(t, err)
	assert.Equal(t, "Abebe", d.UserName)
	assert.Equal(t, "abebe@example.com", d.UserEmail)
	assert.Equal(t, "Lake House", d.Listing.Title)
	assert.Equal(t, "Bishoftu", d.Listing.Location)
	assert.True(t, d.Listing.PricePerNight.Equal(decimal.RequireFromString("120.5")))
	assert.True(t, d.CheckIn.Equal(checkIn))

	ok, err := repo.Exists(ctx, uint64(id))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBookingRepo_Missing(t *testing.T) {
	repo := NewBookingRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	ok, err := repo.Exists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}
