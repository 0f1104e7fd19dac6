package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/queue"
)

// BookingLookup reports whether a booking exists.
type BookingLookup interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// JobEnqueuer queues a notification job.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, kind queue.JobKind, entityID uint64) error
}

// BookingHandler lets booking management (and operators) queue booking
// confirmation emails.
type BookingHandler struct {
	Bookings BookingLookup
	Jobs     JobEnqueuer
}

// SendConfirmation handles POST /api/bookings/:id/confirmation.  It
// returns 202 once the job is queued; the email itself is sent by the
// worker.
func (h *BookingHandler) SendConfirmation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	ok, err := h.Bookings.Exists(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if err := h.Jobs.Enqueue(ctx, queue.KindBookingConfirmation, id); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not queue confirmation"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "queued", "booking_id": id})
}
