package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/service"
)

// PaymentService is the subset of service.PaymentService the handlers use.
type PaymentService interface {
	Initiate(ctx context.Context, req service.InitiateRequest) (service.Result, error)
	Verify(ctx context.Context, txRef string) (service.Result, error)
}

// PaymentHandler exposes the payment flow over HTTP.  Gateway payloads are
// passed through to the client untouched so it can see provider detail.
type PaymentHandler struct {
	Payments PaymentService
}

// NewPaymentHandler panics when svc is nil.
func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	if svc == nil {
		panic("nil payment service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: svc}
}

// Initiate handles POST /api/initiate-payment/.  The body is a JSON object
// with booking_reference, amount and email.  Responses:
//
//	200  gateway accepted; body is the gateway payload
//	400  missing/invalid fields, or the gateway rejected the request
//	     (body is then the gateway payload)
//	500  the gateway could not be reached
func (h *PaymentHandler) Initiate(c echo.Context) error {
	var req service.InitiateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Payments.Initiate(c.Request().Context(), req)
	if err != nil {
		return paymentError(c, err)
	}
	if !res.OK {
		return c.JSONBlob(http.StatusBadRequest, res.Payload)
	}
	return c.JSONBlob(http.StatusOK, res.Payload)
}

// Verify handles GET /api/verify-payment/:tx_ref.  The gateway's redirect to
// the callback URL carries the reference as a query parameter instead, so
// tx_ref and trx_ref are accepted there too.  Responses:
//
//	200  gateway payload, whether the payment succeeded or not
//	404  no payment recorded for the reference
//	500  the gateway could not be reached
func (h *PaymentHandler) Verify(c echo.Context) error {
	txRef := c.Param("tx_ref")
	if txRef == "" {
		txRef = c.QueryParam("tx_ref")
	}
	if txRef == "" {
		txRef = c.QueryParam("trx_ref")
	}
	res, err := h.Payments.Verify(c.Request().Context(), txRef)
	if err != nil {
		return paymentError(c, err)
	}
	return c.JSONBlob(http.StatusOK, res.Payload)
}

func paymentError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields", "fields": ve.Fields})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("payment handler: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
