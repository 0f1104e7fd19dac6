package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/service"
	"github.com/iliyamo/travel-booking/internal/utils"
)

type okDB struct{}

func (okDB) PingContext(context.Context) error { return nil }

type echoPayments struct{ lastRef string }

func (p *echoPayments) Initiate(context.Context, service.InitiateRequest) (service.Result, error) {
	return service.Result{Payload: json.RawMessage(`{"status":"success"}`), OK: true}, nil
}

func (p *echoPayments) Verify(_ context.Context, ref string) (service.Result, error) {
	p.lastRef = ref
	return service.Result{Payload: json.RawMessage(`{"status":"success"}`)}, nil
}

type allBookings struct{}

func (allBookings) Exists(context.Context, uint64) (bool, error) { return true, nil }

type nopJobs struct{ n int }

func (j *nopJobs) Enqueue(context.Context, queue.JobKind, uint64) error { j.n++; return nil }

func setup(t *testing.T) (*echo.Echo, *echoPayments, *nopJobs) {
	t.Helper()
	e := echo.New()
	pay := &echoPayments{}
	jobs := &nopJobs{}
	RegisterRoutes(e, okDB{})
	RegisterPayments(e, handler.NewPaymentHandler(pay), config.RateLimitConfig{Enabled: true}, nil)
	RegisterOps(e, &handler.BookingHandler{Bookings: allBookings{}, Jobs: jobs}, "s3cret")
	return e, pay, jobs
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	e, pay, _ := setup(t)

	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/initiate-payment/",
		strings.NewReader(`{"booking_reference":"BR1","amount":"10","email":"a@b.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/api/verify-payment/BR1", nil)).Code)
	assert.Equal(t, "BR1", pay.lastRef)
}

func TestRoutes_OpsRequireAdmin(t *testing.T) {
	e, _, jobs := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/3/confirmation", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	customer, err := utils.NewAccessToken("s3cret", 1, "CUSTOMER", time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/bookings/3/confirmation", nil)
	req.Header.Set("Authorization", "Bearer "+customer.Token)
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	admin, err := utils.NewAccessToken("s3cret", 1, "ADMIN", time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/bookings/3/confirmation", nil)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	assert.Equal(t, http.StatusAccepted, serve(e, req).Code)
	assert.Equal(t, 1, jobs.n)
}
