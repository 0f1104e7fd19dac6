package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Initialize(t *testing.T) {
	var got InitializeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"tx_ref":"BR100"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/v1/", "sk_test")
	raw, err := c.Initialize(context.Background(), InitializeRequest{
		Amount:      decimal.NewFromInt(500),
		Currency:    "ETB",
		Email:       "a@b.com",
		TxRef:       "BR100",
		CallbackURL: "http://site/api/verify-payment/",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","data":{"tx_ref":"BR100"}}`, string(raw))
	assert.Equal(t, "BR100", got.TxRef)
	assert.Equal(t, "ETB", got.Currency)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(500)))
}

func TestClient_Verify_EscapesReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/BR%2F1", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"status":"success","data":{"status":"success"}}`))
	}))
	defer srv.Close()

	raw, err := New(srv.URL, "k").Verify(context.Background(), "BR/1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"success"`)
}

func TestClient_ProviderFailureIsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"failed","message":"Invalid currency"}`))
	}))
	defer srv.Close()

	raw, err := New(srv.URL, "k").Initialize(context.Background(), InitializeRequest{})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Invalid currency")
}

func TestClient_NonJSONIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Verify(context.Background(), "x")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "verify", te.Op)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k", WithTimeout(20*time.Millisecond)).Verify(context.Background(), "x")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Timeout())
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(addr, "k").Initialize(context.Background(), InitializeRequest{})
	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestWithTimeout_LeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c := New("http://gateway.invalid", "k", WithHTTPClient(shared), WithTimeout(time.Second))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, time.Second, c.http.Timeout)
	assert.NotSame(t, shared, c.http)

	assert.Equal(t, DefaultTimeout, New("http://gateway.invalid", "k").http.Timeout)
	assert.Same(t, shared, New("http://gateway.invalid", "k", WithHTTPClient(shared), WithTimeout(0)).http)
}
