// Package gateway is a thin HTTP client for the payment provider's
// transaction API.  It knows the endpoints and the authorization scheme
// but does not interpret the provider's status fields; callers receive the
// raw JSON payload and decide what it means.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds every gateway request when the caller does not
// configure one.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// InitializeRequest is the body sent to the initialize endpoint.
type InitializeRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Email       string          `json:"email"`
	TxRef       string          `json:"tx_ref"`
	CallbackURL string          `json:"callback_url"`
}

// TransportError reports that the gateway could not be reached or did not
// answer with JSON.  It never carries a provider-level failure; those come
// back as ordinary payloads.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "gateway " + e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a deadline.
func (e *TransportError) Timeout() bool {
	var ne interface{ Timeout() bool }
	if errors.As(e.Err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Client calls the provider API.  It is safe for concurrent use.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.  The caller owns its
// timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.  A client supplied through
// WithHTTPClient is copied first and left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// New returns a Client for the API rooted at baseURL (for example
// https://api.chapa.co/v1) authenticating with secretKey.
func New(baseURL, secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Initialize starts a transaction at the provider and returns its JSON
// response.  Provider-side rejections are returned as payloads with a nil
// error.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}
	return c.do(ctx, "initialize", http.MethodPost, c.baseURL+"/transaction/initialize", body)
}

// Verify asks the provider for the current state of the transaction
// identified by txRef.
func (c *Client) Verify(ctx context.Context, txRef string) (json.RawMessage, error) {
	return c.do(ctx, "verify", http.MethodGet, c.baseURL+"/transaction/verify/"+url.PathEscape(txRef), nil)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte) (json.RawMessage, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if !json.Valid(raw) {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("non-JSON response (HTTP %d)", resp.StatusCode)}
	}
	return json.RawMessage(raw), nil
}
