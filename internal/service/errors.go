package service

import (
	"errors"
	"strings"
)

// ValidationError lists the request fields that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid or missing fields: " + strings.Join(e.Fields, ", ")
}

// ErrGatewayUnavailable wraps transport failures talking to the payment
// gateway.  No retry is attempted at this layer.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrNotFound is returned when verify is called for an unknown
// transaction reference.
var ErrNotFound = errors.New("payment not found")
