// Package repository implements MySQL persistence for payments and the
// read side of bookings.  Sentinel errors defined here let the service
// layer distinguish "no such row" from infrastructure failures without
// depending on database/sql.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrPaymentNotFound is returned when no payment matches the lookup key.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrBookingNotFound is returned when no booking matches the given id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateTransaction is returned by PaymentRepo.Create when a payment
// with the same transaction id already exists.
var ErrDuplicateTransaction = errors.New("duplicate transaction id")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	// sqlite reports constraint failures only through the message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
