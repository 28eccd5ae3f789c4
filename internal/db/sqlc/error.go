package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	UniqueViolationCode = "23505"
)

const (
	UniqueEmailConstraint = "users_email_key"
)

var ErrRecordNotFound = pgx.ErrNoRows

// ErrQuantityExhausted reports that a sale would decrement a lot's durable
// remaining quantity below zero.
var ErrQuantityExhausted = errors.New("lot quantity exhausted")

// ErrLotNotSellable reports that the durable lot row is not in a phase that
// accepts sales.
var ErrLotNotSellable = errors.New("lot is not in a sellable phase")

// ErrorDescription returns the error code and constraint name from a Postgres error.
func ErrorDescription(err error) (errCode string, constraintName string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}

	return
}
