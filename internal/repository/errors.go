package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInsufficientFunds: available balance below the requested debit/lock.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientLocked: locked sub-balance below the requested unlock/settle.
	ErrInsufficientLocked = errors.New("insufficient locked balance")
	// ErrItemNotOwned: item missing, reserved, or owned by someone else.
	ErrItemNotOwned = errors.New("item not owned")
	// ErrOfferUnavailable: offer not ACTIVE, expired, or already taken by
	// another transaction.
	ErrOfferUnavailable = errors.New("offer unavailable")
)

// isUniqueViolation reports whether err is a Postgres 23505. Used by the
// market transaction gate: the second writer on an offer hits the partial
// unique index instead of racing the first.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
