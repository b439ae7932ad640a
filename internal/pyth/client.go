package pyth

import (
	"context"
	"errors"
	"fmt"
)

// Client is the account-fetching collaborator the observer polls. RefreshAll
// pulls a fresh snapshot; ListProducts and GetPrices read from that snapshot
// until the next refresh.
type Client interface {
	RefreshAll(ctx context.Context) error
	ListProducts(ctx context.Context) ([]Product, error)
	GetPrices(ctx context.Context, product Product) (map[string]*PriceAccount, error)
}

// TransientError marks a recoverable fetch failure. The polling loop logs it,
// pauses briefly, and retries the cycle instead of terminating.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
