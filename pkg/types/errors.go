package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount is returned for zero, negative or unparsable trade amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrQuoteUnavailable matches every *QuoteError.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrExecutionTimeout marks an execution that did not settle within its deadline.
	ErrExecutionTimeout = errors.New("execution timeout")

	// ErrExecutionFailed marks an execution the Trade Executor reported as failed.
	ErrExecutionFailed = errors.New("execution failed")

	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrInvalidAddress     = errors.New("invalid wallet address")
	ErrInvalidFilter      = errors.New("invalid strategy filter")
	ErrInvalidRoute       = errors.New("invalid route")
	ErrUnknownToken       = errors.New("unknown token")
	ErrUnknownRoute       = errors.New("unknown route")
)

// QuoteError is a Quote Provider failure for one leg.
// Permanent failures disable the route; transient ones are retried next cycle.
type QuoteError struct {
	Sell      string
	Buy       string
	Permanent bool
	Err       error
}

func (e *QuoteError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}

	if e.Err != nil {
		return fmt.Sprintf("quote %s->%s unavailable (%s): %v", e.Sell, e.Buy, kind, e.Err)
	}

	return fmt.Sprintf("quote %s->%s unavailable (%s)", e.Sell, e.Buy, kind)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrQuoteUnavailable) hold for every QuoteError.
func (e *QuoteError) Is(target error) bool {
	return target == ErrQuoteUnavailable
}

// NewTransientQuoteError wraps err as a retry-next-cycle failure.
func NewTransientQuoteError(sell, buy string, err error) *QuoteError {
	return &QuoteError{Sell: sell, Buy: buy, Err: err}
}

// NewPermanentQuoteError wraps err as a route-disabling failure.
func NewPermanentQuoteError(sell, buy string, err error) *QuoteError {
	return &QuoteError{Sell: sell, Buy: buy, Permanent: true, Err: err}
}

// IsPermanentQuoteError reports whether err carries a permanent QuoteError.
func IsPermanentQuoteError(err error) bool {
	var qe *QuoteError
	if errors.As(err, &qe) {
		return qe.Permanent
	}
	return false
}
