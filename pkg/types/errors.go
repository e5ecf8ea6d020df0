package types

import (
	"errors"
	"strings"
)

// Submission and pre-flight errors. Each maps to a distinct user-facing
// message; all are recoverable by retrying.
var (
	// ErrInsufficientNativeBalance is raised locally, before the wallet is
	// contacted, when the account's native balance cannot cover the quote's
	// required value.
	ErrInsufficientNativeBalance = errors.New("insufficient native balance for swap value")
	// ErrSignatureDenied is raised when the user rejects the signing request.
	ErrSignatureDenied = errors.New("transaction signature denied")
	// ErrTransactionValueTooLow is raised when the simulated transaction
	// carries less native value than the swap requires.
	ErrTransactionValueTooLow = errors.New("transaction value too low")
	// ErrCouldNotSubmitTransaction covers every other submission failure.
	ErrCouldNotSubmitTransaction = errors.New("could not submit transaction")
	// ErrNoQuote is returned when an action requires a quote and none is held.
	ErrNoQuote = errors.New("no swap quote available")
	// ErrNoAccount is returned when an action requires a connected account.
	ErrNoAccount = errors.New("no connected account")
)

// QuoteError is a failure reported by the quote API (network failure, non-200
// status, or an API-stated reason such as unavailable liquidity).
type QuoteError struct {
	Reason string
	Err    error
}

func (e *QuoteError) Error() string {
	if e.Reason != "" {
		return "quote request failed: " + e.Reason
	}
	return "quote request failed: " + e.Err.Error()
}

func (e *QuoteError) Unwrap() error { return e.Err }

// ClassifySubmitError folds a raw wallet/provider error into one of the
// sentinel submission errors. Wallet implementations word rejection
// differently, so matching is substring-based.
func ClassifySubmitError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSignatureDenied) || errors.Is(err, ErrTransactionValueTooLow) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "denied transaction signature"),
		strings.Contains(msg, "user denied"),
		strings.Contains(msg, "user rejected"):
		return ErrSignatureDenied
	case strings.Contains(msg, "transaction value too low"),
		strings.Contains(msg, "insufficient funds for transfer"):
		return ErrTransactionValueTooLow
	default:
		return ErrCouldNotSubmitTransaction
	}
}
