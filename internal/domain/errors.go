package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound marks lookups of unknown portfolios, funds, holdings,
// transactions or dividends. Surfaced to the caller, never retried.
var ErrNotFound = errors.New("not found")

// OversellError rejects a sell that would drive a holding's share count
// negative. The write is refused and the ledger left untouched; shares are
// never silently clamped to zero.
type OversellError struct {
	PortfolioFundID string
	Date            string
	Requested       decimal.Decimal
	Held            decimal.Decimal
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("cannot sell %s shares of holding %s on %s: only %s held",
		e.Requested, e.PortfolioFundID, e.Date, e.Held)
}

// AllocationValidationError rejects an allocation set before anything is
// created: percentages off 100%, or a source transaction in the wrong state.
type AllocationValidationError struct {
	SourceID string
	Reason   string
}

func (e *AllocationValidationError) Error() string {
	return fmt.Sprintf("invalid allocation for transaction %s: %s", e.SourceID, e.Reason)
}

// LoadError reports a bulk load that referenced unknown holdings.
// It wraps ErrNotFound so callers can match with errors.Is.
type LoadError struct {
	MissingIDs []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unknown holdings: %v", e.MissingIDs)
}

func (e *LoadError) Unwrap() error { return ErrNotFound }
