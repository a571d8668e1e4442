package ibkr

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// ImportTransactionRequest is one broker transaction pushed into the inbox.
// IBKRTransactionID is the broker's own identifier and dedupes re-imports.
type ImportTransactionRequest struct {
	IBKRTransactionID string          `json:"ibkrTransactionId"`
	Date              string          `json:"transactionDate"`
	Symbol            string          `json:"symbol,omitempty"`
	ISIN              string          `json:"isin,omitempty"`
	Description       string          `json:"description,omitempty"`
	Type              string          `json:"transactionType"`
	Quantity          decimal.Decimal `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Currency          string          `json:"currency"`
	Fees              decimal.Decimal `json:"fees"`
}

// ImportResult reports one import attempt. Imported is false when the
// broker id was already known and the row was left untouched.
type ImportResult struct {
	Transaction *domain.IBKRTransaction `json:"transaction"`
	Imported    bool                    `json:"imported"`
}

// AllocateRequest distributes one pending broker transaction across
// portfolios.
type AllocateRequest struct {
	Allocations []domain.Allocation `json:"allocations"`
}

// BulkAllocateItem is one entry of a bulk allocation request
type BulkAllocateItem struct {
	SourceID    string              `json:"ibkrTransactionId"`
	Allocations []domain.Allocation `json:"allocations"`
}

// BulkAllocateResult reports the outcome for one source of a bulk run.
// Sources fail independently; Error is empty on success.
type BulkAllocateResult struct {
	SourceID string `json:"ibkrTransactionId"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Config is the broker integration configuration: whether the scheduler
// may allocate pending transactions on its own, and how to split them.
type Config struct {
	AutoAllocateEnabled bool                `json:"autoAllocateEnabled"`
	DefaultAllocations  []domain.Allocation `json:"defaultAllocations"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// UpdateConfigRequest is a partial configuration edit
type UpdateConfigRequest struct {
	AutoAllocateEnabled *bool                `json:"autoAllocateEnabled,omitempty"`
	DefaultAllocations  *[]domain.Allocation `json:"defaultAllocations,omitempty"`
}
