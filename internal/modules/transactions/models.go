package transactions

import "github.com/shopspring/decimal"

// CreateTransactionRequest is the request body for creating a transaction.
// All fields are required.
type CreateTransactionRequest struct {
	PortfolioFundID string          `json:"portfolioFundId"`
	Date            string          `json:"date"`
	Type            string          `json:"type"`
	Shares          decimal.Decimal `json:"shares"`
	CostPerShare    decimal.Decimal `json:"costPerShare"`
}

// UpdateTransactionRequest is the request body for updating a transaction.
// All fields are optional; only provided fields are changed.
type UpdateTransactionRequest struct {
	Date         *string          `json:"date,omitempty"`
	Type         *string          `json:"type,omitempty"`
	Shares       *decimal.Decimal `json:"shares,omitempty"`
	CostPerShare *decimal.Decimal `json:"costPerShare,omitempty"`
}
