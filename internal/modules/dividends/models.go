package dividends

import "github.com/shopspring/decimal"

// CreateDividendRequest is the request body for creating a dividend.
// Reinvestment fields apply to stock dividends only and may arrive later
// via an update.
type CreateDividendRequest struct {
	PortfolioFundID    string           `json:"portfolioFundId"`
	RecordDate         string           `json:"recordDate"`
	ExDividendDate     string           `json:"exDividendDate"`
	DividendPerShare   decimal.Decimal  `json:"dividendPerShare"`
	DividendType       string           `json:"dividendType,omitempty"`
	BuyOrderDate       *string          `json:"buyOrderDate,omitempty"`
	ReinvestmentShares *decimal.Decimal `json:"reinvestmentShares,omitempty"`
	ReinvestmentPrice  *decimal.Decimal `json:"reinvestmentPrice,omitempty"`
}

// UpdateDividendRequest is the request body for updating a dividend.
// All fields are optional; only provided fields are changed.
type UpdateDividendRequest struct {
	RecordDate         *string          `json:"recordDate,omitempty"`
	ExDividendDate     *string          `json:"exDividendDate,omitempty"`
	DividendPerShare   *decimal.Decimal `json:"dividendPerShare,omitempty"`
	DividendType       *string          `json:"dividendType,omitempty"`
	BuyOrderDate       *string          `json:"buyOrderDate,omitempty"`
	ReinvestmentShares *decimal.Decimal `json:"reinvestmentShares,omitempty"`
	ReinvestmentPrice  *decimal.Decimal `json:"reinvestmentPrice,omitempty"`
}
