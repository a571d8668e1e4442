package portfolios

import (
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
)

// CreatePortfolioRequest is the request body for creating a portfolio
type CreatePortfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdatePortfolioRequest is the request body for updating a portfolio.
// All fields are optional; only provided fields are changed.
type UpdatePortfolioRequest struct {
	Name                *string `json:"name,omitempty"`
	Description         *string `json:"description,omitempty"`
	IsArchived          *bool   `json:"isArchived,omitempty"`
	ExcludeFromOverview *bool   `json:"excludeFromOverview,omitempty"`
}

// Summary is a portfolio's aggregate state on one date
type Summary struct {
	PortfolioID    string                       `json:"portfolioId"`
	Date           string                       `json:"date"`
	Value          decimal.Decimal              `json:"value"`
	Cost           decimal.Decimal              `json:"cost"`
	RealizedGain   decimal.Decimal              `json:"realizedGain"`
	UnrealizedGain decimal.Decimal              `json:"unrealizedGain"`
	TotalDividends decimal.Decimal              `json:"totalDividends"`
	Holdings       []valuation.HoldingValuation `json:"holdings"`
}

// HistoryPoint is one date of a portfolio's valuation history
type HistoryPoint struct {
	Date           string          `json:"date"`
	Value          decimal.Decimal `json:"value"`
	Cost           decimal.Decimal `json:"cost"`
	RealizedGain   decimal.Decimal `json:"realizedGain"`
	UnrealizedGain decimal.Decimal `json:"unrealizedGain"`
}

// Performance holds risk and return statistics computed over a portfolio's
// valuation history. Ratio metrics are nil when the series is too short or
// flat to support them.
type Performance struct {
	PortfolioID          string   `json:"portfolioId"`
	Start                string   `json:"start"`
	End                  string   `json:"end"`
	StartValue           float64  `json:"startValue"`
	EndValue             float64  `json:"endValue"`
	TotalReturn          *float64 `json:"totalReturn"`
	AnnualizedVolatility *float64 `json:"annualizedVolatility"`
	SharpeRatio          *float64 `json:"sharpeRatio"`
	MaxDrawdown          *float64 `json:"maxDrawdown"`
}
