package valuation

import "github.com/shopspring/decimal"

// HoldingValuation is one holding's state on one date. Monetary fields are
// rounded to two decimals at this boundary; share counts stay exact.
type HoldingValuation struct {
	PortfolioFundID string          `json:"portfolioFundId"`
	PortfolioID     string          `json:"portfolioId"`
	FundID          string          `json:"fundId"`
	Shares          decimal.Decimal `json:"shares"`
	Price           decimal.Decimal `json:"price"`
	PriceMissing    bool            `json:"priceMissing,omitempty"`
	MarketValue     decimal.Decimal `json:"marketValue"`
	CostBasis       decimal.Decimal `json:"costBasis"`
	RealizedGain    decimal.Decimal `json:"realizedGain"`
	UnrealizedGain  decimal.Decimal `json:"unrealizedGain"`
}

// Aggregate sums valuations over a set of holdings
type Aggregate struct {
	Value          decimal.Decimal `json:"value"`
	Cost           decimal.Decimal `json:"cost"`
	RealizedGain   decimal.Decimal `json:"realizedGain"`
	UnrealizedGain decimal.Decimal `json:"unrealizedGain"`
}

func (a *Aggregate) add(h HoldingValuation) {
	a.Value = a.Value.Add(h.MarketValue)
	a.Cost = a.Cost.Add(h.CostBasis)
	a.RealizedGain = a.RealizedGain.Add(h.RealizedGain)
	a.UnrealizedGain = a.UnrealizedGain.Add(h.UnrealizedGain)
}

func (a *Aggregate) addAggregate(b Aggregate) {
	a.Value = a.Value.Add(b.Value)
	a.Cost = a.Cost.Add(b.Cost)
	a.RealizedGain = a.RealizedGain.Add(b.RealizedGain)
	a.UnrealizedGain = a.UnrealizedGain.Add(b.UnrealizedGain)
}

// PortfolioValuation aggregates one portfolio's holdings on one date
type PortfolioValuation struct {
	PortfolioID string `json:"portfolioId"`
	Aggregate
}

// DayValuation is one element of the valuation time series
type DayValuation struct {
	Date       string               `json:"date"`
	Holdings   []HoldingValuation   `json:"holdings"`
	Portfolios []PortfolioValuation `json:"portfolios"`
	Totals     Aggregate            `json:"totals"`
}

// CurrentPosition is the present-day summary for a single holding
type CurrentPosition struct {
	PortfolioFundID string          `json:"portfolioFundId"`
	Date            string          `json:"date"`
	Shares          decimal.Decimal `json:"shares"`
	AvgCost         decimal.Decimal `json:"avgCost"`
	CostBasis       decimal.Decimal `json:"costBasis"`
	RealizedGain    decimal.Decimal `json:"realizedGain"`
	UnrealizedGain  decimal.Decimal `json:"unrealizedGain"`
	MarketValue     decimal.Decimal `json:"marketValue"`
	Price           decimal.Decimal `json:"price"`
	PriceMissing    bool            `json:"priceMissing,omitempty"`
	SaleProceeds    decimal.Decimal `json:"saleProceeds"`
	CostOfSold      decimal.Decimal `json:"costOfSold"`
}
