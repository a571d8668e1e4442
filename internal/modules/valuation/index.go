package valuation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// Index is the in-memory lookup structure built from one loaded Dataset:
// transactions per holding in replay order, a forward-fillable price table
// per fund, and dividends per holding by record date.
type Index struct {
	Holdings           []HoldingInfo
	TxByHolding        map[string][]domain.Transaction
	DividendsByHolding map[string][]domain.Dividend

	pricesByFund map[string][]domain.FundPrice
}

// BuildIndex groups a dataset for constant-time holding lookups. The loader
// already returns transactions in (date, insertion order) and prices in
// (fund, date) order, so grouping preserves sortedness.
func BuildIndex(ds *Dataset) *Index {
	ix := &Index{
		Holdings:           ds.Holdings,
		TxByHolding:        make(map[string][]domain.Transaction),
		DividendsByHolding: make(map[string][]domain.Dividend),
		pricesByFund:       make(map[string][]domain.FundPrice),
	}
	for _, t := range ds.Transactions {
		ix.TxByHolding[t.PortfolioFundID] = append(ix.TxByHolding[t.PortfolioFundID], t)
	}
	for _, p := range ds.Prices {
		ix.pricesByFund[p.FundID] = append(ix.pricesByFund[p.FundID], p)
	}
	for _, d := range ds.Dividends {
		ix.DividendsByHolding[d.PortfolioFundID] = append(ix.DividendsByHolding[d.PortfolioFundID], d)
	}
	return ix
}

// PriceOn returns the last known price for the fund on or before date
// (forward fill). When no price exists on or before the date it returns
// (0, false): the holding is valued at zero and flagged, never an error.
func (ix *Index) PriceOn(fundID string, date time.Time) (decimal.Decimal, bool) {
	prices := ix.pricesByFund[fundID]
	// first price strictly after date
	i := sort.Search(len(prices), func(i int) bool {
		return prices[i].Date.After(date)
	})
	if i == 0 {
		return decimal.Zero, false
	}
	return prices[i-1].Price, true
}
