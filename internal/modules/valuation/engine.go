package valuation

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// Engine produces valuation time series. It loads the ledger once per
// request and replays it in memory: O(days x holdings) work after a single
// O(transactions + prices) load, with no per-date database access.
type Engine struct {
	loader *Loader
	log    zerolog.Logger
}

// NewEngine creates a valuation engine
func NewEngine(db *database.DB, log zerolog.Logger) *Engine {
	return &Engine{
		loader: NewLoader(db, log),
		log:    log.With().Str("service", "valuation").Logger(),
	}
}

// ComputeSeries values the given holdings for every date in [start, end].
// Position state is carried across dates, never reset; prices are forward
// filled, with missing prices valued at zero and flagged.
func (e *Engine) ComputeSeries(holdingIDs []string, start, end time.Time) ([]DayValuation, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end %s before start %s",
			domain.FormatDate(end), domain.FormatDate(start))
	}

	began := time.Now()
	ds, err := e.loader.Load(holdingIDs, end)
	if err != nil {
		return nil, err
	}
	ix := BuildIndex(ds)

	positions := make(map[string]*Position, len(ix.Holdings))
	cursors := make(map[string]int, len(ix.Holdings))
	for _, h := range ix.Holdings {
		positions[h.ID] = &Position{}
	}

	// replay everything before the range to establish opening state
	warmup := start.AddDate(0, 0, -1)
	for _, h := range ix.Holdings {
		if err := e.advance(ix, positions[h.ID], cursors, h.ID, warmup); err != nil {
			return nil, err
		}
	}

	var series []DayValuation
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dv := DayValuation{Date: domain.FormatDate(day)}
		byPortfolio := make(map[string]*PortfolioValuation)
		var portfolioIDs []string

		for _, h := range ix.Holdings {
			pos := positions[h.ID]
			if err := e.advance(ix, pos, cursors, h.ID, day); err != nil {
				return nil, err
			}

			price, havePrice := ix.PriceOn(h.FundID, day)
			hv := HoldingValuation{
				PortfolioFundID: h.ID,
				PortfolioID:     h.PortfolioID,
				FundID:          h.FundID,
				Shares:          pos.Shares,
				Price:           price,
				PriceMissing:    !havePrice && !pos.Shares.IsZero(),
				MarketValue:     pos.Shares.Mul(price).Round(2),
				CostBasis:       pos.CostBasis.Round(2),
				RealizedGain:    pos.RealizedGain.Round(2),
			}
			if pos.Shares.IsZero() {
				hv.UnrealizedGain = decimal.Zero
			} else {
				hv.UnrealizedGain = hv.MarketValue.Sub(pos.CostBasis).Round(2)
			}
			dv.Holdings = append(dv.Holdings, hv)

			pv, ok := byPortfolio[h.PortfolioID]
			if !ok {
				pv = &PortfolioValuation{PortfolioID: h.PortfolioID}
				byPortfolio[h.PortfolioID] = pv
				portfolioIDs = append(portfolioIDs, h.PortfolioID)
			}
			pv.add(hv)
		}

		sort.Strings(portfolioIDs)
		for _, id := range portfolioIDs {
			dv.Portfolios = append(dv.Portfolios, *byPortfolio[id])
			dv.Totals.addAggregate(byPortfolio[id].Aggregate)
		}

		series = append(series, dv)
	}

	e.log.Debug().
		Int("holdings", len(ix.Holdings)).
		Int("days", len(series)).
		Dur("elapsed", time.Since(began)).
		Msg("Valuation series computed")

	return series, nil
}

// advance applies all of the holding's transactions dated on or before day
func (e *Engine) advance(ix *Index, pos *Position, cursors map[string]int, holdingID string, day time.Time) error {
	txs := ix.TxByHolding[holdingID]
	i := cursors[holdingID]
	for i < len(txs) && !txs[i].Date.After(day) {
		if err := pos.Apply(txs[i]); err != nil {
			return fmt.Errorf("ledger invalid for holding %s: %w", holdingID, err)
		}
		i++
	}
	cursors[holdingID] = i
	return nil
}

// GetCurrentPosition replays a single holding through asOf and joins the
// forward-filled price for that date.
func (e *Engine) GetCurrentPosition(holdingID string, asOf time.Time) (*CurrentPosition, error) {
	ds, err := e.loader.Load([]string{holdingID}, asOf)
	if err != nil {
		return nil, err
	}
	ix := BuildIndex(ds)

	var pos Position
	for _, t := range ix.TxByHolding[holdingID] {
		if err := pos.Apply(t); err != nil {
			return nil, fmt.Errorf("ledger invalid for holding %s: %w", holdingID, err)
		}
	}

	fundID := ds.Holdings[0].FundID
	price, havePrice := ix.PriceOn(fundID, asOf)
	marketValue := pos.Shares.Mul(price).Round(2)

	cp := &CurrentPosition{
		PortfolioFundID: holdingID,
		Date:            domain.FormatDate(asOf),
		Shares:          pos.Shares,
		AvgCost:         pos.AvgCost().Round(2),
		CostBasis:       pos.CostBasis.Round(2),
		RealizedGain:    pos.RealizedGain.Round(2),
		MarketValue:     marketValue,
		Price:           price,
		PriceMissing:    !havePrice && !pos.Shares.IsZero(),
		SaleProceeds:    pos.SaleProceeds.Round(2),
		CostOfSold:      pos.CostOfSold.Round(2),
	}
	if !pos.Shares.IsZero() {
		cp.UnrealizedGain = marketValue.Sub(pos.CostBasis).Round(2)
	}
	return cp, nil
}
