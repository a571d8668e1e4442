package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// Position is the running accounting state of one holding: share count,
// single-pool average-cost basis, and cumulative sale outcomes. It is never
// persisted; the only supported way to obtain state for a date is to fold
// the holding's sorted transactions from empty through that date.
type Position struct {
	Shares       decimal.Decimal
	CostBasis    decimal.Decimal
	RealizedGain decimal.Decimal
	SaleProceeds decimal.Decimal
	CostOfSold   decimal.Decimal
}

// Apply folds one transaction into the position. Transactions must arrive
// in (date, insertion order) sequence. A sell larger than the held share
// count fails with OversellError and leaves the state unchanged.
func (p *Position) Apply(t domain.Transaction) error {
	switch t.Type {
	case domain.TransactionBuy, domain.TransactionDividend:
		p.Shares = p.Shares.Add(t.Shares)
		p.CostBasis = p.CostBasis.Add(t.Shares.Mul(t.CostPerShare))

	case domain.TransactionSell:
		if t.Shares.GreaterThan(p.Shares) {
			return &domain.OversellError{
				PortfolioFundID: t.PortfolioFundID,
				Date:            domain.FormatDate(t.Date),
				Requested:       t.Shares,
				Held:            p.Shares,
			}
		}
		avgCost := p.CostBasis.Div(p.Shares)
		soldBasis := t.Shares.Mul(avgCost)
		proceeds := t.Shares.Mul(t.CostPerShare)

		p.RealizedGain = p.RealizedGain.Add(proceeds.Sub(soldBasis).Round(2))
		p.SaleProceeds = p.SaleProceeds.Add(proceeds)
		p.CostOfSold = p.CostOfSold.Add(soldBasis)
		p.CostBasis = p.CostBasis.Sub(soldBasis)
		p.Shares = p.Shares.Sub(t.Shares)
		if p.Shares.IsZero() {
			// squash division residue once the pool is empty
			p.CostBasis = decimal.Zero
		}

	case domain.TransactionFee:
		// fees are recorded for audit only; no position effect

	default:
		return fmt.Errorf("unhandled transaction type %q", t.Type)
	}
	return nil
}

// AvgCost returns the blended per-share cost, zero for an empty position
func (p *Position) AvgCost() decimal.Decimal {
	if p.Shares.IsZero() {
		return decimal.Zero
	}
	return p.CostBasis.Div(p.Shares)
}

// Replay folds a sorted transaction slice from empty state, stopping after
// the last transaction dated on or before asOf. Only buys, sells and
// dividend reinvestments move the position; fees pass through.
func Replay(transactions []domain.Transaction, asOf string) (Position, error) {
	var pos Position
	cutoff, err := domain.ParseDate(asOf)
	if err != nil {
		return pos, err
	}
	for _, t := range transactions {
		if t.Date.After(cutoff) {
			break
		}
		if err := pos.Apply(t); err != nil {
			return Position{}, err
		}
	}
	return pos, nil
}
