package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

func tx(date string, typ domain.TransactionType, shares, cost string) domain.Transaction {
	d, _ := time.Parse(domain.DateFormat, date)
	return domain.Transaction{
		PortfolioFundID: "pf-1",
		Date:            d,
		Type:            typ,
		Shares:          decimal.RequireFromString(shares),
		CostPerShare:    decimal.RequireFromString(cost),
	}
}

func TestPosition_BuysAccumulateCostBasis(t *testing.T) {
	var pos Position
	require.NoError(t, pos.Apply(tx("2024-01-02", domain.TransactionBuy, "20", "100")))
	require.NoError(t, pos.Apply(tx("2024-01-10", domain.TransactionBuy, "40", "150")))

	assert.True(t, pos.Shares.Equal(decimal.NewFromInt(60)), "shares = %s", pos.Shares)
	assert.True(t, pos.CostBasis.Equal(decimal.NewFromInt(8000)), "cost basis = %s", pos.CostBasis)
}

func TestPosition_SellRealizesGainAtAverageCost(t *testing.T) {
	var pos Position
	require.NoError(t, pos.Apply(tx("2024-01-02", domain.TransactionBuy, "100", "10")))
	require.NoError(t, pos.Apply(tx("2024-01-03", domain.TransactionBuy, "100", "20")))
	// avg cost 15; 50 x (25 - 15) = 500
	require.NoError(t, pos.Apply(tx("2024-02-01", domain.TransactionSell, "50", "25")))

	assert.Equal(t, "500.00", pos.RealizedGain.StringFixed(2))
	assert.True(t, pos.Shares.Equal(decimal.NewFromInt(150)))
	assert.True(t, pos.CostBasis.Equal(decimal.NewFromInt(2250)), "cost basis = %s", pos.CostBasis)
	assert.True(t, pos.SaleProceeds.Equal(decimal.NewFromInt(1250)))
	assert.True(t, pos.CostOfSold.Equal(decimal.NewFromInt(750)))
}

func TestPosition_FullExitZeroesCostBasisExactly(t *testing.T) {
	var pos Position
	// 100/3 per share produces a repeating decimal average cost
	require.NoError(t, pos.Apply(tx("2024-01-02", domain.TransactionBuy, "3", "33.34")))
	require.NoError(t, pos.Apply(tx("2024-01-03", domain.TransactionBuy, "4", "21.07")))
	require.NoError(t, pos.Apply(tx("2024-02-01", domain.TransactionSell, "7", "30")))

	assert.True(t, pos.Shares.IsZero())
	assert.True(t, pos.CostBasis.IsZero(), "cost basis must be exactly zero, got %s", pos.CostBasis)
}

func TestPosition_OversellRefused(t *testing.T) {
	var pos Position
	require.NoError(t, pos.Apply(tx("2024-01-02", domain.TransactionBuy, "10", "100")))

	err := pos.Apply(tx("2024-01-05", domain.TransactionSell, "11", "100"))
	var oversell *domain.OversellError
	require.ErrorAs(t, err, &oversell)
	assert.True(t, oversell.Requested.Equal(decimal.NewFromInt(11)))
	assert.True(t, oversell.Held.Equal(decimal.NewFromInt(10)))

	// state untouched
	assert.True(t, pos.Shares.Equal(decimal.NewFromInt(10)))
	assert.True(t, pos.CostBasis.Equal(decimal.NewFromInt(1000)))
}

func TestPosition_DividendReinvestmentAddsShares(t *testing.T) {
	var pos Position
	require.NoError(t, pos.Apply(tx("2024-01-02", domain.TransactionBuy, "100", "10")))
	require.NoError(t, pos.Apply(tx("2024-03-01", domain.TransactionDividend, "2.5", "45")))

	assert.Equal(t, "102.5", pos.Shares.String())
	assert.Equal(t, "1112.5", pos.CostBasis.String())
}

func TestPosition_FeeHasNoPositionEffect(t *testing.T) {
	var pos Position
	require.NoError(t, pos.Apply(tx("2024-01-02", domain.TransactionBuy, "10", "100")))
	require.NoError(t, pos.Apply(tx("2024-01-03", domain.TransactionFee, "1", "2.50")))

	assert.True(t, pos.Shares.Equal(decimal.NewFromInt(10)))
	assert.True(t, pos.CostBasis.Equal(decimal.NewFromInt(1000)))
}

func TestReplay_StopsAtCutoff(t *testing.T) {
	ledger := []domain.Transaction{
		tx("2024-01-02", domain.TransactionBuy, "10", "100"),
		tx("2024-02-01", domain.TransactionBuy, "5", "110"),
		tx("2024-03-01", domain.TransactionSell, "15", "120"),
	}

	pos, err := Replay(ledger, "2024-02-15")
	require.NoError(t, err)
	assert.True(t, pos.Shares.Equal(decimal.NewFromInt(15)))
	assert.True(t, pos.RealizedGain.IsZero())

	pos, err = Replay(ledger, "2024-03-01")
	require.NoError(t, err)
	assert.True(t, pos.Shares.IsZero())
}

func TestAvgCost_EmptyPositionIsZero(t *testing.T) {
	var pos Position
	assert.True(t, pos.AvgCost().IsZero())
}
