package dividends

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/transactions"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/logger"
)

func setupService(t *testing.T) (*Service, *transactions.TransactionRepository, *database.DB) {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	seeds := []string{
		`INSERT INTO portfolios (id, name) VALUES ('p-1', 'Income')`,
		`INSERT INTO funds (id, name, currency, dividend_type) VALUES
			('f-cash', 'Cash Fund', 'EUR', 'cash'),
			('f-stock', 'Accumulating Fund', 'EUR', 'stock')`,
		`INSERT INTO portfolio_funds (id, portfolio_id, fund_id) VALUES
			('pf-cash', 'p-1', 'f-cash'),
			('pf-stock', 'p-1', 'f-stock')`,
	}
	for _, q := range seeds {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}

	log := logger.New(logger.Config{Level: "error", Pretty: false})
	holdingRepo := holdings.NewHoldingRepository(db, log)
	txRepo := transactions.NewTransactionRepository(db, log)
	gainRepo := transactions.NewRealizedGainRepository(db, log)
	txService := transactions.NewService(db, txRepo, gainRepo, holdingRepo, log)
	repo := NewDividendRepository(db, log)
	return NewService(db, repo, txRepo, txService, holdingRepo, log), txRepo, db
}

func seedBuy(t *testing.T, db *database.DB, id, holdingID, date, shares, cost string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO transactions (id, portfolio_fund_id, date, type, shares, cost_per_share) VALUES (?, ?, ?, 'buy', ?, ?)",
		id, holdingID, date, shares, cost,
	)
	require.NoError(t, err)
}

func TestService_CreateCashDividend(t *testing.T) {
	s, _, db := setupService(t)

	seedBuy(t, db, "t1", "pf-cash", "2024-01-02", "30", "100")
	seedBuy(t, db, "t2", "pf-cash", "2024-02-01", "15", "100")
	// after the record date, must not count
	seedBuy(t, db, "t3", "pf-cash", "2024-04-01", "100", "100")

	d, err := s.Create(CreateDividendRequest{
		PortfolioFundID:  "pf-cash",
		RecordDate:       "2024-03-15",
		ExDividendDate:   "2024-03-13",
		DividendPerShare: decimal.RequireFromString("2.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DividendCash, d.Type)
	assert.Equal(t, domain.DividendCompleted, d.Status)
	assert.Equal(t, "45", d.SharesOwned.String())
	assert.Equal(t, "112.50", d.Total.StringFixed(2))
	assert.Nil(t, d.ReinvestmentTxID)
}

func TestService_StockDividendPendingUntilReinvested(t *testing.T) {
	s, txRepo, db := setupService(t)

	seedBuy(t, db, "t1", "pf-stock", "2024-01-02", "40", "50")

	d, err := s.Create(CreateDividendRequest{
		PortfolioFundID:  "pf-stock",
		RecordDate:       "2024-03-15",
		ExDividendDate:   "2024-03-13",
		DividendPerShare: decimal.RequireFromString("1.10"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DividendStock, d.Type, "type falls back to the fund's")
	assert.Equal(t, domain.DividendPending, d.Status)
	assert.Nil(t, d.ReinvestmentTxID)

	// reinvestment details arrive later
	buyOrderDate := "2024-03-20"
	shares := decimal.RequireFromString("0.88")
	price := decimal.RequireFromString("50")
	updated, err := s.Update(d.ID, UpdateDividendRequest{
		BuyOrderDate:       &buyOrderDate,
		ReinvestmentShares: &shares,
		ReinvestmentPrice:  &price,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DividendCompleted, updated.Status)
	require.NotNil(t, updated.ReinvestmentTxID)

	reinvTx, err := txRepo.GetByID(*updated.ReinvestmentTxID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionDividend, reinvTx.Type)
	assert.Equal(t, "0.88", reinvTx.Shares.String())
	assert.Equal(t, "pf-stock", reinvTx.PortfolioFundID)
}

func TestService_UpdateRederivesShares(t *testing.T) {
	s, _, db := setupService(t)

	seedBuy(t, db, "t1", "pf-cash", "2024-01-02", "30", "100")
	seedBuy(t, db, "t2", "pf-cash", "2024-02-01", "20", "100")

	d, err := s.Create(CreateDividendRequest{
		PortfolioFundID:  "pf-cash",
		RecordDate:       "2024-01-15",
		ExDividendDate:   "2024-01-13",
		DividendPerShare: decimal.NewFromInt(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "30", d.SharesOwned.String())
	assert.Equal(t, "60.00", d.Total.StringFixed(2))

	// moving the record date past the second buy changes the entitlement
	newRecord := "2024-02-15"
	updated, err := s.Update(d.ID, UpdateDividendRequest{RecordDate: &newRecord})
	require.NoError(t, err)
	assert.Equal(t, "50", updated.SharesOwned.String())
	assert.Equal(t, "100.00", updated.Total.StringFixed(2))
}

func TestService_SwitchToCashDropsReinvestment(t *testing.T) {
	s, txRepo, db := setupService(t)

	seedBuy(t, db, "t1", "pf-stock", "2024-01-02", "40", "50")

	buyOrderDate := "2024-03-20"
	shares := decimal.NewFromInt(1)
	price := decimal.NewFromInt(44)
	d, err := s.Create(CreateDividendRequest{
		PortfolioFundID:    "pf-stock",
		RecordDate:         "2024-03-15",
		ExDividendDate:     "2024-03-13",
		DividendPerShare:   decimal.RequireFromString("1.10"),
		BuyOrderDate:       &buyOrderDate,
		ReinvestmentShares: &shares,
		ReinvestmentPrice:  &price,
	})
	require.NoError(t, err)
	require.NotNil(t, d.ReinvestmentTxID)
	reinvTxID := *d.ReinvestmentTxID

	cash := "cash"
	updated, err := s.Update(d.ID, UpdateDividendRequest{DividendType: &cash})
	require.NoError(t, err)

	assert.Equal(t, domain.DividendCash, updated.Type)
	assert.Equal(t, domain.DividendCompleted, updated.Status)
	assert.Nil(t, updated.ReinvestmentTxID)
	assert.Nil(t, updated.BuyOrderDate)

	_, err = txRepo.GetByID(reinvTxID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_DeleteCascadesReinvestmentTransaction(t *testing.T) {
	s, txRepo, db := setupService(t)

	seedBuy(t, db, "t1", "pf-stock", "2024-01-02", "40", "50")

	buyOrderDate := "2024-03-20"
	shares := decimal.NewFromInt(1)
	price := decimal.NewFromInt(44)
	d, err := s.Create(CreateDividendRequest{
		PortfolioFundID:    "pf-stock",
		RecordDate:         "2024-03-15",
		ExDividendDate:     "2024-03-13",
		DividendPerShare:   decimal.RequireFromString("1.10"),
		BuyOrderDate:       &buyOrderDate,
		ReinvestmentShares: &shares,
		ReinvestmentPrice:  &price,
	})
	require.NoError(t, err)
	require.NotNil(t, d.ReinvestmentTxID)

	require.NoError(t, s.Delete(d.ID))

	_, err = s.GetByID(d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = txRepo.GetByID(*d.ReinvestmentTxID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ZeroSharesOwnedGivesZeroTotal(t *testing.T) {
	s, _, _ := setupService(t)

	d, err := s.Create(CreateDividendRequest{
		PortfolioFundID:  "pf-cash",
		RecordDate:       "2024-03-15",
		ExDividendDate:   "2024-03-13",
		DividendPerShare: decimal.RequireFromString("2.50"),
	})
	require.NoError(t, err)
	assert.True(t, d.SharesOwned.IsZero())
	assert.Equal(t, "0.00", d.Total.StringFixed(2))
}
