package transactions

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/logger"
)

func setupService(t *testing.T) (*Service, *RealizedGainRepository, *database.DB) {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	seeds := []string{
		`INSERT INTO portfolios (id, name) VALUES ('p-1', 'Growth')`,
		`INSERT INTO funds (id, name, currency) VALUES ('f-1', 'World ETF', 'EUR')`,
		`INSERT INTO portfolio_funds (id, portfolio_id, fund_id) VALUES ('pf-1', 'p-1', 'f-1')`,
	}
	for _, q := range seeds {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}

	log := logger.New(logger.Config{Level: "error", Pretty: false})
	txRepo := NewTransactionRepository(db, log)
	gainRepo := NewRealizedGainRepository(db, log)
	holdingRepo := holdings.NewHoldingRepository(db, log)
	return NewService(db, txRepo, gainRepo, holdingRepo, log), gainRepo, db
}

func createTx(t *testing.T, s *Service, date, typ, shares, cost string) *domain.Transaction {
	t.Helper()
	created, err := s.Create(CreateTransactionRequest{
		PortfolioFundID: "pf-1",
		Date:            date,
		Type:            typ,
		Shares:          decimal.RequireFromString(shares),
		CostPerShare:    decimal.RequireFromString(cost),
	})
	require.NoError(t, err)
	return created
}

func TestService_CreateBuy(t *testing.T) {
	s, gainRepo, _ := setupService(t)

	created := createTx(t, s, "2024-01-02", "buy", "10", "100")
	assert.NotEmpty(t, created.ID)

	got, err := s.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionBuy, got.Type)
	assert.True(t, got.Shares.Equal(decimal.NewFromInt(10)))

	gain, err := gainRepo.GetByTransaction(created.ID)
	require.NoError(t, err)
	assert.Nil(t, gain, "buys must not produce gain rows")
}

func TestService_SellWritesRealizedGain(t *testing.T) {
	s, gainRepo, _ := setupService(t)

	createTx(t, s, "2024-01-02", "buy", "100", "10")
	createTx(t, s, "2024-01-03", "buy", "100", "20")
	sell := createTx(t, s, "2024-02-01", "sell", "50", "25")

	gain, err := gainRepo.GetByTransaction(sell.ID)
	require.NoError(t, err)
	require.NotNil(t, gain)
	assert.Equal(t, "500.00", gain.Gain.StringFixed(2))
	assert.Equal(t, "750.00", gain.CostBasis.StringFixed(2))
	assert.Equal(t, "1250.00", gain.SaleProceeds.StringFixed(2))
	assert.Equal(t, "p-1", gain.PortfolioID)
	assert.Equal(t, "f-1", gain.FundID)
}

func TestService_OversellRefusedAtomically(t *testing.T) {
	s, _, db := setupService(t)

	createTx(t, s, "2024-01-02", "buy", "10", "100")

	_, err := s.Create(CreateTransactionRequest{
		PortfolioFundID: "pf-1",
		Date:            "2024-01-05",
		Type:            "sell",
		Shares:          decimal.NewFromInt(11),
		CostPerShare:    decimal.NewFromInt(100),
	})
	var oversell *domain.OversellError
	require.ErrorAs(t, err, &oversell)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 1, count, "failed sell must write nothing")
}

func TestService_SellBeforeBuyDateRefused(t *testing.T) {
	s, _, _ := setupService(t)

	createTx(t, s, "2024-02-01", "buy", "10", "100")

	// position on the sell date is empty even though shares exist later
	_, err := s.Create(CreateTransactionRequest{
		PortfolioFundID: "pf-1",
		Date:            "2024-01-15",
		Type:            "sell",
		Shares:          decimal.NewFromInt(5),
		CostPerShare:    decimal.NewFromInt(100),
	})
	var oversell *domain.OversellError
	require.ErrorAs(t, err, &oversell)
}

func TestService_UpdateRecomputesGain(t *testing.T) {
	s, gainRepo, _ := setupService(t)

	createTx(t, s, "2024-01-02", "buy", "100", "10")
	sell := createTx(t, s, "2024-02-01", "sell", "50", "12")

	gain, err := gainRepo.GetByTransaction(sell.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", gain.Gain.StringFixed(2))

	newPrice := decimal.NewFromInt(15)
	_, err = s.Update(sell.ID, UpdateTransactionRequest{CostPerShare: &newPrice})
	require.NoError(t, err)

	gain, err = gainRepo.GetByTransaction(sell.ID)
	require.NoError(t, err)
	require.NotNil(t, gain)
	assert.Equal(t, "250.00", gain.Gain.StringFixed(2))
}

func TestService_UpdateSellToBuyDropsGain(t *testing.T) {
	s, gainRepo, _ := setupService(t)

	createTx(t, s, "2024-01-02", "buy", "100", "10")
	sell := createTx(t, s, "2024-02-01", "sell", "50", "12")

	buyType := "buy"
	_, err := s.Update(sell.ID, UpdateTransactionRequest{Type: &buyType})
	require.NoError(t, err)

	gain, err := gainRepo.GetByTransaction(sell.ID)
	require.NoError(t, err)
	assert.Nil(t, gain)
}

func TestService_UpdateOversellRefused(t *testing.T) {
	s, _, _ := setupService(t)

	createTx(t, s, "2024-01-02", "buy", "10", "100")
	sell := createTx(t, s, "2024-02-01", "sell", "5", "120")

	tooMany := decimal.NewFromInt(11)
	_, err := s.Update(sell.ID, UpdateTransactionRequest{Shares: &tooMany})
	var oversell *domain.OversellError
	require.ErrorAs(t, err, &oversell)

	// original row untouched
	got, err := s.GetByID(sell.ID)
	require.NoError(t, err)
	assert.True(t, got.Shares.Equal(decimal.NewFromInt(5)))
}

func TestService_UpdateValidatesAtOriginalPosition(t *testing.T) {
	s, _, db := setupService(t)

	createTx(t, s, "2024-01-02", "buy", "10", "100")
	sell := createTx(t, s, "2024-01-03", "sell", "10", "110")
	createTx(t, s, "2024-01-03", "buy", "5", "100")

	// the sell replays before the same-day buy, so only 10 shares back it
	twelve := decimal.NewFromInt(12)
	_, err := s.Update(sell.ID, UpdateTransactionRequest{Shares: &twelve})
	var oversell *domain.OversellError
	require.ErrorAs(t, err, &oversell)

	got, err := s.GetByID(sell.ID)
	require.NoError(t, err)
	assert.True(t, got.Shares.Equal(decimal.NewFromInt(10)), "refused edit must not persist")

	// the ledger still replays cleanly end to end
	ledger, err := s.GetByHolding("pf-1")
	require.NoError(t, err)
	_, err = valuation.Replay(ledger, "2024-01-03")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM realized_gains").Scan(&count))
	assert.Equal(t, 1, count, "original gain row survives the refused edit")
}

func TestService_BackdatedSellCannotStarveLaterSell(t *testing.T) {
	s, _, _ := setupService(t)

	createTx(t, s, "2024-01-02", "buy", "10", "100")
	createTx(t, s, "2024-01-10", "sell", "10", "120")

	// inserting this sell would leave the later sell without shares
	_, err := s.Create(CreateTransactionRequest{
		PortfolioFundID: "pf-1",
		Date:            "2024-01-05",
		Type:            "sell",
		Shares:          decimal.NewFromInt(5),
		CostPerShare:    decimal.NewFromInt(110),
	})
	var oversell *domain.OversellError
	require.ErrorAs(t, err, &oversell)
}

func TestService_DeleteOfFundingBuyRefused(t *testing.T) {
	s, _, _ := setupService(t)

	buy := createTx(t, s, "2024-01-02", "buy", "10", "100")
	createTx(t, s, "2024-02-01", "sell", "10", "120")

	err := s.Delete(buy.ID)
	var oversell *domain.OversellError
	require.ErrorAs(t, err, &oversell)

	// the buy is still there
	_, err = s.GetByID(buy.ID)
	require.NoError(t, err)
}

func TestService_DeleteCascadesGainRow(t *testing.T) {
	s, gainRepo, db := setupService(t)

	createTx(t, s, "2024-01-02", "buy", "100", "10")
	sell := createTx(t, s, "2024-02-01", "sell", "50", "12")

	require.NoError(t, s.Delete(sell.ID))

	_, err := s.GetByID(sell.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	gain, err := gainRepo.GetByTransaction(sell.ID)
	require.NoError(t, err)
	assert.Nil(t, gain)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM realized_gains").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestService_ValidationErrors(t *testing.T) {
	s, _, _ := setupService(t)

	tests := []struct {
		name string
		req  CreateTransactionRequest
	}{
		{
			name: "zero shares",
			req: CreateTransactionRequest{
				PortfolioFundID: "pf-1", Date: "2024-01-02", Type: "buy",
				Shares: decimal.Zero, CostPerShare: decimal.NewFromInt(10),
			},
		},
		{
			name: "negative cost",
			req: CreateTransactionRequest{
				PortfolioFundID: "pf-1", Date: "2024-01-02", Type: "buy",
				Shares: decimal.NewFromInt(1), CostPerShare: decimal.NewFromInt(-1),
			},
		},
		{
			name: "bad type",
			req: CreateTransactionRequest{
				PortfolioFundID: "pf-1", Date: "2024-01-02", Type: "short",
				Shares: decimal.NewFromInt(1), CostPerShare: decimal.NewFromInt(10),
			},
		},
		{
			name: "bad date",
			req: CreateTransactionRequest{
				PortfolioFundID: "pf-1", Date: "02-01-2024", Type: "buy",
				Shares: decimal.NewFromInt(1), CostPerShare: decimal.NewFromInt(10),
			},
		},
		{
			name: "unknown holding",
			req: CreateTransactionRequest{
				PortfolioFundID: "ghost", Date: "2024-01-02", Type: "buy",
				Shares: decimal.NewFromInt(1), CostPerShare: decimal.NewFromInt(10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(tt.req)
			assert.Error(t, err)
		})
	}
}
