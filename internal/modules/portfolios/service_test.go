package portfolios

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/logger"
)

func setupService(t *testing.T) (*Service, *database.DB) {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := logger.New(logger.Config{Level: "error", Pretty: false})
	repo := NewPortfolioRepository(db, log)
	holdingRepo := holdings.NewHoldingRepository(db, log)
	engine := valuation.NewEngine(db, log)
	return NewService(repo, holdingRepo, engine, log), db
}

func seedFunded(t *testing.T, db *database.DB) {
	t.Helper()
	seeds := []string{
		`INSERT INTO portfolios (id, name) VALUES ('p-1', 'Growth')`,
		`INSERT INTO funds (id, name, currency) VALUES ('f-1', 'World ETF', 'EUR')`,
		`INSERT INTO portfolio_funds (id, portfolio_id, fund_id) VALUES ('pf-1', 'p-1', 'f-1')`,
		`INSERT INTO transactions (id, portfolio_fund_id, date, type, shares, cost_per_share)
			VALUES ('t1', 'pf-1', '2024-01-02', 'buy', '10', '100')`,
	}
	for _, q := range seeds {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}
}

func seedPrice(t *testing.T, db *database.DB, id, date, price string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO fund_prices (id, fund_id, date, price) VALUES (?, 'f-1', ?, ?)",
		id, date, price,
	)
	require.NoError(t, err)
}

func TestService_CreateAndUpdate(t *testing.T) {
	s, _ := setupService(t)

	p, err := s.Create(CreatePortfolioRequest{Name: "Pension", Description: "long term"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	_, err = s.Create(CreatePortfolioRequest{})
	assert.Error(t, err, "empty name refused")

	archived := true
	updated, err := s.Update(p.ID, UpdatePortfolioRequest{IsArchived: &archived})
	require.NoError(t, err)
	assert.True(t, updated.IsArchived)

	// archived portfolios are hidden by default
	visible, err := s.GetAll(false)
	require.NoError(t, err)
	assert.Empty(t, visible)
	all, err := s.GetAll(true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_DeleteRefusedWithHoldings(t *testing.T) {
	s, db := setupService(t)
	seedFunded(t, db)

	err := s.Delete("p-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive")

	_, err = s.GetByID("p-1")
	require.NoError(t, err)
}

func TestService_DeleteEmptyPortfolio(t *testing.T) {
	s, _ := setupService(t)

	p, err := s.Create(CreatePortfolioRequest{Name: "Scratch"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(p.ID))
	_, err = s.GetByID(p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_GetSummary(t *testing.T) {
	s, db := setupService(t)
	seedFunded(t, db)
	seedPrice(t, db, "pr1", "2024-01-02", "120")
	_, err := db.Exec(
		`INSERT INTO dividends (id, portfolio_fund_id, record_date, ex_dividend_date, per_share, shares_owned, total, type, status)
			VALUES ('d1', 'pf-1', '2024-02-15', '2024-02-13', '2.5', '10', '25', 'cash', 'completed')`,
	)
	require.NoError(t, err)

	summary, err := s.GetSummary("p-1", day("2024-01-05"))
	require.NoError(t, err)

	assert.Equal(t, "2024-01-05", summary.Date)
	assert.Equal(t, "1200.00", summary.Value.StringFixed(2))
	assert.Equal(t, "1000.00", summary.Cost.StringFixed(2))
	assert.Equal(t, "200.00", summary.UnrealizedGain.StringFixed(2))
	assert.Equal(t, "25.00", summary.TotalDividends.StringFixed(2))
	require.Len(t, summary.Holdings, 1)
	assert.Equal(t, "pf-1", summary.Holdings[0].PortfolioFundID)
}

func TestService_GetHistoryEmptyPortfolio(t *testing.T) {
	s, db := setupService(t)
	_, err := db.Exec(`INSERT INTO portfolios (id, name) VALUES ('p-1', 'Empty')`)
	require.NoError(t, err)

	history, err := s.GetHistory("p-1", day("2024-01-01"), day("2024-01-03"))
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, point := range history {
		assert.True(t, point.Value.IsZero())
		assert.True(t, point.Cost.IsZero())
	}
	assert.Equal(t, "2024-01-01", history[0].Date)
	assert.Equal(t, "2024-01-03", history[2].Date)
}

func TestService_GetPerformance(t *testing.T) {
	s, db := setupService(t)
	seedFunded(t, db)
	seedPrice(t, db, "pr1", "2024-01-02", "100")
	seedPrice(t, db, "pr2", "2024-01-03", "110")
	seedPrice(t, db, "pr3", "2024-01-04", "99")

	perf, err := s.GetPerformance("p-1", day("2024-01-02"), day("2024-01-04"))
	require.NoError(t, err)

	assert.Equal(t, 1000.0, perf.StartValue)
	assert.Equal(t, 990.0, perf.EndValue)
	require.NotNil(t, perf.TotalReturn)
	assert.InDelta(t, -0.01, *perf.TotalReturn, 1e-9)
	require.NotNil(t, perf.AnnualizedVolatility)
	assert.Greater(t, *perf.AnnualizedVolatility, 0.0)
	require.NotNil(t, perf.MaxDrawdown)
	assert.InDelta(t, 0.1, *perf.MaxDrawdown, 1e-9)
}

func TestService_GetPerformanceSkipsWorthlessDays(t *testing.T) {
	s, db := setupService(t)
	seedFunded(t, db)
	// no price until the third day: first two days are worth zero
	seedPrice(t, db, "pr1", "2024-01-04", "100")

	perf, err := s.GetPerformance("p-1", day("2024-01-02"), day("2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, perf.StartValue)
	assert.Equal(t, 1000.0, perf.EndValue)
}

func day(s string) time.Time {
	d, _ := time.Parse(domain.DateFormat, s)
	return d
}
