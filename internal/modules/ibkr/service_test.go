package ibkr

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/funds"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/transactions"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/logger"
)

func setupService(t *testing.T) (*Service, *transactions.TransactionRepository, *holdings.HoldingRepository, *database.DB) {
	t.Helper()
	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	seeds := []string{
		`INSERT INTO portfolios (id, name) VALUES ('p-1', 'Mine'), ('p-2', 'Partner')`,
		`INSERT INTO funds (id, name, isin, symbol, currency) VALUES
			('f-1', 'World ETF', 'IE00B4L5Y983', 'IWDA', 'EUR')`,
	}
	for _, q := range seeds {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}

	log := logger.New(logger.Config{Level: "error", Pretty: false})
	holdingRepo := holdings.NewHoldingRepository(db, log)
	fundRepo := funds.NewFundRepository(db, log)
	txRepo := transactions.NewTransactionRepository(db, log)
	gainRepo := transactions.NewRealizedGainRepository(db, log)
	txService := transactions.NewService(db, txRepo, gainRepo, holdingRepo, log)
	repo := NewIBKRRepository(db, log)
	configRepo := NewConfigRepository(db, log)
	svc := NewService(db, repo, configRepo, fundRepo, holdingRepo, txRepo, gainRepo, txService, log)
	return svc, txRepo, holdingRepo, db
}

func importBuy(t *testing.T, s *Service, externalID, shares string) *domain.IBKRTransaction {
	t.Helper()
	result, err := s.Import(ImportTransactionRequest{
		IBKRTransactionID: externalID,
		Date:              "2024-01-10",
		Symbol:            "IWDA",
		ISIN:              "IE00B4L5Y983",
		Type:              "buy",
		Quantity:          decimal.RequireFromString(shares),
		Price:             decimal.NewFromInt(80),
		TotalAmount:       decimal.RequireFromString(shares).Mul(decimal.NewFromInt(80)),
		Currency:          "EUR",
		Fees:              decimal.RequireFromString("1.25"),
	})
	require.NoError(t, err)
	require.True(t, result.Imported)
	return result.Transaction
}

func pct(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestService_ImportDeduplicates(t *testing.T) {
	s, _, _, _ := setupService(t)

	first := importBuy(t, s, "IB-1", "100")
	assert.Equal(t, domain.IBKRPending, first.Status)

	result, err := s.Import(ImportTransactionRequest{
		IBKRTransactionID: "IB-1",
		Date:              "2024-01-10",
		Type:              "buy",
		Quantity:          decimal.NewFromInt(100),
		Price:             decimal.NewFromInt(80),
		Currency:          "EUR",
	})
	require.NoError(t, err)
	assert.False(t, result.Imported)
	assert.Equal(t, first.ID, result.Transaction.ID)

	n, err := s.PendingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_AllocateSplitsProportionally(t *testing.T) {
	s, txRepo, holdingRepo, _ := setupService(t)

	source := importBuy(t, s, "IB-1", "100")

	err := s.Allocate(source.ID, []domain.Allocation{
		{PortfolioID: "p-1", Percentage: pct(60)},
		{PortfolioID: "p-2", Percentage: pct(40)},
	})
	require.NoError(t, err)

	got, err := s.GetByID(source.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IBKRProcessed, got.Status)

	derived, err := txRepo.GetByIBKRSourceIn(s.db, source.ID)
	require.NoError(t, err)
	require.Len(t, derived, 2)

	bySharesDesc := derived
	if bySharesDesc[0].Shares.LessThan(bySharesDesc[1].Shares) {
		bySharesDesc[0], bySharesDesc[1] = bySharesDesc[1], bySharesDesc[0]
	}
	assert.Equal(t, "60", bySharesDesc[0].Shares.String())
	assert.Equal(t, "40", bySharesDesc[1].Shares.String())
	for _, d := range derived {
		assert.Equal(t, domain.TransactionBuy, d.Type)
		assert.True(t, d.CostPerShare.Equal(decimal.NewFromInt(80)))
		require.NotNil(t, d.IBKRTransactionID)
		assert.Equal(t, source.ID, *d.IBKRTransactionID)
	}

	// holdings were created on first use
	h1, err := holdingRepo.FindIn(s.db, "p-1", "f-1")
	require.NoError(t, err)
	require.NotNil(t, h1)
	h2, err := holdingRepo.FindIn(s.db, "p-2", "f-1")
	require.NoError(t, err)
	require.NotNil(t, h2)
}

func TestService_AllocateValidation(t *testing.T) {
	s, _, _, _ := setupService(t)
	source := importBuy(t, s, "IB-1", "100")

	tests := []struct {
		name        string
		allocations []domain.Allocation
	}{
		{"empty", nil},
		{"sum below 100", []domain.Allocation{{PortfolioID: "p-1", Percentage: pct(90)}}},
		{"sum above 100", []domain.Allocation{
			{PortfolioID: "p-1", Percentage: pct(60)},
			{PortfolioID: "p-2", Percentage: pct(50)},
		}},
		{"negative percentage", []domain.Allocation{
			{PortfolioID: "p-1", Percentage: pct(110)},
			{PortfolioID: "p-2", Percentage: pct(-10)},
		}},
		{"duplicate portfolio", []domain.Allocation{
			{PortfolioID: "p-1", Percentage: pct(50)},
			{PortfolioID: "p-1", Percentage: pct(50)},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Allocate(source.ID, tt.allocations)
			var vErr *domain.AllocationValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}

	// still pending, nothing written
	got, err := s.GetByID(source.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IBKRPending, got.Status)
}

func TestService_AllocateToleratesRoundingNoise(t *testing.T) {
	s, _, _, _ := setupService(t)
	source := importBuy(t, s, "IB-1", "99")

	err := s.Allocate(source.ID, []domain.Allocation{
		{PortfolioID: "p-1", Percentage: decimal.RequireFromString("33.33")},
		{PortfolioID: "p-2", Percentage: decimal.RequireFromString("66.66")},
	})
	require.NoError(t, err)
}

func TestService_AllocateRequiresPendingSource(t *testing.T) {
	s, _, _, _ := setupService(t)
	source := importBuy(t, s, "IB-1", "100")
	split := []domain.Allocation{{PortfolioID: "p-1", Percentage: pct(100)}}

	require.NoError(t, s.Allocate(source.ID, split))

	err := s.Allocate(source.ID, split)
	var vErr *domain.AllocationValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestService_AllocateUnknownInstrument(t *testing.T) {
	s, _, _, _ := setupService(t)

	result, err := s.Import(ImportTransactionRequest{
		IBKRTransactionID: "IB-X",
		Date:              "2024-01-10",
		Symbol:            "ZZZZ",
		ISIN:              "XX0000000000",
		Type:              "buy",
		Quantity:          decimal.NewFromInt(10),
		Price:             decimal.NewFromInt(5),
		Currency:          "EUR",
	})
	require.NoError(t, err)

	err = s.Allocate(result.Transaction.ID, []domain.Allocation{{PortfolioID: "p-1", Percentage: pct(100)}})
	var vErr *domain.AllocationValidationError
	require.ErrorAs(t, err, &vErr)

	got, err := s.GetByID(result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IBKRPending, got.Status)
}

func TestService_UnallocateRevertsLedger(t *testing.T) {
	s, txRepo, _, db := setupService(t)
	source := importBuy(t, s, "IB-1", "100")

	require.NoError(t, s.Allocate(source.ID, []domain.Allocation{
		{PortfolioID: "p-1", Percentage: pct(100)},
	}))
	require.NoError(t, s.Unallocate(source.ID))

	got, err := s.GetByID(source.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IBKRPending, got.Status)

	derived, err := txRepo.GetByIBKRSourceIn(s.db, source.ID)
	require.NoError(t, err)
	assert.Empty(t, derived)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestService_ModifyAllocationsReplacesSplit(t *testing.T) {
	s, txRepo, _, _ := setupService(t)
	source := importBuy(t, s, "IB-1", "100")

	require.NoError(t, s.Allocate(source.ID, []domain.Allocation{
		{PortfolioID: "p-1", Percentage: pct(100)},
	}))
	require.NoError(t, s.ModifyAllocations(source.ID, []domain.Allocation{
		{PortfolioID: "p-1", Percentage: pct(50)},
		{PortfolioID: "p-2", Percentage: pct(50)},
	}))

	derived, err := txRepo.GetByIBKRSourceIn(s.db, source.ID)
	require.NoError(t, err)
	require.Len(t, derived, 2)
	for _, d := range derived {
		assert.Equal(t, "50", d.Shares.String())
	}

	got, err := s.GetByID(source.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IBKRProcessed, got.Status)
}

func TestService_BulkAllocateIsolatesFailures(t *testing.T) {
	s, _, _, _ := setupService(t)
	good := importBuy(t, s, "IB-1", "100")
	bad := importBuy(t, s, "IB-2", "50")

	results := s.BulkAllocate([]BulkAllocateItem{
		{SourceID: good.ID, Allocations: []domain.Allocation{{PortfolioID: "p-1", Percentage: pct(100)}}},
		{SourceID: bad.ID, Allocations: []domain.Allocation{{PortfolioID: "p-1", Percentage: pct(10)}}},
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)

	gotGood, err := s.GetByID(good.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IBKRProcessed, gotGood.Status)
	gotBad, err := s.GetByID(bad.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IBKRPending, gotBad.Status)
}

func TestService_ConfigRoundTripAndAutoAllocate(t *testing.T) {
	s, txRepo, _, _ := setupService(t)

	cfg, err := s.GetConfig()
	require.NoError(t, err)
	assert.False(t, cfg.AutoAllocateEnabled)

	enabled := true
	defaults := []domain.Allocation{
		{PortfolioID: "p-1", Percentage: pct(70)},
		{PortfolioID: "p-2", Percentage: pct(30)},
	}
	cfg, err = s.UpdateConfig(UpdateConfigRequest{
		AutoAllocateEnabled: &enabled,
		DefaultAllocations:  &defaults,
	})
	require.NoError(t, err)
	assert.True(t, cfg.AutoAllocateEnabled)
	require.Len(t, cfg.DefaultAllocations, 2)

	source := importBuy(t, s, "IB-1", "10")
	results, err := s.AutoAllocatePending()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	derived, err := txRepo.GetByIBKRSourceIn(s.db, source.ID)
	require.NoError(t, err)
	assert.Len(t, derived, 2)
}

func TestService_EnablingAutoAllocateRequiresDefaults(t *testing.T) {
	s, _, _, _ := setupService(t)

	enabled := true
	_, err := s.UpdateConfig(UpdateConfigRequest{AutoAllocateEnabled: &enabled})
	require.Error(t, err)
}
