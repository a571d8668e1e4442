package ibkr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/funds"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/transactions"
)

// percentTolerance absorbs rounding noise in user-entered splits.
// A set summing to 99.99 or 100.01 is accepted, anything further off is not.
var percentTolerance = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// Service owns the broker transaction inbox: importing raw broker rows,
// splitting them across portfolios, and reverting splits. Allocation is
// all-or-nothing per source; derived ledger rows, holding creation and the
// status flip share one database transaction.
type Service struct {
	db          *database.DB
	repo        *IBKRRepository
	configRepo  *ConfigRepository
	fundRepo    *funds.FundRepository
	holdingRepo *holdings.HoldingRepository
	txRepo      *transactions.TransactionRepository
	gainRepo    *transactions.RealizedGainRepository
	txService   *transactions.Service
	log         zerolog.Logger
}

// NewService creates a new broker integration service
func NewService(
	db *database.DB,
	repo *IBKRRepository,
	configRepo *ConfigRepository,
	fundRepo *funds.FundRepository,
	holdingRepo *holdings.HoldingRepository,
	txRepo *transactions.TransactionRepository,
	gainRepo *transactions.RealizedGainRepository,
	txService *transactions.Service,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		configRepo:  configRepo,
		fundRepo:    fundRepo,
		holdingRepo: holdingRepo,
		txRepo:      txRepo,
		gainRepo:    gainRepo,
		txService:   txService,
		log:         log.With().Str("service", "ibkr").Logger(),
	}
}

// GetByID retrieves one imported transaction
func (s *Service) GetByID(id string) (*domain.IBKRTransaction, error) {
	return s.repo.GetByID(id)
}

// GetPending retrieves the unallocated inbox, oldest first
func (s *Service) GetPending() ([]domain.IBKRTransaction, error) {
	return s.repo.GetByStatus(domain.IBKRPending)
}

// GetProcessed retrieves allocated transactions, oldest first
func (s *Service) GetProcessed() ([]domain.IBKRTransaction, error) {
	return s.repo.GetByStatus(domain.IBKRProcessed)
}

// PendingCount returns the size of the unallocated inbox
func (s *Service) PendingCount() (int, error) {
	return s.repo.PendingCount()
}

// Import stores one broker transaction in the inbox. Re-imports of a known
// broker id are skipped, returning the existing row with Imported false.
func (s *Service) Import(req ImportTransactionRequest) (*ImportResult, error) {
	if req.IBKRTransactionID == "" {
		return nil, fmt.Errorf("ibkr transaction id cannot be empty")
	}

	existing, err := s.repo.FindByExternalID(req.IBKRTransactionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ImportResult{Transaction: existing, Imported: false}, nil
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	txType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price cannot be negative")
	}

	t := &domain.IBKRTransaction{
		ID:                uuid.NewString(),
		IBKRTransactionID: req.IBKRTransactionID,
		Date:              date,
		Symbol:            req.Symbol,
		ISIN:              req.ISIN,
		Description:       req.Description,
		Type:              txType,
		Shares:            req.Quantity,
		Price:             req.Price,
		TotalAmount:       req.TotalAmount,
		Currency:          domain.Currency(req.Currency),
		Fees:              req.Fees,
		Status:            domain.IBKRPending,
		ImportedAt:        time.Now().UTC(),
	}
	if err := s.repo.Create(t); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("ibkr_id", t.ID).
		Str("external_id", t.IBKRTransactionID).
		Str("symbol", t.Symbol).
		Msg("IBKR transaction imported")

	return &ImportResult{Transaction: t, Imported: true}, nil
}

// Allocate splits a pending broker transaction across portfolios. Every
// allocation yields one derived ledger transaction with the source's date,
// type and price and a proportional share count; sells go through the
// usual oversell and realized gain path. Nothing is written unless the
// whole split succeeds.
func (s *Service) Allocate(sourceID string, allocations []domain.Allocation) error {
	source, err := s.repo.GetByID(sourceID)
	if err != nil {
		return err
	}
	if source.Status != domain.IBKRPending {
		return &domain.AllocationValidationError{
			SourceID: sourceID,
			Reason:   fmt.Sprintf("transaction is %s, expected pending", source.Status),
		}
	}
	if err := s.validateAllocations(sourceID, allocations); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.createDerivedIn(tx, source, allocations); err != nil {
		return err
	}
	if err := s.repo.SetStatusIn(tx, sourceID, domain.IBKRProcessed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit allocation: %w", err)
	}

	s.log.Info().
		Str("ibkr_id", sourceID).
		Int("allocations", len(allocations)).
		Msg("IBKR transaction allocated")

	return nil
}

// ModifyAllocations replaces the split of an already processed transaction.
// The old derived rows are dropped and the new split created in one write,
// so the ledger never holds both.
func (s *Service) ModifyAllocations(sourceID string, allocations []domain.Allocation) error {
	source, err := s.repo.GetByID(sourceID)
	if err != nil {
		return err
	}
	if source.Status != domain.IBKRProcessed {
		return &domain.AllocationValidationError{
			SourceID: sourceID,
			Reason:   fmt.Sprintf("transaction is %s, expected processed", source.Status),
		}
	}
	if err := s.validateAllocations(sourceID, allocations); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.deleteDerivedIn(tx, sourceID); err != nil {
		return err
	}
	if err := s.createDerivedIn(tx, source, allocations); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit allocation change: %w", err)
	}

	s.log.Info().
		Str("ibkr_id", sourceID).
		Int("allocations", len(allocations)).
		Msg("IBKR allocation modified")

	return nil
}

// Unallocate reverts a processed transaction to pending, removing its
// derived ledger rows and their realized gains.
func (s *Service) Unallocate(sourceID string) error {
	source, err := s.repo.GetByID(sourceID)
	if err != nil {
		return err
	}
	if source.Status != domain.IBKRProcessed {
		return &domain.AllocationValidationError{
			SourceID: sourceID,
			Reason:   fmt.Sprintf("transaction is %s, expected processed", source.Status),
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.deleteDerivedIn(tx, sourceID); err != nil {
		return err
	}
	if err := s.repo.SetStatusIn(tx, sourceID, domain.IBKRPending); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unallocation: %w", err)
	}

	s.log.Info().Str("ibkr_id", sourceID).Msg("IBKR transaction unallocated")
	return nil
}

// BulkAllocate processes sources independently: one failing split never
// blocks or reverts the others.
func (s *Service) BulkAllocate(items []BulkAllocateItem) []BulkAllocateResult {
	results := make([]BulkAllocateResult, 0, len(items))
	for _, item := range items {
		res := BulkAllocateResult{SourceID: item.SourceID, Success: true}
		if err := s.Allocate(item.SourceID, item.Allocations); err != nil {
			res.Success = false
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// GetConfig retrieves the broker integration configuration
func (s *Service) GetConfig() (*Config, error) {
	return s.configRepo.Get()
}

// UpdateConfig applies a partial configuration edit. Default allocations
// are validated with the same rules as a real split.
func (s *Service) UpdateConfig(req UpdateConfigRequest) (*Config, error) {
	cfg, err := s.configRepo.Get()
	if err != nil {
		return nil, err
	}

	if req.AutoAllocateEnabled != nil {
		cfg.AutoAllocateEnabled = *req.AutoAllocateEnabled
	}
	if req.DefaultAllocations != nil {
		if len(*req.DefaultAllocations) > 0 {
			if err := s.validateAllocations("default", *req.DefaultAllocations); err != nil {
				return nil, err
			}
		}
		cfg.DefaultAllocations = *req.DefaultAllocations
	}
	if cfg.AutoAllocateEnabled && len(cfg.DefaultAllocations) == 0 {
		return nil, fmt.Errorf("auto-allocate requires default allocations")
	}

	if err := s.configRepo.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AutoAllocatePending allocates the whole inbox with the configured default
// split. No-op unless auto-allocate is enabled. Returns per-source results.
func (s *Service) AutoAllocatePending() ([]BulkAllocateResult, error) {
	cfg, err := s.configRepo.Get()
	if err != nil {
		return nil, err
	}
	if !cfg.AutoAllocateEnabled || len(cfg.DefaultAllocations) == 0 {
		return nil, nil
	}

	pending, err := s.repo.GetByStatus(domain.IBKRPending)
	if err != nil {
		return nil, err
	}

	items := make([]BulkAllocateItem, 0, len(pending))
	for _, p := range pending {
		items = append(items, BulkAllocateItem{SourceID: p.ID, Allocations: cfg.DefaultAllocations})
	}
	return s.BulkAllocate(items), nil
}

// validateAllocations enforces the split rules before anything is written
func (s *Service) validateAllocations(sourceID string, allocations []domain.Allocation) error {
	if len(allocations) == 0 {
		return &domain.AllocationValidationError{SourceID: sourceID, Reason: "no allocations given"}
	}

	sum := decimal.Zero
	seen := make(map[string]bool, len(allocations))
	for _, a := range allocations {
		if a.PortfolioID == "" {
			return &domain.AllocationValidationError{SourceID: sourceID, Reason: "allocation without portfolio"}
		}
		if seen[a.PortfolioID] {
			return &domain.AllocationValidationError{
				SourceID: sourceID,
				Reason:   fmt.Sprintf("portfolio %s allocated twice", a.PortfolioID),
			}
		}
		seen[a.PortfolioID] = true
		if !a.Percentage.IsPositive() {
			return &domain.AllocationValidationError{
				SourceID: sourceID,
				Reason:   fmt.Sprintf("percentage for portfolio %s must be positive", a.PortfolioID),
			}
		}
		sum = sum.Add(a.Percentage)
	}
	if sum.Sub(oneHundred).Abs().GreaterThan(percentTolerance) {
		return &domain.AllocationValidationError{
			SourceID: sourceID,
			Reason:   fmt.Sprintf("percentages sum to %s, expected 100", sum),
		}
	}
	return nil
}

// createDerivedIn writes one ledger transaction per allocation. The target
// holding is resolved by the source's instrument within each portfolio and
// created on first use.
func (s *Service) createDerivedIn(q holdings.Querier, source *domain.IBKRTransaction, allocations []domain.Allocation) error {
	fund, err := s.fundRepo.FindByISINOrSymbolIn(q, source.ISIN, source.Symbol)
	if err != nil {
		return err
	}
	if fund == nil {
		return &domain.AllocationValidationError{
			SourceID: source.ID,
			Reason:   fmt.Sprintf("no fund matches isin %q or symbol %q", source.ISIN, source.Symbol),
		}
	}

	for _, a := range allocations {
		holding, err := s.holdingRepo.FindIn(q, a.PortfolioID, fund.ID)
		if err != nil {
			return err
		}
		if holding == nil {
			if holding, err = s.holdingRepo.CreateIn(q, a.PortfolioID, fund.ID); err != nil {
				return err
			}
		}

		derived := &domain.Transaction{
			PortfolioFundID:   holding.ID,
			Date:              source.Date,
			Type:              source.Type,
			Shares:            source.Shares.Mul(a.Percentage).Div(oneHundred),
			CostPerShare:      source.Price,
			IBKRTransactionID: &source.ID,
		}
		if _, err := s.txService.CreateIn(q, derived); err != nil {
			return err
		}
	}
	return nil
}

// deleteDerivedIn removes a source's derived ledger rows and their gains
func (s *Service) deleteDerivedIn(q holdings.Querier, sourceID string) error {
	derived, err := s.txRepo.GetByIBKRSourceIn(q, sourceID)
	if err != nil {
		return err
	}
	for _, t := range derived {
		if err := s.gainRepo.DeleteByTransactionIn(q, t.ID); err != nil {
			return err
		}
		if err := s.txRepo.DeleteIn(q, t.ID); err != nil {
			return err
		}
	}
	return nil
}
