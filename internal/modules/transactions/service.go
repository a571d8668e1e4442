package transactions

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
)

// Service owns the transaction write path: validation, oversell checks and
// the realized gain cascade. A sell and its gain row are always written in
// the same database transaction; an edit of a sell recomputes the gain
// rather than mutating the row in place.
type Service struct {
	db          *database.DB
	txRepo      *TransactionRepository
	gainRepo    *RealizedGainRepository
	holdingRepo *holdings.HoldingRepository
	log         zerolog.Logger
}

// NewService creates a new transaction service
func NewService(
	db *database.DB,
	txRepo *TransactionRepository,
	gainRepo *RealizedGainRepository,
	holdingRepo *holdings.HoldingRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:          db,
		txRepo:      txRepo,
		gainRepo:    gainRepo,
		holdingRepo: holdingRepo,
		log:         log.With().Str("service", "transactions").Logger(),
	}
}

// GetByID retrieves one transaction
func (s *Service) GetByID(id string) (*domain.Transaction, error) {
	return s.txRepo.GetByID(id)
}

// GetByHolding retrieves a holding's transactions in replay order
func (s *Service) GetByHolding(holdingID string) ([]domain.Transaction, error) {
	if _, err := s.holdingRepo.GetByID(holdingID); err != nil {
		return nil, err
	}
	return s.txRepo.GetByHolding(holdingID)
}

// Create validates and persists a new transaction
func (s *Service) Create(req CreateTransactionRequest) (*domain.Transaction, error) {
	t, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := s.CreateIn(tx, t)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Info().
		Str("transaction_id", created.ID).
		Str("holding_id", created.PortfolioFundID).
		Str("type", string(created.Type)).
		Str("shares", created.Shares.String()).
		Msg("Transaction created")

	return created, nil
}

// CreateIn validates and writes a transaction inside an existing database
// transaction. After the insert the holding's whole ledger is replayed in
// its stored order; any sell left without enough shares at its position
// fails the write. Sells get a realized gain row in the same write. Used
// directly by the dividend and allocation cascades.
func (s *Service) CreateIn(q holdings.Querier, t *domain.Transaction) (*domain.Transaction, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	holding, err := s.holdingRepo.GetByIDIn(q, t.PortfolioFundID)
	if err != nil {
		return nil, err
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := s.txRepo.CreateIn(q, t); err != nil {
		return nil, err
	}

	before, err := s.replayLedgerIn(q, t.PortfolioFundID, t.ID)
	if err != nil {
		return nil, err
	}
	if t.Type == domain.TransactionSell {
		if err := s.gainRepo.CreateIn(q, gainAt(holding, t, before)); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Update applies a partial edit, recomputing the realized gain when the
// result is (still) a sell and dropping the old gain row otherwise.
func (s *Service) Update(id string, req UpdateTransactionRequest) (*domain.Transaction, error) {
	existing, err := s.txRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Date != nil {
		if updated.Date, err = domain.ParseDate(*req.Date); err != nil {
			return nil, err
		}
	}
	if req.Type != nil {
		if updated.Type, err = domain.ParseTransactionType(*req.Type); err != nil {
			return nil, err
		}
	}
	if req.Shares != nil {
		updated.Shares = *req.Shares
	}
	if req.CostPerShare != nil {
		updated.CostPerShare = *req.CostPerShare
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	holding, err := s.holdingRepo.GetByID(updated.PortfolioFundID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.gainRepo.DeleteByTransactionIn(tx, id); err != nil {
		return nil, err
	}
	if err := s.txRepo.UpdateIn(tx, &updated); err != nil {
		return nil, err
	}

	// the row keeps its rowid, so the replay sees the edit at the exact
	// position every later read will
	before, err := s.replayLedgerIn(tx, updated.PortfolioFundID, id)
	if err != nil {
		return nil, err
	}
	if updated.Type == domain.TransactionSell {
		if err := s.gainRepo.CreateIn(tx, gainAt(holding, &updated, before)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction update: %w", err)
	}

	s.log.Info().Str("transaction_id", id).Msg("Transaction updated")
	return &updated, nil
}

// Delete removes a transaction and its realized gain row, if any. Removing
// a buy that later sells depend on is refused.
func (s *Service) Delete(id string) error {
	existing, err := s.txRepo.GetByID(id)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.gainRepo.DeleteByTransactionIn(tx, id); err != nil {
		return err
	}
	if err := s.txRepo.DeleteIn(tx, id); err != nil {
		return err
	}
	if _, err := s.replayLedgerIn(tx, existing.PortfolioFundID, ""); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction delete: %w", err)
	}

	s.log.Info().Str("transaction_id", id).Msg("Transaction deleted")
	return nil
}

// replayLedgerIn refetches the holding's ledger inside the write and folds
// it end to end, so validation uses the exact (date, rowid) order every
// later read replays. Returns the position state immediately before the
// transaction with the given id applies; any sell in the resulting ledger
// that exceeds the shares held at its own position fails the fold with an
// OversellError, rolling the write back.
func (s *Service) replayLedgerIn(q holdings.Querier, holdingID, id string) (valuation.Position, error) {
	ledger, err := s.txRepo.GetByHoldingIn(q, holdingID)
	if err != nil {
		return valuation.Position{}, err
	}

	var pos, before valuation.Position
	for _, row := range ledger {
		if row.ID == id {
			before = pos
		}
		if err := pos.Apply(row); err != nil {
			return valuation.Position{}, err
		}
	}
	return before, nil
}

// gainAt prices a sell at the average cost of the position it replays
// against.
func gainAt(holding *domain.PortfolioFund, t *domain.Transaction, pos valuation.Position) *domain.RealizedGain {
	avgCost := pos.AvgCost()
	soldBasis := t.Shares.Mul(avgCost)
	proceeds := t.Shares.Mul(t.CostPerShare)

	return &domain.RealizedGain{
		ID:            uuid.NewString(),
		TransactionID: t.ID,
		PortfolioID:   holding.PortfolioID,
		FundID:        holding.FundID,
		Date:          t.Date,
		SharesSold:    t.Shares,
		CostBasis:     soldBasis.Round(2),
		SaleProceeds:  proceeds.Round(2),
		Gain:          proceeds.Sub(soldBasis).Round(2),
	}
}

func (s *Service) fromRequest(req CreateTransactionRequest) (*domain.Transaction, error) {
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	txType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		ID:              uuid.NewString(),
		PortfolioFundID: req.PortfolioFundID,
		Date:            date,
		Type:            txType,
		Shares:          req.Shares,
		CostPerShare:    req.CostPerShare,
	}, nil
}
