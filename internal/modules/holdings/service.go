package holdings

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// ErrConfirmationRequired is returned when deleting a holding that still
// has transactions or dividends without the explicit confirm flag.
var ErrConfirmationRequired = errors.New("holding has transactions or dividends; deletion requires confirmation")

// Service orchestrates holding operations
type Service struct {
	db   *database.DB
	repo *HoldingRepository
	log  zerolog.Logger
}

// NewService creates a new holding service
func NewService(db *database.DB, repo *HoldingRepository, log zerolog.Logger) *Service {
	return &Service{
		db:   db,
		repo: repo,
		log:  log.With().Str("service", "holdings").Logger(),
	}
}

// Create adds a fund position to a portfolio. The (portfolio, fund) pair is
// unique; creating an existing pair returns the existing holding.
func (s *Service) Create(portfolioID, fundID string) (*domain.PortfolioFund, error) {
	if err := s.exists("portfolios", portfolioID); err != nil {
		return nil, err
	}
	if err := s.exists("funds", fundID); err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindIn(s.db, portfolioID, fundID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	return s.repo.Create(portfolioID, fundID)
}

// Delete removes a holding. If the holding still has transactions or
// dividends the call is refused unless confirm is set, in which case the
// dependent rows (transactions, realized gains, dividends) are removed in
// the same database transaction.
func (s *Service) Delete(id string, confirm bool) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}

	var txCount, divCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM transactions WHERE portfolio_fund_id = ?", id,
	).Scan(&txCount)
	if err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}
	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM dividends WHERE portfolio_fund_id = ?", id,
	).Scan(&divCount)
	if err != nil {
		return fmt.Errorf("failed to count dividends: %w", err)
	}

	if (txCount > 0 || divCount > 0) && !confirm {
		return ErrConfirmationRequired
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		"DELETE FROM realized_gains WHERE transaction_id IN (SELECT id FROM transactions WHERE portfolio_fund_id = ?)",
		"DELETE FROM dividends WHERE portfolio_fund_id = ?",
		"DELETE FROM transactions WHERE portfolio_fund_id = ?",
		"DELETE FROM portfolio_funds WHERE id = ?",
	}
	for _, q := range steps {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to cascade holding delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holding delete: %w", err)
	}

	s.log.Info().
		Str("holding_id", id).
		Int("transactions", txCount).
		Int("dividends", divCount).
		Msg("Holding deleted")

	return nil
}

func (s *Service) exists(table, id string) error {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if err != nil {
		return fmt.Errorf("%s %s: %w", table, id, domain.ErrNotFound)
	}
	return nil
}
