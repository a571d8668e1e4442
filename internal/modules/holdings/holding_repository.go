package holdings

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// Querier is satisfied by both *database.DB and *sql.Tx so repository
// operations can participate in multi-row cascades.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// HoldingRepository handles portfolio_funds database operations
type HoldingRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *database.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// GetByID retrieves a holding, returning domain.ErrNotFound if missing
func (r *HoldingRepository) GetByID(id string) (*domain.PortfolioFund, error) {
	return r.GetByIDIn(r.db, id)
}

// GetByIDIn is GetByID inside an existing transaction
func (r *HoldingRepository) GetByIDIn(q Querier, id string) (*domain.PortfolioFund, error) {
	var h domain.PortfolioFund
	err := q.QueryRow(
		"SELECT id, portfolio_id, fund_id FROM portfolio_funds WHERE id = ?", id,
	).Scan(&h.ID, &h.PortfolioID, &h.FundID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("holding %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// GetByPortfolio retrieves all holdings of a portfolio, sorted by id
func (r *HoldingRepository) GetByPortfolio(portfolioID string) ([]domain.PortfolioFund, error) {
	rows, err := r.db.Query(
		"SELECT id, portfolio_id, fund_id FROM portfolio_funds WHERE portfolio_id = ? ORDER BY id",
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings by portfolio: %w", err)
	}
	defer rows.Close()

	return scanHoldings(rows)
}

// GetAll retrieves every holding, sorted by id
func (r *HoldingRepository) GetAll() ([]domain.PortfolioFund, error) {
	rows, err := r.db.Query("SELECT id, portfolio_id, fund_id FROM portfolio_funds ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer rows.Close()

	return scanHoldings(rows)
}

// Create inserts a new holding
func (r *HoldingRepository) Create(portfolioID, fundID string) (*domain.PortfolioFund, error) {
	return r.CreateIn(r.db, portfolioID, fundID)
}

// CreateIn is Create inside an existing transaction
func (r *HoldingRepository) CreateIn(q Querier, portfolioID, fundID string) (*domain.PortfolioFund, error) {
	h := &domain.PortfolioFund{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		FundID:      fundID,
	}
	_, err := q.Exec(
		"INSERT INTO portfolio_funds (id, portfolio_id, fund_id) VALUES (?, ?, ?)",
		h.ID, h.PortfolioID, h.FundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create holding: %w", err)
	}

	r.log.Info().
		Str("holding_id", h.ID).
		Str("portfolio_id", portfolioID).
		Str("fund_id", fundID).
		Msg("Holding created")

	return h, nil
}

// FindIn looks up a holding by (portfolio, fund) inside a transaction
func (r *HoldingRepository) FindIn(q Querier, portfolioID, fundID string) (*domain.PortfolioFund, error) {
	var h domain.PortfolioFund
	err := q.QueryRow(
		"SELECT id, portfolio_id, fund_id FROM portfolio_funds WHERE portfolio_id = ? AND fund_id = ?",
		portfolioID, fundID,
	).Scan(&h.ID, &h.PortfolioID, &h.FundID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find holding: %w", err)
	}
	return &h, nil
}

func scanHoldings(rows *sql.Rows) ([]domain.PortfolioFund, error) {
	var holdings []domain.PortfolioFund
	for rows.Next() {
		var h domain.PortfolioFund
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.FundID); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}
