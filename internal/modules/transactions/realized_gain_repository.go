package transactions

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
)

// RealizedGainRepository handles realized gain database operations.
// Gain rows live and die with their originating sell transaction.
type RealizedGainRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRealizedGainRepository creates a new realized gain repository
func NewRealizedGainRepository(db *database.DB, log zerolog.Logger) *RealizedGainRepository {
	return &RealizedGainRepository{
		db:  db,
		log: log.With().Str("repo", "realized_gain").Logger(),
	}
}

// CreateIn inserts a realized gain row inside an existing transaction
func (r *RealizedGainRepository) CreateIn(q holdings.Querier, g *domain.RealizedGain) error {
	_, err := q.Exec(`
		INSERT INTO realized_gains
		(id, transaction_id, portfolio_id, fund_id, date, shares_sold, cost_basis, sale_proceeds, gain)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		g.ID,
		g.TransactionID,
		g.PortfolioID,
		g.FundID,
		domain.FormatDate(g.Date),
		g.SharesSold.String(),
		g.CostBasis.String(),
		g.SaleProceeds.String(),
		g.Gain.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to create realized gain: %w", err)
	}
	return nil
}

// DeleteByTransactionIn removes the gain row linked to a sell, if any
func (r *RealizedGainRepository) DeleteByTransactionIn(q holdings.Querier, transactionID string) error {
	if _, err := q.Exec("DELETE FROM realized_gains WHERE transaction_id = ?", transactionID); err != nil {
		return fmt.Errorf("failed to delete realized gain: %w", err)
	}
	return nil
}

// GetByTransaction retrieves the gain row for a sell transaction
func (r *RealizedGainRepository) GetByTransaction(transactionID string) (*domain.RealizedGain, error) {
	row := r.db.QueryRow(`
		SELECT id, transaction_id, portfolio_id, fund_id, date, shares_sold, cost_basis, sale_proceeds, gain
		FROM realized_gains WHERE transaction_id = ?
	`, transactionID)

	g, err := scanRealizedGain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetByPortfolio retrieves a portfolio's realized gains in date order
func (r *RealizedGainRepository) GetByPortfolio(portfolioID string) ([]domain.RealizedGain, error) {
	rows, err := r.db.Query(`
		SELECT id, transaction_id, portfolio_id, fund_id, date, shares_sold, cost_basis, sale_proceeds, gain
		FROM realized_gains WHERE portfolio_id = ? ORDER BY date, rowid
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to get realized gains: %w", err)
	}
	defer rows.Close()

	var gains []domain.RealizedGain
	for rows.Next() {
		g, err := scanRealizedGain(rows)
		if err != nil {
			return nil, err
		}
		gains = append(gains, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realized gains: %w", err)
	}

	return gains, nil
}

func scanRealizedGain(row interface{ Scan(...interface{}) error }) (*domain.RealizedGain, error) {
	var g domain.RealizedGain
	var date, sharesSold, costBasis, proceeds, gain string
	err := row.Scan(&g.ID, &g.TransactionID, &g.PortfolioID, &g.FundID, &date,
		&sharesSold, &costBasis, &proceeds, &gain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan realized gain: %w", err)
	}
	if g.Date, err = domain.ParseDate(date); err != nil {
		return nil, err
	}
	if g.SharesSold, err = decimal.NewFromString(sharesSold); err != nil {
		return nil, fmt.Errorf("failed to parse shares sold: %w", err)
	}
	if g.CostBasis, err = decimal.NewFromString(costBasis); err != nil {
		return nil, fmt.Errorf("failed to parse cost basis: %w", err)
	}
	if g.SaleProceeds, err = decimal.NewFromString(proceeds); err != nil {
		return nil, fmt.Errorf("failed to parse sale proceeds: %w", err)
	}
	if g.Gain, err = decimal.NewFromString(gain); err != nil {
		return nil, fmt.Errorf("failed to parse gain: %w", err)
	}
	return &g, nil
}
