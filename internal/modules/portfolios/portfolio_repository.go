package portfolios

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// PortfolioRepository handles portfolio database operations
type PortfolioRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *database.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// GetByID retrieves a portfolio, returning domain.ErrNotFound if missing
func (r *PortfolioRepository) GetByID(id string) (*domain.Portfolio, error) {
	row := r.db.QueryRow(
		"SELECT id, name, description, is_archived, exclude_from_overview FROM portfolios WHERE id = ?", id,
	)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetAll retrieves portfolios sorted by name. Archived portfolios are
// included only when requested.
func (r *PortfolioRepository) GetAll(includeArchived bool) ([]domain.Portfolio, error) {
	query := "SELECT id, name, description, is_archived, exclude_from_overview FROM portfolios"
	if !includeArchived {
		query += " WHERE is_archived = 0"
	}
	query += " ORDER BY name, id"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return portfolios, nil
}

// Create inserts a new portfolio
func (r *PortfolioRepository) Create(p *domain.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.Exec(
		"INSERT INTO portfolios (id, name, description, is_archived, exclude_from_overview) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Description, boolToInt(p.IsArchived), boolToInt(p.ExcludeFromOverview),
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	r.log.Info().Str("portfolio_id", p.ID).Str("name", p.Name).Msg("Portfolio created")
	return nil
}

// Update rewrites a portfolio row
func (r *PortfolioRepository) Update(p *domain.Portfolio) error {
	res, err := r.db.Exec(
		"UPDATE portfolios SET name = ?, description = ?, is_archived = ?, exclude_from_overview = ? WHERE id = ?",
		p.Name, p.Description, boolToInt(p.IsArchived), boolToInt(p.ExcludeFromOverview), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a portfolio row. Callers must verify the portfolio has
// no holdings first; foreign keys refuse the delete otherwise.
func (r *PortfolioRepository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM portfolios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// HoldingCount returns the number of holdings in a portfolio
func (r *PortfolioRepository) HoldingCount(id string) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM portfolio_funds WHERE portfolio_id = ?", id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count holdings: %w", err)
	}
	return n, nil
}

// SumDividends totals the dividend payouts across a portfolio's holdings
func (r *PortfolioRepository) SumDividends(id string) (decimal.Decimal, error) {
	var total sql.NullString
	err := r.db.QueryRow(`
		SELECT SUM(d.total) FROM dividends d
		JOIN portfolio_funds pf ON pf.id = d.portfolio_fund_id
		WHERE pf.portfolio_id = ?
	`, id).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum dividends: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	sum, err := decimal.NewFromString(total.String)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse dividend sum: %w", err)
	}
	return sum, nil
}

func scanPortfolio(row interface{ Scan(...interface{}) error }) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var archived, excluded int
	err := row.Scan(&p.ID, &p.Name, &p.Description, &archived, &excluded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan portfolio: %w", err)
	}
	p.IsArchived = archived != 0
	p.ExcludeFromOverview = excluded != 0
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
