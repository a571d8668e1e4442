package funds

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
)

const fundColumns = "id, name, isin, symbol, currency, exchange, dividend_type"

// FundRepository handles fund database operations
type FundRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewFundRepository creates a new fund repository
func NewFundRepository(db *database.DB, log zerolog.Logger) *FundRepository {
	return &FundRepository{
		db:  db,
		log: log.With().Str("repo", "fund").Logger(),
	}
}

// GetByID retrieves a fund, returning domain.ErrNotFound if missing
func (r *FundRepository) GetByID(id string) (*domain.Fund, error) {
	row := r.db.QueryRow("SELECT "+fundColumns+" FROM funds WHERE id = ?", id)
	f, err := scanFund(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fund %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetAll retrieves every fund sorted by name
func (r *FundRepository) GetAll() ([]domain.Fund, error) {
	rows, err := r.db.Query("SELECT " + fundColumns + " FROM funds ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to get funds: %w", err)
	}
	defer rows.Close()

	var funds []domain.Fund
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		funds = append(funds, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}
	return funds, nil
}

// FindByISINOrSymbolIn resolves a fund by ISIN first, then symbol.
// Returns nil without error when nothing matches.
func (r *FundRepository) FindByISINOrSymbolIn(q holdings.Querier, isin, symbol string) (*domain.Fund, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if isin != "" {
		row := q.QueryRow("SELECT "+fundColumns+" FROM funds WHERE UPPER(isin) = ?", isin)
		f, err := scanFund(row)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	if symbol != "" {
		row := q.QueryRow("SELECT "+fundColumns+" FROM funds WHERE UPPER(symbol) = ?", symbol)
		f, err := scanFund(row)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	return nil, nil
}

// Create inserts a new fund
func (r *FundRepository) Create(f *domain.Fund) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.DividendType == "" {
		f.DividendType = domain.DividendCash
	}
	if _, err := domain.ParseDividendType(string(f.DividendType)); err != nil {
		return err
	}

	_, err := r.db.Exec(
		"INSERT INTO funds (id, name, isin, symbol, currency, exchange, dividend_type) VALUES (?, ?, ?, ?, ?, ?, ?)",
		f.ID, f.Name, strings.ToUpper(f.ISIN), strings.ToUpper(f.Symbol),
		string(f.Currency), f.Exchange, string(f.DividendType),
	)
	if err != nil {
		return fmt.Errorf("failed to create fund: %w", err)
	}

	r.log.Info().Str("fund_id", f.ID).Str("name", f.Name).Msg("Fund created")
	return nil
}

// Update rewrites a fund row
func (r *FundRepository) Update(f *domain.Fund) error {
	res, err := r.db.Exec(
		"UPDATE funds SET name = ?, isin = ?, symbol = ?, currency = ?, exchange = ?, dividend_type = ? WHERE id = ?",
		f.Name, strings.ToUpper(f.ISIN), strings.ToUpper(f.Symbol),
		string(f.Currency), f.Exchange, string(f.DividendType), f.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update fund: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fund %s: %w", f.ID, domain.ErrNotFound)
	}
	return nil
}

func scanFund(row interface{ Scan(...interface{}) error }) (*domain.Fund, error) {
	var f domain.Fund
	var currency, dividendType string
	err := row.Scan(&f.ID, &f.Name, &f.ISIN, &f.Symbol, &currency, &f.Exchange, &dividendType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan fund: %w", err)
	}
	f.Currency = domain.Currency(currency)
	f.DividendType = domain.DividendType(dividendType)
	return &f, nil
}
