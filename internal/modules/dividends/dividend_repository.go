package dividends

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
)

const dividendColumns = `id, portfolio_fund_id, record_date, ex_dividend_date, per_share,
	shares_owned, total, type, status,
	buy_order_date, reinvestment_shares, reinvestment_price, reinvestment_transaction_id`

// DividendRepository handles dividend database operations
type DividendRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDividendRepository creates a new dividend repository
func NewDividendRepository(db *database.DB, log zerolog.Logger) *DividendRepository {
	return &DividendRepository{
		db:  db,
		log: log.With().Str("repo", "dividend").Logger(),
	}
}

// GetByID retrieves a dividend, returning domain.ErrNotFound if missing
func (r *DividendRepository) GetByID(id string) (*domain.Dividend, error) {
	row := r.db.QueryRow("SELECT "+dividendColumns+" FROM dividends WHERE id = ?", id)
	d, err := valuation.ScanDividend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dividend %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByHolding retrieves a holding's dividends ordered by record date
func (r *DividendRepository) GetByHolding(holdingID string) ([]domain.Dividend, error) {
	rows, err := r.db.Query(
		"SELECT "+dividendColumns+" FROM dividends WHERE portfolio_fund_id = ? ORDER BY record_date, rowid",
		holdingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get dividends by holding: %w", err)
	}
	defer rows.Close()

	var dividends []domain.Dividend
	for rows.Next() {
		d, err := valuation.ScanDividend(rows)
		if err != nil {
			return nil, err
		}
		dividends = append(dividends, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividends: %w", err)
	}

	return dividends, nil
}

// CreateIn inserts a dividend row inside an existing transaction
func (r *DividendRepository) CreateIn(q holdings.Querier, d *domain.Dividend) error {
	_, err := q.Exec(`
		INSERT INTO dividends
		(id, portfolio_fund_id, record_date, ex_dividend_date, per_share,
		 shares_owned, total, type, status,
		 buy_order_date, reinvestment_shares, reinvestment_price, reinvestment_transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, dividendArgs(d)...)
	if err != nil {
		return fmt.Errorf("failed to create dividend: %w", err)
	}
	return nil
}

// UpdateIn rewrites a dividend row inside an existing transaction
func (r *DividendRepository) UpdateIn(q holdings.Querier, d *domain.Dividend) error {
	args := append(dividendArgs(d)[1:], d.ID)
	res, err := q.Exec(`
		UPDATE dividends
		SET portfolio_fund_id = ?, record_date = ?, ex_dividend_date = ?, per_share = ?,
		    shares_owned = ?, total = ?, type = ?, status = ?,
		    buy_order_date = ?, reinvestment_shares = ?, reinvestment_price = ?, reinvestment_transaction_id = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to update dividend: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dividend %s: %w", d.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteIn removes a dividend row inside an existing transaction
func (r *DividendRepository) DeleteIn(q holdings.Querier, id string) error {
	res, err := q.Exec("DELETE FROM dividends WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete dividend: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dividend %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func dividendArgs(d *domain.Dividend) []interface{} {
	var buyOrderDate, reinvShares, reinvPrice *string
	if d.BuyOrderDate != nil {
		s := domain.FormatDate(*d.BuyOrderDate)
		buyOrderDate = &s
	}
	if d.ReinvestmentShares != nil {
		s := d.ReinvestmentShares.String()
		reinvShares = &s
	}
	if d.ReinvestmentPrice != nil {
		s := d.ReinvestmentPrice.String()
		reinvPrice = &s
	}
	return []interface{}{
		d.ID,
		d.PortfolioFundID,
		domain.FormatDate(d.RecordDate),
		domain.FormatDate(d.ExDividendDate),
		d.PerShare.String(),
		d.SharesOwned.String(),
		d.Total.String(),
		string(d.Type),
		string(d.Status),
		buyOrderDate,
		reinvShares,
		reinvPrice,
		d.ReinvestmentTxID,
	}
}
