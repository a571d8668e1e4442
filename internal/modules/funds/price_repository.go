package funds

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// PriceRepository handles fund price database operations. Prices are
// sparse: one optional close per (fund, date); the valuation engine
// forward-fills gaps at read time.
type PriceRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new fund price repository
func NewPriceRepository(db *database.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repo", "fund_price").Logger(),
	}
}

// Upsert writes the price for one (fund, date), replacing any prior value.
// Imported CSV rows and manual entries land here identically.
func (r *PriceRepository) Upsert(p *domain.FundPrice) error {
	if p.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO fund_prices (id, fund_id, date, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fund_id, date) DO UPDATE SET price = excluded.price
	`, p.ID, p.FundID, domain.FormatDate(p.Date), p.Price.String())
	if err != nil {
		return fmt.Errorf("failed to upsert fund price: %w", err)
	}
	return nil
}

// GetByFund retrieves a fund's prices in date order
func (r *PriceRepository) GetByFund(fundID string) ([]domain.FundPrice, error) {
	rows, err := r.db.Query(
		"SELECT id, fund_id, date, price FROM fund_prices WHERE fund_id = ? ORDER BY date",
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get fund prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.FundPrice
	for rows.Next() {
		var p domain.FundPrice
		var date, price string
		if err := rows.Scan(&p.ID, &p.FundID, &date, &price); err != nil {
			return nil, fmt.Errorf("failed to scan fund price: %w", err)
		}
		if p.Date, err = domain.ParseDate(date); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund prices: %w", err)
	}
	return prices, nil
}
