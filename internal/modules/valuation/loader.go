package valuation

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
)

// HoldingInfo is the slice of a holding the valuation engine needs
type HoldingInfo struct {
	ID          string
	PortfolioID string
	FundID      string
}

// Dataset holds everything required to value a set of holdings over a date
// range: loaded once, in bulk, then replayed entirely in memory.
type Dataset struct {
	Holdings     []HoldingInfo // sorted by holding id
	Transactions []domain.Transaction
	Prices       []domain.FundPrice
	Dividends    []domain.Dividend
}

// Loader performs the bulk ledger reads. One query per collection type
// regardless of how many holdings or days are requested.
type Loader struct {
	db  *database.DB
	log zerolog.Logger
}

// NewLoader creates a new batch loader
func NewLoader(db *database.DB, log zerolog.Logger) *Loader {
	return &Loader{
		db:  db,
		log: log.With().Str("component", "valuation_loader").Logger(),
	}
}

// Load fetches all transactions and fund prices dated on or before end, and
// all dividends, for the given holdings. Transactions before the range start
// are required to establish opening state, so no lower bound is applied.
// Returns a LoadError if any holding id is unknown.
func (l *Loader) Load(holdingIDs []string, end time.Time) (*Dataset, error) {
	if len(holdingIDs) == 0 {
		return &Dataset{}, nil
	}

	holdings, err := l.loadHoldings(holdingIDs)
	if err != nil {
		return nil, err
	}

	fundIDs := make([]string, 0, len(holdings))
	seen := make(map[string]bool)
	for _, h := range holdings {
		if !seen[h.FundID] {
			seen[h.FundID] = true
			fundIDs = append(fundIDs, h.FundID)
		}
	}

	endDate := domain.FormatDate(end)

	transactions, err := l.loadTransactions(holdingIDs, endDate)
	if err != nil {
		return nil, err
	}

	prices, err := l.loadPrices(fundIDs, endDate)
	if err != nil {
		return nil, err
	}

	dividends, err := l.loadDividends(holdingIDs)
	if err != nil {
		return nil, err
	}

	l.log.Debug().
		Int("holdings", len(holdings)).
		Int("transactions", len(transactions)).
		Int("prices", len(prices)).
		Int("dividends", len(dividends)).
		Msg("Dataset loaded")

	return &Dataset{
		Holdings:     holdings,
		Transactions: transactions,
		Prices:       prices,
		Dividends:    dividends,
	}, nil
}

func (l *Loader) loadHoldings(holdingIDs []string) ([]HoldingInfo, error) {
	query := fmt.Sprintf(`
		SELECT id, portfolio_id, fund_id
		FROM portfolio_funds
		WHERE id IN (%s)
		ORDER BY id
	`, placeholders(len(holdingIDs)))

	rows, err := l.db.Query(query, toArgs(holdingIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(holdingIDs))
	var holdings []HoldingInfo
	for rows.Next() {
		var h HoldingInfo
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.FundID); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		found[h.ID] = true
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	var missing []string
	for _, id := range holdingIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.LoadError{MissingIDs: missing}
	}

	return holdings, nil
}

func (l *Loader) loadTransactions(holdingIDs []string, endDate string) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT id, portfolio_fund_id, date, type, shares, cost_per_share, ibkr_transaction_id, rowid
		FROM transactions
		WHERE portfolio_fund_id IN (%s) AND date <= ?
		ORDER BY date, rowid
	`, placeholders(len(holdingIDs)))

	args := append(toArgs(holdingIDs), endDate)
	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := ScanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func (l *Loader) loadPrices(fundIDs []string, endDate string) ([]domain.FundPrice, error) {
	query := fmt.Sprintf(`
		SELECT id, fund_id, date, price
		FROM fund_prices
		WHERE fund_id IN (%s) AND date <= ?
		ORDER BY fund_id, date
	`, placeholders(len(fundIDs)))

	args := append(toArgs(fundIDs), endDate)
	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load fund prices: %w", err)
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
			return nil, fmt.Errorf("failed to parse price date: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("failed to parse price value: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund prices: %w", err)
	}

	return prices, nil
}

func (l *Loader) loadDividends(holdingIDs []string) ([]domain.Dividend, error) {
	query := fmt.Sprintf(`
		SELECT id, portfolio_fund_id, record_date, ex_dividend_date, per_share,
		       shares_owned, total, type, status,
		       buy_order_date, reinvestment_shares, reinvestment_price, reinvestment_transaction_id
		FROM dividends
		WHERE portfolio_fund_id IN (%s)
		ORDER BY record_date, rowid
	`, placeholders(len(holdingIDs)))

	rows, err := l.db.Query(query, toArgs(holdingIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load dividends: %w", err)
	}
	defer rows.Close()

	var dividends []domain.Dividend
	for rows.Next() {
		d, err := ScanDividend(rows)
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

// ScanTransaction scans a transaction row in the loader's column order
func ScanTransaction(rows interface{ Scan(...interface{}) error }) (domain.Transaction, error) {
	var t domain.Transaction
	var date, txType, shares, costPerShare string
	err := rows.Scan(&t.ID, &t.PortfolioFundID, &date, &txType, &shares, &costPerShare, &t.IBKRTransactionID, &t.Seq)
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction: %w", err)
	}
	if t.Date, err = domain.ParseDate(date); err != nil {
		return t, fmt.Errorf("failed to parse transaction date: %w", err)
	}
	if t.Type, err = domain.ParseTransactionType(txType); err != nil {
		return t, fmt.Errorf("failed to parse transaction type: %w", err)
	}
	if t.Shares, err = decimal.NewFromString(shares); err != nil {
		return t, fmt.Errorf("failed to parse transaction shares: %w", err)
	}
	if t.CostPerShare, err = decimal.NewFromString(costPerShare); err != nil {
		return t, fmt.Errorf("failed to parse transaction cost per share: %w", err)
	}
	return t, nil
}

// ScanDividend scans a dividend row in the loader's column order
func ScanDividend(rows interface{ Scan(...interface{}) error }) (domain.Dividend, error) {
	var d domain.Dividend
	var recordDate, exDate, perShare, sharesOwned, total, divType, status string
	var buyOrderDate, reinvShares, reinvPrice *string
	err := rows.Scan(&d.ID, &d.PortfolioFundID, &recordDate, &exDate, &perShare,
		&sharesOwned, &total, &divType, &status,
		&buyOrderDate, &reinvShares, &reinvPrice, &d.ReinvestmentTxID)
	if err != nil {
		return d, fmt.Errorf("failed to scan dividend: %w", err)
	}
	if d.RecordDate, err = domain.ParseDate(recordDate); err != nil {
		return d, fmt.Errorf("failed to parse dividend record date: %w", err)
	}
	if d.ExDividendDate, err = domain.ParseDate(exDate); err != nil {
		return d, fmt.Errorf("failed to parse ex-dividend date: %w", err)
	}
	if d.PerShare, err = decimal.NewFromString(perShare); err != nil {
		return d, fmt.Errorf("failed to parse dividend per share: %w", err)
	}
	if d.SharesOwned, err = decimal.NewFromString(sharesOwned); err != nil {
		return d, fmt.Errorf("failed to parse dividend shares owned: %w", err)
	}
	if d.Total, err = decimal.NewFromString(total); err != nil {
		return d, fmt.Errorf("failed to parse dividend total: %w", err)
	}
	if d.Type, err = domain.ParseDividendType(divType); err != nil {
		return d, err
	}
	d.Status = domain.DividendStatus(status)
	if buyOrderDate != nil {
		t, err := domain.ParseDate(*buyOrderDate)
		if err != nil {
			return d, fmt.Errorf("failed to parse buy order date: %w", err)
		}
		d.BuyOrderDate = &t
	}
	if reinvShares != nil {
		v, err := decimal.NewFromString(*reinvShares)
		if err != nil {
			return d, fmt.Errorf("failed to parse reinvestment shares: %w", err)
		}
		d.ReinvestmentShares = &v
	}
	if reinvPrice != nil {
		v, err := decimal.NewFromString(*reinvPrice)
		if err != nil {
			return d, fmt.Errorf("failed to parse reinvestment price: %w", err)
		}
		d.ReinvestmentPrice = &v
	}
	return d, nil
}

// placeholders builds a "?, ?, ?" list for IN clauses
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
