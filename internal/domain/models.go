package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

// TransactionType is the closed set of ledger transaction kinds.
// Position accounting dispatches on this enum, never on raw strings.
type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionDividend TransactionType = "dividend" // dividend reinvestment buy
	TransactionFee      TransactionType = "fee"
)

// ParseTransactionType validates and normalizes a transaction type string
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case TransactionBuy:
		return TransactionBuy, nil
	case TransactionSell:
		return TransactionSell, nil
	case TransactionDividend:
		return TransactionDividend, nil
	case TransactionFee:
		return TransactionFee, nil
	default:
		return "", fmt.Errorf("invalid transaction type: %q", s)
	}
}

// DividendType distinguishes cash payouts from stock (reinvested) dividends
type DividendType string

const (
	DividendCash  DividendType = "cash"
	DividendStock DividendType = "stock"
)

// ParseDividendType validates and normalizes a dividend type string
func ParseDividendType(s string) (DividendType, error) {
	switch DividendType(strings.ToLower(strings.TrimSpace(s))) {
	case DividendCash:
		return DividendCash, nil
	case DividendStock:
		return DividendStock, nil
	default:
		return "", fmt.Errorf("invalid dividend type: %q", s)
	}
}

// DividendStatus is the dividend lifecycle state
type DividendStatus string

const (
	DividendCompleted DividendStatus = "completed"
	DividendPending   DividendStatus = "pending"
)

// IBKRStatus is the lifecycle state of an imported broker transaction
type IBKRStatus string

const (
	IBKRPending   IBKRStatus = "pending"
	IBKRProcessed IBKRStatus = "processed"
)

// Portfolio groups holdings for reporting
type Portfolio struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	IsArchived          bool   `json:"isArchived"`
	ExcludeFromOverview bool   `json:"excludeFromOverview"`
}

// Fund is a tradable instrument referenced by holdings and price points
type Fund struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ISIN         string       `json:"isin"`
	Symbol       string       `json:"symbol"`
	Currency     Currency     `json:"currency"`
	Exchange     string       `json:"exchange"`
	DividendType DividendType `json:"dividendType"`
}

// FundPrice is one (sparse) daily closing price for a fund
type FundPrice struct {
	ID     string          `json:"id"`
	FundID string          `json:"fundId"`
	Date   time.Time       `json:"date"`
	Price  decimal.Decimal `json:"price"`
}

// PortfolioFund is a holding: one fund position inside one portfolio
type PortfolioFund struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolioId"`
	FundID      string `json:"fundId"`
}

// Transaction is one ledger entry for a holding. Shares are always stored
// positive; Type determines the sign of the position effect. Seq is the
// sqlite rowid and serves as the deterministic same-day tie-break.
type Transaction struct {
	ID                string          `json:"id"`
	PortfolioFundID   string          `json:"portfolioFundId"`
	Date              time.Time       `json:"date"`
	Type              TransactionType `json:"type"`
	Shares            decimal.Decimal `json:"shares"`
	CostPerShare      decimal.Decimal `json:"costPerShare"`
	IBKRTransactionID *string         `json:"ibkrTransactionId,omitempty"`
	Seq               int64           `json:"-"`
}

// Validate checks the ledger invariants that hold for every transaction
func (t *Transaction) Validate() error {
	if t.PortfolioFundID == "" {
		return fmt.Errorf("portfolio fund id cannot be empty")
	}
	if !t.Shares.IsPositive() {
		return fmt.Errorf("shares must be positive")
	}
	if t.CostPerShare.IsNegative() {
		return fmt.Errorf("cost per share cannot be negative")
	}
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return err
	}
	return nil
}

// RealizedGain records the outcome of one sell, computed against the
// holding's average cost at the time of sale.
type RealizedGain struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	PortfolioID   string          `json:"portfolioId"`
	FundID        string          `json:"fundId"`
	Date          time.Time       `json:"date"`
	SharesSold    decimal.Decimal `json:"sharesSold"`
	CostBasis     decimal.Decimal `json:"costBasis"`
	SaleProceeds  decimal.Decimal `json:"saleProceeds"`
	Gain          decimal.Decimal `json:"gain"`
}

// Dividend is one dividend event for a holding. SharesOwned and Total are
// derived from the ledger as of RecordDate, never user-entered.
type Dividend struct {
	ID                 string           `json:"id"`
	PortfolioFundID    string           `json:"portfolioFundId"`
	RecordDate         time.Time        `json:"recordDate"`
	ExDividendDate     time.Time        `json:"exDividendDate"`
	PerShare           decimal.Decimal  `json:"dividendPerShare"`
	SharesOwned        decimal.Decimal  `json:"sharesOwned"`
	Total              decimal.Decimal  `json:"totalAmount"`
	Type               DividendType     `json:"dividendType"`
	Status             DividendStatus   `json:"status"`
	BuyOrderDate       *time.Time       `json:"buyOrderDate,omitempty"`
	ReinvestmentShares *decimal.Decimal `json:"reinvestmentShares,omitempty"`
	ReinvestmentPrice  *decimal.Decimal `json:"reinvestmentPrice,omitempty"`
	ReinvestmentTxID   *string          `json:"reinvestmentTransactionId,omitempty"`
}

// HasReinvestment reports whether all reinvestment fields are present
func (d *Dividend) HasReinvestment() bool {
	return d.BuyOrderDate != nil && d.ReinvestmentShares != nil && d.ReinvestmentPrice != nil
}

// IBKRTransaction is an externally imported broker transaction awaiting
// allocation across portfolios.
type IBKRTransaction struct {
	ID                string          `json:"id"`
	IBKRTransactionID string          `json:"ibkrTransactionId"`
	Date              time.Time       `json:"transactionDate"`
	Symbol            string          `json:"symbol,omitempty"`
	ISIN              string          `json:"isin,omitempty"`
	Description       string          `json:"description,omitempty"`
	Type              TransactionType `json:"transactionType"`
	Shares            decimal.Decimal `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Currency          Currency        `json:"currency"`
	Fees              decimal.Decimal `json:"fees"`
	Status            IBKRStatus      `json:"status"`
	ImportedAt        time.Time       `json:"importedAt"`
}

// Allocation is one (portfolio, percentage) share of an imported transaction
type Allocation struct {
	PortfolioID string          `json:"portfolioId"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// DateFormat is the canonical ledger date representation
const DateFormat = "2006-01-02"

// ParseDate parses a canonical YYYY-MM-DD ledger date
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a time as a canonical ledger date
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}
