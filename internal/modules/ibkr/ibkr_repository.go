package ibkr

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
)

const ibkrColumns = `id, ibkr_transaction_id, date, symbol, isin, description,
	type, shares, price, total_amount, currency, fees, status, imported_at`

// IBKRRepository handles imported broker transaction database operations
type IBKRRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewIBKRRepository creates a new broker transaction repository
func NewIBKRRepository(db *database.DB, log zerolog.Logger) *IBKRRepository {
	return &IBKRRepository{
		db:  db,
		log: log.With().Str("repo", "ibkr").Logger(),
	}
}

// GetByID retrieves an imported transaction, returning domain.ErrNotFound
// if missing.
func (r *IBKRRepository) GetByID(id string) (*domain.IBKRTransaction, error) {
	return r.GetByIDIn(r.db, id)
}

// GetByIDIn is GetByID inside an existing transaction
func (r *IBKRRepository) GetByIDIn(q holdings.Querier, id string) (*domain.IBKRTransaction, error) {
	row := q.QueryRow("SELECT "+ibkrColumns+" FROM ibkr_transactions WHERE id = ?", id)
	t, err := scanIBKR(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ibkr transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindByExternalID looks up an imported transaction by the broker's own id.
// Returns nil without error when nothing matches.
func (r *IBKRRepository) FindByExternalID(externalID string) (*domain.IBKRTransaction, error) {
	row := r.db.QueryRow("SELECT "+ibkrColumns+" FROM ibkr_transactions WHERE ibkr_transaction_id = ?", externalID)
	t, err := scanIBKR(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByStatus retrieves imported transactions in one lifecycle state,
// oldest first.
func (r *IBKRRepository) GetByStatus(status domain.IBKRStatus) ([]domain.IBKRTransaction, error) {
	rows, err := r.db.Query(
		"SELECT "+ibkrColumns+" FROM ibkr_transactions WHERE status = ? ORDER BY date, rowid",
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ibkr transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.IBKRTransaction
	for rows.Next() {
		t, err := scanIBKR(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ibkr transactions: %w", err)
	}
	return transactions, nil
}

// PendingCount returns the size of the unallocated inbox
func (r *IBKRRepository) PendingCount() (int, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM ibkr_transactions WHERE status = ?",
		string(domain.IBKRPending),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending ibkr transactions: %w", err)
	}
	return n, nil
}

// Create inserts a new imported transaction
func (r *IBKRRepository) Create(t *domain.IBKRTransaction) error {
	_, err := r.db.Exec(`
		INSERT INTO ibkr_transactions
		(id, ibkr_transaction_id, date, symbol, isin, description,
		 type, shares, price, total_amount, currency, fees, status, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.IBKRTransactionID,
		domain.FormatDate(t.Date),
		t.Symbol,
		t.ISIN,
		t.Description,
		string(t.Type),
		t.Shares.String(),
		t.Price.String(),
		t.TotalAmount.String(),
		string(t.Currency),
		t.Fees.String(),
		string(t.Status),
		t.ImportedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create ibkr transaction: %w", err)
	}
	return nil
}

// SetStatusIn moves an imported transaction to a new lifecycle state
// inside an existing transaction.
func (r *IBKRRepository) SetStatusIn(q holdings.Querier, id string, status domain.IBKRStatus) error {
	res, err := q.Exec(
		"UPDATE ibkr_transactions SET status = ? WHERE id = ?",
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update ibkr transaction status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ibkr transaction %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanIBKR(row interface{ Scan(...interface{}) error }) (*domain.IBKRTransaction, error) {
	var t domain.IBKRTransaction
	var date, txType, shares, price, total, currency, fees, status, importedAt string
	err := row.Scan(
		&t.ID, &t.IBKRTransactionID, &date, &t.Symbol, &t.ISIN, &t.Description,
		&txType, &shares, &price, &total, &currency, &fees, &status, &importedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ibkr transaction: %w", err)
	}

	if t.Date, err = domain.ParseDate(date); err != nil {
		return nil, err
	}
	if t.Type, err = domain.ParseTransactionType(txType); err != nil {
		return nil, err
	}
	if t.Shares, err = decimal.NewFromString(shares); err != nil {
		return nil, fmt.Errorf("failed to parse shares: %w", err)
	}
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	if t.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("failed to parse total amount: %w", err)
	}
	if t.Fees, err = decimal.NewFromString(fees); err != nil {
		return nil, fmt.Errorf("failed to parse fees: %w", err)
	}
	t.Currency = domain.Currency(currency)
	t.Status = domain.IBKRStatus(status)
	if t.ImportedAt, err = parseTimestamp(importedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
