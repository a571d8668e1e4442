package transactions

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

const txColumns = "id, portfolio_fund_id, date, type, shares, cost_per_share, ibkr_transaction_id, rowid"

// TransactionRepository handles transaction database operations
type TransactionRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// GetByID retrieves a transaction, returning domain.ErrNotFound if missing
func (r *TransactionRepository) GetByID(id string) (*domain.Transaction, error) {
	return r.GetByIDIn(r.db, id)
}

// GetByIDIn is GetByID inside an existing transaction
func (r *TransactionRepository) GetByIDIn(q holdings.Querier, id string) (*domain.Transaction, error) {
	row := q.QueryRow("SELECT "+txColumns+" FROM transactions WHERE id = ?", id)
	t, err := valuation.ScanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByHolding retrieves a holding's transactions in replay order
func (r *TransactionRepository) GetByHolding(holdingID string) ([]domain.Transaction, error) {
	return r.GetByHoldingIn(r.db, holdingID)
}

// GetByHoldingIn retrieves a holding's transactions in replay order inside
// an existing transaction.
func (r *TransactionRepository) GetByHoldingIn(q holdings.Querier, holdingID string) ([]domain.Transaction, error) {
	rows, err := q.Query(
		"SELECT "+txColumns+" FROM transactions WHERE portfolio_fund_id = ? ORDER BY date, rowid",
		holdingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by holding: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := valuation.ScanTransaction(rows)
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

// GetByIBKRSourceIn retrieves the transactions derived from one imported
// broker transaction.
func (r *TransactionRepository) GetByIBKRSourceIn(q holdings.Querier, sourceID string) ([]domain.Transaction, error) {
	rows, err := q.Query(
		"SELECT "+txColumns+" FROM transactions WHERE ibkr_transaction_id = ? ORDER BY date, rowid",
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by source: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := valuation.ScanTransaction(rows)
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

// CreateIn inserts a transaction row inside an existing transaction
func (r *TransactionRepository) CreateIn(q holdings.Querier, t *domain.Transaction) error {
	_, err := q.Exec(`
		INSERT INTO transactions (id, portfolio_fund_id, date, type, shares, cost_per_share, ibkr_transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.PortfolioFundID,
		domain.FormatDate(t.Date),
		string(t.Type),
		t.Shares.String(),
		t.CostPerShare.String(),
		t.IBKRTransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// UpdateIn rewrites a transaction row inside an existing transaction
func (r *TransactionRepository) UpdateIn(q holdings.Querier, t *domain.Transaction) error {
	res, err := q.Exec(`
		UPDATE transactions
		SET portfolio_fund_id = ?, date = ?, type = ?, shares = ?, cost_per_share = ?
		WHERE id = ?
	`,
		t.PortfolioFundID,
		domain.FormatDate(t.Date),
		string(t.Type),
		t.Shares.String(),
		t.CostPerShare.String(),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteIn removes a transaction row inside an existing transaction
func (r *TransactionRepository) DeleteIn(q holdings.Querier, id string) error {
	res, err := q.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
