package dividends

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/transactions"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
)

// Service owns the dividend lifecycle. Shares owned on the record date are
// always rederived from the transaction ledger, never read from cached
// state; the linked reinvestment transaction is kept in sync by diffing the
// desired end state against the current row and applying the difference
// atomically with the dividend write.
type Service struct {
	db          *database.DB
	repo        *DividendRepository
	txRepo      *transactions.TransactionRepository
	txService   *transactions.Service
	holdingRepo *holdings.HoldingRepository
	log         zerolog.Logger
}

// NewService creates a new dividend service
func NewService(
	db *database.DB,
	repo *DividendRepository,
	txRepo *transactions.TransactionRepository,
	txService *transactions.Service,
	holdingRepo *holdings.HoldingRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		txRepo:      txRepo,
		txService:   txService,
		holdingRepo: holdingRepo,
		log:         log.With().Str("service", "dividends").Logger(),
	}
}

// GetByID retrieves one dividend
func (s *Service) GetByID(id string) (*domain.Dividend, error) {
	return s.repo.GetByID(id)
}

// GetByHolding retrieves a holding's dividends ordered by record date
func (s *Service) GetByHolding(holdingID string) ([]domain.Dividend, error) {
	if _, err := s.holdingRepo.GetByID(holdingID); err != nil {
		return nil, err
	}
	return s.repo.GetByHolding(holdingID)
}

// SharesOwnedAt replays the holding's ledger through the given date and
// returns the share count. Recomputed on every dividend create/update.
func (s *Service) SharesOwnedAt(holdingID string, date time.Time) (decimal.Decimal, error) {
	return s.sharesOwnedAtIn(s.db, holdingID, date)
}

func (s *Service) sharesOwnedAtIn(q holdings.Querier, holdingID string, date time.Time) (decimal.Decimal, error) {
	ledger, err := s.txRepo.GetByHoldingIn(q, holdingID)
	if err != nil {
		return decimal.Zero, err
	}
	pos, err := valuation.Replay(ledger, domain.FormatDate(date))
	if err != nil {
		return decimal.Zero, err
	}
	return pos.Shares, nil
}

// Create derives and persists a new dividend
func (s *Service) Create(req CreateDividendRequest) (*domain.Dividend, error) {
	if _, err := s.holdingRepo.GetByID(req.PortfolioFundID); err != nil {
		return nil, err
	}

	recordDate, err := domain.ParseDate(req.RecordDate)
	if err != nil {
		return nil, err
	}
	exDate, err := domain.ParseDate(req.ExDividendDate)
	if err != nil {
		return nil, err
	}
	if req.DividendPerShare.IsNegative() {
		return nil, fmt.Errorf("dividend per share cannot be negative")
	}

	divType, err := s.resolveType(req.PortfolioFundID, req.DividendType)
	if err != nil {
		return nil, err
	}

	d := &domain.Dividend{
		ID:              uuid.NewString(),
		PortfolioFundID: req.PortfolioFundID,
		RecordDate:      recordDate,
		ExDividendDate:  exDate,
		PerShare:        req.DividendPerShare,
		Type:            divType,
	}
	if err := s.setReinvestmentFields(d, req.BuyOrderDate, req.ReinvestmentShares, req.ReinvestmentPrice); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.derive(tx, d); err != nil {
		return nil, err
	}
	if _, err := s.syncReinvestment(tx, d, nil); err != nil {
		return nil, err
	}
	if err := s.repo.CreateIn(tx, d); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dividend: %w", err)
	}

	s.log.Info().
		Str("dividend_id", d.ID).
		Str("holding_id", d.PortfolioFundID).
		Str("type", string(d.Type)).
		Str("total", d.Total.String()).
		Msg("Dividend created")

	return d, nil
}

// Update applies a partial edit, rederiving shares owned and total and
// resyncing the reinvestment transaction.
func (s *Service) Update(id string, req UpdateDividendRequest) (*domain.Dividend, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.RecordDate != nil {
		if updated.RecordDate, err = domain.ParseDate(*req.RecordDate); err != nil {
			return nil, err
		}
	}
	if req.ExDividendDate != nil {
		if updated.ExDividendDate, err = domain.ParseDate(*req.ExDividendDate); err != nil {
			return nil, err
		}
	}
	if req.DividendPerShare != nil {
		if req.DividendPerShare.IsNegative() {
			return nil, fmt.Errorf("dividend per share cannot be negative")
		}
		updated.PerShare = *req.DividendPerShare
	}
	if req.DividendType != nil {
		if updated.Type, err = domain.ParseDividendType(*req.DividendType); err != nil {
			return nil, err
		}
	}
	if req.BuyOrderDate != nil || req.ReinvestmentShares != nil || req.ReinvestmentPrice != nil {
		buyOrderDate := req.BuyOrderDate
		if buyOrderDate == nil && updated.BuyOrderDate != nil {
			kept := domain.FormatDate(*updated.BuyOrderDate)
			buyOrderDate = &kept
		}
		reinvShares := req.ReinvestmentShares
		if reinvShares == nil {
			reinvShares = updated.ReinvestmentShares
		}
		reinvPrice := req.ReinvestmentPrice
		if reinvPrice == nil {
			reinvPrice = updated.ReinvestmentPrice
		}
		if err := s.setReinvestmentFields(&updated, buyOrderDate, reinvShares, reinvPrice); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.derive(tx, &updated); err != nil {
		return nil, err
	}
	obsoleteTxID, err := s.syncReinvestment(tx, &updated, existing)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateIn(tx, &updated); err != nil {
		return nil, err
	}
	// the dividend row no longer references it, safe to drop
	if obsoleteTxID != nil {
		if err := s.txRepo.DeleteIn(tx, *obsoleteTxID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dividend update: %w", err)
	}

	s.log.Info().Str("dividend_id", id).Msg("Dividend updated")
	return &updated, nil
}

// Delete removes a dividend, cascading its reinvestment transaction
func (s *Service) Delete(id string) error {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.repo.DeleteIn(tx, id); err != nil {
		return err
	}
	if existing.ReinvestmentTxID != nil {
		if err := s.txRepo.DeleteIn(tx, *existing.ReinvestmentTxID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dividend delete: %w", err)
	}

	s.log.Info().Str("dividend_id", id).Msg("Dividend deleted")
	return nil
}

// derive recomputes the ledger-dependent fields from the record date
func (s *Service) derive(q holdings.Querier, d *domain.Dividend) error {
	sharesOwned, err := s.sharesOwnedAtIn(q, d.PortfolioFundID, d.RecordDate)
	if err != nil {
		return err
	}
	d.SharesOwned = sharesOwned
	d.Total = sharesOwned.Mul(d.PerShare).Round(2)
	return nil
}

// syncReinvestment diffs the desired reinvestment transaction against the
// current one and applies creates/updates immediately. A transaction that
// must go away is returned instead of deleted, because the dividend row
// still references it until its own update lands.
func (s *Service) syncReinvestment(q holdings.Querier, d *domain.Dividend, current *domain.Dividend) (obsoleteTxID *string, err error) {
	var currentTxID *string
	if current != nil {
		currentTxID = current.ReinvestmentTxID
	}

	wantTx := d.Type == domain.DividendStock && d.HasReinvestment()
	if !wantTx {
		if d.Type == domain.DividendCash {
			// cash dividends are complete on arrival and carry no
			// reinvestment data
			d.BuyOrderDate = nil
			d.ReinvestmentShares = nil
			d.ReinvestmentPrice = nil
			d.Status = domain.DividendCompleted
		} else {
			d.Status = domain.DividendPending
		}
		d.ReinvestmentTxID = nil
		return currentTxID, nil
	}

	desired := domain.Transaction{
		PortfolioFundID: d.PortfolioFundID,
		Date:            *d.BuyOrderDate,
		Type:            domain.TransactionDividend,
		Shares:          *d.ReinvestmentShares,
		CostPerShare:    *d.ReinvestmentPrice,
	}

	if currentTxID != nil {
		desired.ID = *currentTxID
		if err := s.txRepo.UpdateIn(q, &desired); err != nil {
			return nil, err
		}
		d.ReinvestmentTxID = currentTxID
	} else {
		created, err := s.txService.CreateIn(q, &desired)
		if err != nil {
			return nil, err
		}
		d.ReinvestmentTxID = &created.ID
	}
	d.Status = domain.DividendCompleted
	return nil, nil
}

func (s *Service) setReinvestmentFields(d *domain.Dividend, buyOrderDate *string, shares, price *decimal.Decimal) error {
	if buyOrderDate != nil {
		t, err := domain.ParseDate(*buyOrderDate)
		if err != nil {
			return err
		}
		d.BuyOrderDate = &t
	}
	if shares != nil {
		if !shares.IsPositive() {
			return fmt.Errorf("reinvestment shares must be positive")
		}
		d.ReinvestmentShares = shares
	}
	if price != nil {
		if price.IsNegative() {
			return fmt.Errorf("reinvestment price cannot be negative")
		}
		d.ReinvestmentPrice = price
	}
	return nil
}

// resolveType uses the explicit request type, falling back to the fund's
// configured dividend type.
func (s *Service) resolveType(holdingID, explicit string) (domain.DividendType, error) {
	if explicit != "" {
		return domain.ParseDividendType(explicit)
	}

	var fundType string
	err := s.db.QueryRow(`
		SELECT f.dividend_type FROM funds f
		JOIN portfolio_funds pf ON pf.fund_id = f.id
		WHERE pf.id = ?
	`, holdingID).Scan(&fundType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("holding %s: %w", holdingID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve fund dividend type: %w", err)
	}
	return domain.ParseDividendType(fundType)
}
