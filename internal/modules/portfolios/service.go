package portfolios

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/formulas"
)

// riskFreeRate feeds the Sharpe calculation. Annual, as a decimal.
const riskFreeRate = 0.02

// Service provides portfolio CRUD and the valuation-backed reporting
// endpoints. All aggregate numbers are derived from the ledger through the
// valuation engine; nothing here maintains running totals.
type Service struct {
	repo        *PortfolioRepository
	holdingRepo *holdings.HoldingRepository
	engine      *valuation.Engine
	log         zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	repo *PortfolioRepository,
	holdingRepo *holdings.HoldingRepository,
	engine *valuation.Engine,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		holdingRepo: holdingRepo,
		engine:      engine,
		log:         log.With().Str("service", "portfolios").Logger(),
	}
}

// GetByID retrieves one portfolio
func (s *Service) GetByID(id string) (*domain.Portfolio, error) {
	return s.repo.GetByID(id)
}

// GetAll retrieves portfolios, optionally including archived ones
func (s *Service) GetAll(includeArchived bool) ([]domain.Portfolio, error) {
	return s.repo.GetAll(includeArchived)
}

// Create validates and persists a new portfolio
func (s *Service) Create(req CreatePortfolioRequest) (*domain.Portfolio, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("portfolio name cannot be empty")
	}
	p := &domain.Portfolio{Name: req.Name, Description: req.Description}
	if err := s.repo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies a partial edit
func (s *Service) Update(id string, req UpdatePortfolioRequest) (*domain.Portfolio, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("portfolio name cannot be empty")
		}
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.IsArchived != nil {
		p.IsArchived = *req.IsArchived
	}
	if req.ExcludeFromOverview != nil {
		p.ExcludeFromOverview = *req.ExcludeFromOverview
	}

	if err := s.repo.Update(p); err != nil {
		return nil, err
	}
	s.log.Info().Str("portfolio_id", id).Msg("Portfolio updated")
	return p, nil
}

// Delete removes an empty portfolio. Portfolios with holdings must have
// them removed first; archiving is the non-destructive alternative.
func (s *Service) Delete(id string) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}
	n, err := s.repo.HoldingCount(id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("portfolio %s has %d holdings, archive it instead", id, n)
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.log.Info().Str("portfolio_id", id).Msg("Portfolio deleted")
	return nil
}

// GetSummary values a portfolio's holdings as of one date
func (s *Service) GetSummary(id string, asOf time.Time) (*Summary, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	summary := &Summary{PortfolioID: p.ID, Date: domain.FormatDate(asOf)}

	holdingRows, err := s.holdingRepo.GetByPortfolio(id)
	if err != nil {
		return nil, err
	}
	if len(holdingRows) > 0 {
		ids := make([]string, len(holdingRows))
		for i, h := range holdingRows {
			ids[i] = h.ID
		}
		series, err := s.engine.ComputeSeries(ids, asOf, asOf)
		if err != nil {
			return nil, err
		}
		day := series[0]
		summary.Value = day.Totals.Value
		summary.Cost = day.Totals.Cost
		summary.RealizedGain = day.Totals.RealizedGain
		summary.UnrealizedGain = day.Totals.UnrealizedGain
		summary.Holdings = day.Holdings
	}

	if summary.TotalDividends, err = s.repo.SumDividends(id); err != nil {
		return nil, err
	}
	return summary, nil
}

// GetHistory computes a portfolio's valuation series over [start, end]
func (s *Service) GetHistory(id string, start, end time.Time) ([]HistoryPoint, error) {
	if _, err := s.repo.GetByID(id); err != nil {
		return nil, err
	}

	holdingRows, err := s.holdingRepo.GetByPortfolio(id)
	if err != nil {
		return nil, err
	}
	if len(holdingRows) == 0 {
		var flat []HistoryPoint
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			flat = append(flat, HistoryPoint{Date: domain.FormatDate(day)})
		}
		return flat, nil
	}

	ids := make([]string, len(holdingRows))
	for i, h := range holdingRows {
		ids[i] = h.ID
	}
	series, err := s.engine.ComputeSeries(ids, start, end)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryPoint, len(series))
	for i, day := range series {
		history[i] = HistoryPoint{
			Date:           day.Date,
			Value:          day.Totals.Value,
			Cost:           day.Totals.Cost,
			RealizedGain:   day.Totals.RealizedGain,
			UnrealizedGain: day.Totals.UnrealizedGain,
		}
	}
	return history, nil
}

// GetPerformance computes return and risk statistics over a portfolio's
// valuation history. Days where the portfolio was worth nothing are skipped
// so a late first purchase does not register as an infinite return.
func (s *Service) GetPerformance(id string, start, end time.Time) (*Performance, error) {
	history, err := s.GetHistory(id, start, end)
	if err != nil {
		return nil, err
	}

	var values []float64
	for _, point := range history {
		if point.Value.IsZero() {
			continue
		}
		v, _ := point.Value.Float64()
		values = append(values, v)
	}

	perf := &Performance{
		PortfolioID: id,
		Start:       domain.FormatDate(start),
		End:         domain.FormatDate(end),
	}
	if len(values) == 0 {
		return perf, nil
	}

	perf.StartValue = values[0]
	perf.EndValue = values[len(values)-1]
	if perf.StartValue != 0 {
		total := (perf.EndValue - perf.StartValue) / perf.StartValue
		perf.TotalReturn = &total
	}

	returns := formulas.CalculateReturns(values)
	if len(returns) > 0 {
		vol := formulas.AnnualizedVolatility(returns)
		perf.AnnualizedVolatility = &vol
	}
	perf.SharpeRatio = formulas.CalculateSharpeRatio(returns, riskFreeRate, 252)
	perf.MaxDrawdown = formulas.CalculateMaxDrawdown(values)

	return perf, nil
}
