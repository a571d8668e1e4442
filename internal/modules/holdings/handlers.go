package holdings

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/web"
)

// Handlers provides HTTP handlers for holding endpoints
type Handlers struct {
	service *Service
	repo    *HoldingRepository
	engine  *valuation.Engine
	log     zerolog.Logger
}

// NewHandlers creates a new holding handlers instance
func NewHandlers(service *Service, repo *HoldingRepository, engine *valuation.Engine, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		repo:    repo,
		engine:  engine,
		log:     log.With().Str("handler", "holdings").Logger(),
	}
}

// RegisterRoutes registers all holding routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/position", h.Position)
	})
}

// List returns holdings, optionally filtered by ?portfolioId=
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	var (
		rows []domain.PortfolioFund
		err  error
	)
	if portfolioID := r.URL.Query().Get("portfolioId"); portfolioID != "" {
		rows, err = h.repo.GetByPortfolio(portfolioID)
	} else {
		rows, err = h.repo.GetAll()
	}
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if rows == nil {
		rows = []domain.PortfolioFund{}
	}
	web.JSON(w, http.StatusOK, rows)
}

// Get returns one holding
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	holding, err := h.repo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, holding)
}

// createHoldingRequest is the request body for adding a fund to a portfolio
type createHoldingRequest struct {
	PortfolioID string `json:"portfolioId"`
	FundID      string `json:"fundId"`
}

// Create adds a fund position to a portfolio
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	holding, err := h.service.Create(req.PortfolioID, req.FundID)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusCreated, holding)
}

// Delete removes a holding. Holdings with history require ?confirm=true
// and cascade their transactions and dividends.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	confirm := r.URL.Query().Get("confirm") == "true"
	err := h.service.Delete(chi.URLParam(r, "id"), confirm)
	if errors.Is(err, ErrConfirmationRequired) {
		web.Conflict(w, err.Error())
		return
	}
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusNoContent, nil)
}

// Position returns the replayed position as of ?date= (default today)
func (h *Handlers) Position(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		t, err := domain.ParseDate(raw)
		if err != nil {
			web.BadRequest(w, err.Error())
			return
		}
		asOf = t
	}

	pos, err := h.engine.GetCurrentPosition(chi.URLParam(r, "id"), asOf)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, pos)
}
