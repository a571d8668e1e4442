package transactions

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/web"
)

// Handlers provides HTTP handlers for transaction endpoints
type Handlers struct {
	service  *Service
	gainRepo *RealizedGainRepository
	log      zerolog.Logger
}

// NewHandlers creates a new transaction handlers instance
func NewHandlers(service *Service, gainRepo *RealizedGainRepository, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:  service,
		gainRepo: gainRepo,
		log:      log.With().Str("handler", "transactions").Logger(),
	}
}

// RegisterRoutes registers all transaction routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/realized-gain", h.RealizedGain)
	})
	r.Get("/realized-gains", h.RealizedGainsByPortfolio)
}

// List returns a holding's transactions in replay order.
// ?portfolioFundId= is required.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	holdingID := r.URL.Query().Get("portfolioFundId")
	if holdingID == "" {
		web.BadRequest(w, "portfolioFundId query parameter is required")
		return
	}
	rows, err := h.service.GetByHolding(holdingID)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if rows == nil {
		rows = []domain.Transaction{}
	}
	web.JSON(w, http.StatusOK, rows)
}

// Get returns one transaction
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, t)
}

// Create records a new ledger transaction. Sells that exceed the held
// share count are refused with 409.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	t, err := h.service.Create(req)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusCreated, t)
}

// Update applies a partial edit, revalidating the ledger
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	t, err := h.service.Update(chi.URLParam(r, "id"), req)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, t)
}

// Delete removes a transaction and its realized gain
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusNoContent, nil)
}

// RealizedGain returns the gain row for a sell, or 404 when the
// transaction has none.
func (h *Handlers) RealizedGain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.GetByID(id); err != nil {
		web.Error(w, h.log, err)
		return
	}
	gain, err := h.gainRepo.GetByTransaction(id)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if gain == nil {
		web.JSON(w, http.StatusNotFound, map[string]string{"error": "transaction has no realized gain"})
		return
	}
	web.JSON(w, http.StatusOK, gain)
}

// RealizedGainsByPortfolio returns a portfolio's realized gains in date
// order. ?portfolioId= is required.
func (h *Handlers) RealizedGainsByPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.URL.Query().Get("portfolioId")
	if portfolioID == "" {
		web.BadRequest(w, "portfolioId query parameter is required")
		return
	}
	gains, err := h.gainRepo.GetByPortfolio(portfolioID)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if gains == nil {
		gains = []domain.RealizedGain{}
	}
	web.JSON(w, http.StatusOK, gains)
}
