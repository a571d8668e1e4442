package dividends

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/web"
)

// Handlers provides HTTP handlers for dividend endpoints
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new dividend handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "dividends").Logger(),
	}
}

// RegisterRoutes registers all dividend routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/dividends", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List returns a holding's dividends. ?portfolioFundId= is required.
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
		rows = []domain.Dividend{}
	}
	web.JSON(w, http.StatusOK, rows)
}

// Get returns one dividend
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, d)
}

// Create records a new dividend. Shares owned and the payout total are
// derived from the ledger, not taken from the request.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDividendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	d, err := h.service.Create(req)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusCreated, d)
}

// Update applies a partial edit, rederiving totals and resyncing the
// reinvestment transaction.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateDividendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	d, err := h.service.Update(chi.URLParam(r, "id"), req)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, d)
}

// Delete removes a dividend and its reinvestment transaction
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusNoContent, nil)
}
