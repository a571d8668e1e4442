package portfolios

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/web"
)

// Handlers provides HTTP handlers for portfolio endpoints
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "portfolios").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/summary", h.Summary)
		r.Get("/{id}/history", h.History)
		r.Get("/{id}/performance", h.Performance)
	})
}

// List returns all portfolios, including archived ones when
// ?includeArchived=true is set.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("includeArchived") == "true"
	portfolios, err := h.service.GetAll(includeArchived)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if portfolios == nil {
		portfolios = []domain.Portfolio{}
	}
	web.JSON(w, http.StatusOK, portfolios)
}

// Get returns one portfolio
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, p)
}

// Create creates a new portfolio
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	p, err := h.service.Create(req)
	if err != nil {
		web.BadRequest(w, err.Error())
		return
	}
	web.JSON(w, http.StatusCreated, p)
}

// Update applies a partial portfolio edit
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	p, err := h.service.Update(chi.URLParam(r, "id"), req)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, p)
}

// Delete removes an empty portfolio
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusNoContent, nil)
}

// Summary values the portfolio as of ?date= (default today)
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.dateParam(w, r, "date", time.Now())
	if !ok {
		return
	}
	summary, err := h.service.GetSummary(chi.URLParam(r, "id"), asOf)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, summary)
}

// History returns the valuation series over ?start=..&end=.. (end defaults
// to today, start to 30 days before end).
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	history, err := h.service.GetHistory(chi.URLParam(r, "id"), start, end)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, history)
}

// Performance returns return and risk statistics over ?start=..&end=..
func (h *Handlers) Performance(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	perf, err := h.service.GetPerformance(chi.URLParam(r, "id"), start, end)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, perf)
}

func (h *Handlers) dateParam(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		web.BadRequest(w, err.Error())
		return time.Time{}, false
	}
	return t, true
}

func (h *Handlers) rangeParams(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	end, ok = h.dateParam(w, r, "end", time.Now())
	if !ok {
		return
	}
	start, ok = h.dateParam(w, r, "start", end.AddDate(0, 0, -30))
	if !ok {
		return
	}
	if end.Before(start) {
		web.BadRequest(w, "end date before start date")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
