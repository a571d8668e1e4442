package ibkr

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/web"
)

// Handlers provides HTTP handlers for the broker transaction inbox
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new broker handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "ibkr").Logger(),
	}
}

// RegisterRoutes registers all broker routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/ibkr", func(r chi.Router) {
		r.Post("/import", h.Import)
		r.Get("/pending", h.Pending)
		r.Get("/pending/count", h.PendingCount)
		r.Get("/processed", h.Processed)
		r.Get("/config", h.GetConfig)
		r.Put("/config", h.UpdateConfig)
		r.Post("/bulk-allocate", h.BulkAllocate)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/allocate", h.Allocate)
		r.Put("/{id}/allocations", h.ModifyAllocations)
		r.Post("/{id}/unallocate", h.Unallocate)
	})
}

// Import stores one broker transaction in the inbox, skipping known ids
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	result, err := h.service.Import(req)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	status := http.StatusCreated
	if !result.Imported {
		status = http.StatusOK
	}
	web.JSON(w, status, result)
}

// Get returns one imported transaction
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, t)
}

// Pending returns the unallocated inbox, oldest first
func (h *Handlers) Pending(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetPending()
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if rows == nil {
		rows = []domain.IBKRTransaction{}
	}
	web.JSON(w, http.StatusOK, rows)
}

// PendingCount returns the inbox size
func (h *Handlers) PendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.PendingCount()
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]int{"count": n})
}

// Processed returns allocated transactions, oldest first
func (h *Handlers) Processed(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetProcessed()
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if rows == nil {
		rows = []domain.IBKRTransaction{}
	}
	web.JSON(w, http.StatusOK, rows)
}

// Allocate splits a pending transaction across portfolios
func (h *Handlers) Allocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	if err := h.service.Allocate(chi.URLParam(r, "id"), req.Allocations); err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ModifyAllocations replaces the split of a processed transaction
func (h *Handlers) ModifyAllocations(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	if err := h.service.ModifyAllocations(chi.URLParam(r, "id"), req.Allocations); err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Unallocate reverts a processed transaction to pending
func (h *Handlers) Unallocate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unallocate(chi.URLParam(r, "id")); err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// BulkAllocate processes many sources independently and reports
// per-source outcomes.
func (h *Handlers) BulkAllocate(w http.ResponseWriter, r *http.Request) {
	var items []BulkAllocateItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	web.JSON(w, http.StatusOK, h.service.BulkAllocate(items))
}

// GetConfig returns the broker integration configuration
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.GetConfig()
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, cfg)
}

// UpdateConfig applies a partial configuration edit
func (h *Handlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	cfg, err := h.service.UpdateConfig(req)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, cfg)
}
