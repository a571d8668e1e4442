package valuation

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/web"
)

// Handlers provides HTTP handlers for valuation endpoints
type Handlers struct {
	engine *Engine
	log    zerolog.Logger
}

// NewHandlers creates a new valuation handlers instance
func NewHandlers(engine *Engine, log zerolog.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		log:    log.With().Str("handler", "valuation").Logger(),
	}
}

// RegisterRoutes registers all valuation routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/valuations", h.Series)
}

// Series computes a valuation time series for an arbitrary holding set.
// ?holdingIds= takes a comma-separated list; ?start= and ?end= bound the
// range (end defaults to today, start to end).
func (h *Handlers) Series(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("holdingIds")
	if raw == "" {
		web.BadRequest(w, "holdingIds query parameter is required")
		return
	}
	var holdingIDs []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			holdingIDs = append(holdingIDs, id)
		}
	}
	if len(holdingIDs) == 0 {
		web.BadRequest(w, "holdingIds query parameter is required")
		return
	}

	end := time.Now()
	if rawEnd := r.URL.Query().Get("end"); rawEnd != "" {
		t, err := domain.ParseDate(rawEnd)
		if err != nil {
			web.BadRequest(w, err.Error())
			return
		}
		end = t
	}
	start := end
	if rawStart := r.URL.Query().Get("start"); rawStart != "" {
		t, err := domain.ParseDate(rawStart)
		if err != nil {
			web.BadRequest(w, err.Error())
			return
		}
		start = t
	}
	if end.Before(start) {
		web.BadRequest(w, "end date before start date")
		return
	}

	series, err := h.engine.ComputeSeries(holdingIDs, start, end)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, series)
}
