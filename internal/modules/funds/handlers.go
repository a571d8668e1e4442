package funds

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/domain"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/pkg/web"
)

// Handlers provides HTTP handlers for fund and fund price endpoints
type Handlers struct {
	fundRepo  *FundRepository
	priceRepo *PriceRepository
	log       zerolog.Logger
}

// NewHandlers creates a new fund handlers instance
func NewHandlers(fundRepo *FundRepository, priceRepo *PriceRepository, log zerolog.Logger) *Handlers {
	return &Handlers{
		fundRepo:  fundRepo,
		priceRepo: priceRepo,
		log:       log.With().Str("handler", "funds").Logger(),
	}
}

// RegisterRoutes registers all fund routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/funds", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Get("/{id}/prices", h.ListPrices)
		r.Post("/{id}/prices", h.UpsertPrice)
	})
}

// List returns all funds
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	funds, err := h.fundRepo.GetAll()
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if funds == nil {
		funds = []domain.Fund{}
	}
	web.JSON(w, http.StatusOK, funds)
}

// Get returns one fund
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.fundRepo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, f)
}

// Create creates a new fund
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var f domain.Fund
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	if f.Name == "" {
		web.BadRequest(w, "fund name cannot be empty")
		return
	}
	f.ID = ""
	if err := h.fundRepo.Create(&f); err != nil {
		web.BadRequest(w, err.Error())
		return
	}
	web.JSON(w, http.StatusCreated, f)
}

// Update rewrites a fund
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.fundRepo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, h.log, err)
		return
	}

	updated := *existing
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	updated.ID = existing.ID
	if _, err := domain.ParseDividendType(string(updated.DividendType)); err != nil {
		web.BadRequest(w, err.Error())
		return
	}
	if err := h.fundRepo.Update(&updated); err != nil {
		web.Error(w, h.log, err)
		return
	}
	web.JSON(w, http.StatusOK, updated)
}

// ListPrices returns a fund's price history
func (h *Handlers) ListPrices(w http.ResponseWriter, r *http.Request) {
	fundID := chi.URLParam(r, "id")
	if _, err := h.fundRepo.GetByID(fundID); err != nil {
		web.Error(w, h.log, err)
		return
	}
	prices, err := h.priceRepo.GetByFund(fundID)
	if err != nil {
		web.Error(w, h.log, err)
		return
	}
	if prices == nil {
		prices = []domain.FundPrice{}
	}
	web.JSON(w, http.StatusOK, prices)
}

// upsertPriceRequest is the request body for writing one price point
type upsertPriceRequest struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// UpsertPrice writes the closing price for one date
func (h *Handlers) UpsertPrice(w http.ResponseWriter, r *http.Request) {
	fundID := chi.URLParam(r, "id")
	if _, err := h.fundRepo.GetByID(fundID); err != nil {
		web.Error(w, h.log, err)
		return
	}

	var req upsertPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "invalid request body")
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		web.BadRequest(w, err.Error())
		return
	}

	price := domain.FundPrice{FundID: fundID, Date: date, Price: req.Price}
	if err := h.priceRepo.Upsert(&price); err != nil {
		web.BadRequest(w, err.Error())
		return
	}
	web.JSON(w, http.StatusCreated, price)
}
