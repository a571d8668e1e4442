package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/database"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/dividends"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/funds"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/holdings"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/ibkr"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/portfolios"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/transactions"
	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/valuation"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DB      *database.DB
	DevMode bool
}

// Server wires every module's repositories, services and handlers onto one
// chi router.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	db     *database.DB

	ibkrService *ibkr.Service
}

// New creates a new HTTP server with all modules wired
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		db:     cfg.DB,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// IBKRService exposes the broker service for background job registration
func (s *Server) IBKRService() *ibkr.Service {
	return s.ibkrService
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes builds the module graph and registers every route
func (s *Server) setupRoutes(cfg Config) {
	log := cfg.Log
	db := cfg.DB

	holdingRepo := holdings.NewHoldingRepository(db, log)
	holdingService := holdings.NewService(db, holdingRepo, log)

	txRepo := transactions.NewTransactionRepository(db, log)
	gainRepo := transactions.NewRealizedGainRepository(db, log)
	txService := transactions.NewService(db, txRepo, gainRepo, holdingRepo, log)

	dividendRepo := dividends.NewDividendRepository(db, log)
	dividendService := dividends.NewService(db, dividendRepo, txRepo, txService, holdingRepo, log)

	fundRepo := funds.NewFundRepository(db, log)
	priceRepo := funds.NewPriceRepository(db, log)

	engine := valuation.NewEngine(db, log)

	portfolioRepo := portfolios.NewPortfolioRepository(db, log)
	portfolioService := portfolios.NewService(portfolioRepo, holdingRepo, engine, log)

	ibkrRepo := ibkr.NewIBKRRepository(db, log)
	ibkrConfigRepo := ibkr.NewConfigRepository(db, log)
	s.ibkrService = ibkr.NewService(db, ibkrRepo, ibkrConfigRepo, fundRepo, holdingRepo, txRepo, gainRepo, txService, log)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		portfolios.NewHandlers(portfolioService, log).RegisterRoutes(r)
		funds.NewHandlers(fundRepo, priceRepo, log).RegisterRoutes(r)
		holdings.NewHandlers(holdingService, holdingRepo, engine, log).RegisterRoutes(r)
		transactions.NewHandlers(txService, gainRepo, log).RegisterRoutes(r)
		dividends.NewHandlers(dividendService, log).RegisterRoutes(r)
		valuation.NewHandlers(engine, log).RegisterRoutes(r)
		ibkr.NewHandlers(s.ibkrService, log).RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
