package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/api/option"

	"github.com/calmzest/waterdash/internal/api/handlers"
	"github.com/calmzest/waterdash/internal/api/middleware"
	"github.com/calmzest/waterdash/internal/config"
	"github.com/calmzest/waterdash/internal/ledger"
	"github.com/calmzest/waterdash/internal/logger"
	"github.com/calmzest/waterdash/internal/metrics"
	"github.com/calmzest/waterdash/internal/pipeline"
	"github.com/calmzest/waterdash/internal/sheets"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		port          = flag.String("port", cfg.Port, "HTTP server port")
		spreadsheetID = flag.String("spreadsheet", cfg.SpreadsheetID, "ledger spreadsheet ID (or set SHEETS_SPREADSHEET_ID)")
	)
	flag.Parse()

	ctx := context.Background()

	// Backend selection: the spreadsheet when configured, otherwise an
	// in-memory ledger that loses everything on restart.
	var backend ledger.Backend
	if *spreadsheetID != "" {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		sb, err := sheets.New(ctx, *spreadsheetID, log, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create spreadsheet backend")
		}
		backend = sb
	} else {
		log.Warn().Msg("No spreadsheet configured - using volatile in-memory ledger")
		backend = ledger.NewMemoryBackend()
	}

	ledgerSvc := ledger.NewService(backend, cfg.CacheTTL, log)
	aggregator := metrics.New(ledgerSvc, log)

	model, err := pipeline.NewGeminiModel(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create language model client")
	}
	interpreter := pipeline.NewInterpreter(model, log)
	reconciler := pipeline.NewReconciler(ledgerSvc, aggregator, nil, log)

	parseHandler := handlers.NewParseHandler(interpreter, log)
	transactionsHandler := handlers.NewTransactionsHandler(ledgerSvc, reconciler, log)
	analyticsHandler := handlers.NewAnalyticsHandler(reconciler, log)
	dashboardHandler := handlers.NewDashboardHandler(ledgerSvc, aggregator, nil, cfg.ToleratePartialFailure, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/transactions/parse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			parseHandler.Parse(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Execute(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			analyticsHandler.Query(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Overview(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", handlers.Health)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
