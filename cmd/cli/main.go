package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/calmzest/waterdash/internal/config"
	"github.com/calmzest/waterdash/internal/domain"
	"github.com/calmzest/waterdash/internal/ledger"
	"github.com/calmzest/waterdash/internal/logger"
	"github.com/calmzest/waterdash/internal/metrics"
	"github.com/calmzest/waterdash/internal/pipeline"
	"github.com/calmzest/waterdash/internal/sheets"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(log)
	case "metrics":
		runMetrics(log)
	case "list":
		runList(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Waterdash CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Interpret a free-text command and execute it against the ledger")
	fmt.Println("  metrics   Print revenue/expense/profit for every store")
	fmt.Println("  list      List a store's ledger rows")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// newLedger wires the configured backend. With dryRun the ledger is an empty
// in-memory one, so mutations are visible in output but persist nowhere.
func newLedger(ctx context.Context, cfg *config.Config, dryRun bool, log zerolog.Logger) (*ledger.Service, error) {
	if dryRun || cfg.SpreadsheetID == "" {
		if !dryRun {
			log.Warn().Msg("No spreadsheet configured - using volatile in-memory ledger")
		}
		return ledger.NewService(ledger.NewMemoryBackend(), cfg.CacheTTL, log), nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	backend, err := sheets.New(ctx, cfg.SpreadsheetID, log, opts...)
	if err != nil {
		return nil, err
	}
	return ledger.NewService(backend, cfg.CacheTTL, log), nil
}

func runCommand(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "execute against an empty in-memory ledger")
	fs.Parse(os.Args[2:])

	input := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if input == "" {
		log.Fatal().Msg("Usage: cli run [-dry-run] <free text command>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, err := newLedger(ctx, cfg, *dryRun, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}

	model, err := pipeline.NewGeminiModel(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create language model client")
	}

	runner := pipeline.NewRunner(
		pipeline.NewInterpreter(model, log),
		pipeline.NewReconciler(svc, metrics.New(svc, log), nil, log),
	)

	outcome, err := runner.Run(ctx, input)
	if err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}

	printJSON(outcome)
}

func runMetrics(log zerolog.Logger) {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, err := newLedger(ctx, cfg, false, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}

	snaps, err := metrics.New(svc, log).AllStoresMetrics(ctx, nil, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute metrics")
	}

	fmt.Printf("%-12s %12s %12s %12s\n", "Store", "Revenue", "Expenses", "Profit")
	for _, s := range snaps {
		fmt.Printf("%-12s %12.2f %12.2f %12.2f\n", s.Store, s.Revenue, s.Expenses, s.Profit)
	}
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	storeName := fs.String("store", "", "store name")
	fs.Parse(os.Args[2:])

	store, ok := domain.ParseStore(*storeName)
	if !ok {
		log.Fatal().Msgf("Error: -store must be one of: %s", strings.Join(domain.StoreNames(), ", "))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, err := newLedger(ctx, cfg, false, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}

	rows, err := svc.Query(ctx, store, ledger.Filter{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query ledger")
	}

	fmt.Printf("=== %s (%d transactions) ===\n", store, len(rows))
	for _, t := range rows {
		fmt.Printf("%s  %-7s %10.2f  %-14s %s\n", t.Date, t.Type, t.Amount, t.Category, t.Description)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
