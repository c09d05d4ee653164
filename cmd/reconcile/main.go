// Command reconcile runs one batch reconciliation: two registry files
// in, reconciled export plus review queue out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"plantregistry/classify"
	"plantregistry/database"
	"plantregistry/export"
	"plantregistry/importer"
	"plantregistry/internal/config"
	"plantregistry/match"
	"plantregistry/quality"
	"plantregistry/reconcile"
	"plantregistry/registry"
	"plantregistry/websearch"
)

func main() {
	configPath := flag.String("config", "", "Path to the JSON config file (optional)")
	sourcePath := flag.String("source", "", "Source registry file (.csv or .xlsx)")
	targetPath := flag.String("target", "", "Target registry file (.csv or .xlsx)")
	outPath := flag.String("out", "reconciled.json", "Output file")
	formatName := flag.String("format", "json", "Output format: json, csv or excel")
	reviewPath := flag.String("review", "", "Also write the review queue as CSV to this path")
	dryRun := flag.Bool("dry-run", false, "Match only, skip classification and persistence")
	flag.Parse()

	if *sourcePath == "" || *targetPath == "" {
		fmt.Fprintln(os.Stderr, "both -source and -target are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	format, err := export.ParseFormat(*formatName)
	if err != nil {
		fatal("invalid format", err)
	}

	if !*dryRun {
		if err := cfg.RequireOracleKey(); err != nil {
			fatal("invalid config", err)
		}
	}

	sources, err := importRegistry(*sourcePath, "source")
	if err != nil {
		fatal("failed to import source registry", err)
	}
	targets, err := importRegistry(*targetPath, "target")
	if err != nil {
		fatal("failed to import target registry", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	orchestrator := buildOrchestrator(cfg, *dryRun)
	result, err := orchestrator.Run(ctx, sources, targets)
	if err != nil {
		// Committed partitions are still worth exporting.
		slog.Warn("run interrupted, exporting partial results", "error", err)
	}

	report := quality.ValidateRun(result)
	if !report.Valid {
		slog.Warn("output failed validation", "score", report.Score, "issues", len(report.Issues))
		for _, issue := range report.Issues {
			slog.Warn("validation issue", "issue", issue)
		}
	}

	if !*dryRun {
		store, err := database.New(cfg.DatabasePath)
		if err != nil {
			fatal("failed to open database", err)
		}
		defer store.Close()
		if err := store.SaveRun(ctx, result, started); err != nil {
			fatal("failed to save run", err)
		}
	}

	exporter := export.NewExporter(result)
	if err := exporter.WriteFile(*outPath, format); err != nil {
		fatal("failed to write output", err)
	}
	if *reviewPath != "" {
		f, err := os.Create(*reviewPath)
		if err != nil {
			fatal("failed to create review file", err)
		}
		if err := exporter.WriteReviewCSV(f); err != nil {
			f.Close()
			fatal("failed to write review queue", err)
		}
		f.Close()
	}

	fmt.Println("\n--- Plant Registry Reconciliation ---")
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Total Records: %d\n", result.Stats.Total)
	fmt.Printf(" - Exact matches: %d\n", result.Stats.Exact)
	fmt.Printf(" - Fuzzy matches: %d\n", result.Stats.Fuzzy)
	fmt.Printf(" - Unmatched: %d\n", result.Stats.Unmatched)
	fmt.Printf("Classified: %d\n", result.Stats.Classified)
	fmt.Printf("Review Queue: %d\n", result.Stats.Review)
	fmt.Printf("Quality Score: %.1f\n", report.Score)
	fmt.Printf("Duration: %s\n", time.Since(started).Round(time.Millisecond))
	fmt.Printf("Output: %s\n", *outPath)
}

func fatal(message string, err error) {
	slog.Error(message, "error", err)
	os.Exit(1)
}

// importRegistry picks the reader from the file extension. Rejected
// rows are logged and skipped.
func importRegistry(path, source string) ([]registry.PlantRecord, error) {
	var result *importer.ImportResult
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		result, err = importer.ImportCSV(path, source)
	case ".xlsx":
		result, err = importer.ImportExcel(path, source)
	default:
		return nil, fmt.Errorf("unsupported registry format %q (accepted: .csv, .xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	for _, rowErr := range result.Errors {
		slog.Warn("row rejected", "file", path, "row", rowErr.Row, "reason", rowErr.Reason)
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("no usable records in %s", path)
	}
	return result.Records, nil
}

func buildOrchestrator(cfg *config.Config, dryRun bool) *reconcile.Orchestrator {
	matcher := match.New(match.Config{
		CompanyThreshold:   cfg.CompanyThreshold,
		PlantNameThreshold: cfg.PlantNameThreshold,
	})

	var gateway reconcile.Classifier
	var contexts reconcile.ContextProvider
	if dryRun {
		gateway = noClassifier{}
	} else {
		oracle := classify.NewAIClient(classify.ClientConfig{
			APIKey:  cfg.OracleAPIKey,
			Model:   cfg.OracleModel,
			BaseURL: cfg.OracleBaseURL,
			Timeout: cfg.OracleTimeout,
		})
		gateway = classify.NewGateway(oracle, classify.Config{
			AcceptThreshold: cfg.AcceptThreshold,
		})
		if cfg.WebSearchEnabled {
			cacheConfig := websearch.DefaultCacheConfig()
			cacheConfig.TTL = cfg.WebSearchCacheTTL
			contexts = websearch.NewClient(websearch.ClientConfig{
				Timeout: cfg.WebSearchTimeout,
				Cache:   websearch.NewCache(cacheConfig),
			})
		}
	}

	return reconcile.New(matcher, gateway, contexts, reconcile.Options{
		MaxConcurrentPartitions: cfg.MaxConcurrentPartitions,
		ClassifyUnmatched:       !dryRun,
	})
}

// noClassifier answers every request with an unavailable result so a
// dry run never touches the oracle.
type noClassifier struct{}

func (noClassifier) Classify(_ context.Context, req classify.Request) classify.Result {
	return classify.Result{PlantID: req.PlantID}
}
