package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/export"
	"github.com/openfacts/insights-tracker/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		barcode = flag.String("barcode", "", "product barcode to export (required)")
		out     = flag.String("o", "insights.xlsx", "output XLSX file path")
	)
	flag.Parse()

	if *barcode == "" {
		printError("Error: --barcode is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()

	db, pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)

	repo := repository.NewInsightRepository(db, logger)
	svc := export.NewService(repo, logger)

	data, err := svc.ExportInsightsXLSX(ctx, *barcode)
	if err != nil {
		logger.Error("export failed", "barcode", *barcode, "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("failed to write workbook", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("export written", "path", *out, "bytes", len(data))
}
