package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/batch"
	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/extraction"
	"github.com/openfacts/insights-tracker/internal/products"
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
		typeStr   = flag.String("type", "", "insight type to extract (required)")
		out       = flag.String("o", "", "file to write output to, stdout if not specified")
		keepEmpty = flag.Bool("keep-empty", false, "keep documents with no insights")
		validate  = flag.Bool("validate", false, "validate each response against the provider schema")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	input := flag.Arg(0)
	if input == "" {
		printError("Error: an input is required (barcode, JSON file, directory, or JSONL dump)\n")
		os.Exit(1)
	}
	if *typeStr == "" {
		printError("Error: --type is required, one of: %v\n", constants.InsightTypesAsStrings())
		os.Exit(1)
	}
	insightType, ok := constants.ParseInsightType(*typeStr)
	if !ok {
		printError("Error: unknown insight type %q, one of: %v\n", *typeStr, constants.InsightTypesAsStrings())
		os.Exit(1)
	}

	// Setup logger; diagnostics go to stderr so stdout stays valid JSONL.
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()

	// One long-lived HTTP client, shared by every outbound call.
	httpClient := &http.Client{Timeout: cfg.Products.Timeout}
	client := products.NewClient(httpClient, cfg.Products, logger)

	engine := extraction.NewEngine(extraction.DefaultRegistry(), logger)
	if !slices.Contains(engine.Types(), insightType) {
		printError("Error: insight type %q has no extraction matchers, one of: %v\n", insightType, engine.Types())
		os.Exit(1)
	}
	iterator := batch.NewIterator(client, cfg.Batch.MaxRetries, cfg.Batch.RetryInterval, logger)
	runner := batch.NewRunner(engine, logger)
	runner.KeepEmpty = *keepEmpty
	runner.Validate = *validate

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Error("failed to create output file", "path", *out, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Error("failed to close output file", "path", *out, "error", err)
			}
		}()
		w = f
	}

	stats, err := runner.Run(ctx, iterator.Documents(ctx, input), insightType, w)
	if err != nil {
		logger.Error("batch extraction failed", "input", input, "type", insightType, "error", err)
		os.Exit(1)
	}

	logger.Info("batch extraction finished",
		"input", input,
		"type", insightType,
		"documents", stats.Documents,
		"skipped", stats.Skipped,
		"written", stats.Written,
		"insights", stats.Insights,
	)
}
