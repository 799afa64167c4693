package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/annotate"
	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/products"
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
		idStr  = flag.String("id", "", "insight ID to annotate (required)")
		accept = flag.Bool("accept", false, "accept the insight and apply its side effect")
		reject = flag.Bool("reject", false, "reject the insight")
	)
	flag.Parse()

	if *idStr == "" {
		printError("Error: --id is required\n")
		os.Exit(1)
	}
	if *accept == *reject {
		printError("Error: exactly one of --accept or --reject is required\n")
		os.Exit(1)
	}
	id, err := uuid.Parse(*idStr)
	if err != nil {
		printError("Error: invalid insight ID %q: %v\n", *idStr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)

	if err := repository.HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	repo := repository.NewInsightRepository(db, logger)

	httpClient := &http.Client{Timeout: cfg.Products.Timeout}
	client := products.NewClient(httpClient, cfg.Products, logger)
	registry := annotate.NewRegistry(client, repo, logger)

	insight, err := repo.GetByID(ctx, id)
	if err != nil {
		logger.Error("failed to load insight", "id", id, "error", err)
		os.Exit(1)
	}
	if !insight.Pending() {
		logger.Error("insight already annotated", "id", id)
		os.Exit(1)
	}

	if *reject {
		if err := repo.SetAnnotation(ctx, id, constants.AnnotationRejected); err != nil {
			logger.Error("failed to reject insight", "id", id, "error", err)
			os.Exit(1)
		}
		logger.Info("insight rejected", "id", id)
		return
	}

	annotator, err := registry.ForType(insight.Type)
	if err != nil {
		logger.Error("no annotator for insight", "id", id, "type", insight.Type, "error", err)
		os.Exit(1)
	}

	// Transient external failures get a bounded retry; reconciliation and
	// bad-payload failures are hard and fail the attempt immediately.
	for attempt := 1; ; attempt++ {
		err = annotator.Annotate(ctx, insight)
		if err == nil {
			break
		}
		if !annotate.Retryable(err) || attempt >= cfg.Batch.MaxRetries {
			logger.Error("annotation failed", "id", id, "attempt", attempt, "error", err)
			os.Exit(1)
		}
		logger.Warn("annotation attempt failed, retrying", "id", id, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			logger.Error("annotation interrupted", "id", id, "error", ctx.Err())
			os.Exit(1)
		case <-time.After(cfg.Batch.RetryInterval):
		}
	}

	if err := repo.SetAnnotation(ctx, id, constants.AnnotationAccepted); err != nil {
		logger.Error("failed to record annotation", "id", id, "error", err)
		os.Exit(1)
	}
	logger.Info("insight accepted", "id", id, "type", insight.Type)
}
