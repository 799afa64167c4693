package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfacts/insights-tracker/internal/batch"
	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/entity"
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
		input = flag.String("input", "", "JSONL batch output to import (required, '-' for stdin)")
		inmem = flag.Bool("inmem", false, "use an in-memory SQLite database (smoke runs)")
	)
	flag.Parse()

	if *input == "" {
		printError("Error: --input is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()

	var (
		db   *sql.DB
		pool *pgxpool.Pool
		err  error
	)
	if *inmem {
		db, err = repository.OpenMemory(ctx, logger)
	} else {
		db, pool, err = repository.Open(ctx, cfg.Database, logger)
	}
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)

	repo := repository.NewInsightRepository(db, logger)

	var reader *bufio.Scanner
	if *input == "-" {
		reader = bufio.NewScanner(os.Stdin)
	} else {
		f, err := os.Open(*input)
		if err != nil {
			logger.Error("failed to open input", "path", *input, "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = f.Close()
		}()
		reader = bufio.NewScanner(f)
	}
	reader.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	var imported, skipped int
	for reader.Scan() {
		if ctx.Err() != nil {
			break
		}
		var record batch.Record
		if err := json.Unmarshal(reader.Bytes(), &record); err != nil {
			logger.Warn("malformed record, skipping", "error", err)
			skipped++
			continue
		}
		if record.Barcode == nil {
			logger.Warn("record without barcode, skipping", "source", record.Source)
			skipped++
			continue
		}
		for _, insight := range record.Insights {
			row := &entity.PendingInsight{
				Barcode: *record.Barcode,
				Type:    record.Type,
				Source:  record.Source,
				Data: map[string]any{
					"tag":   insight.Tag,
					"raw":   insight.Raw,
					"value": insight.Value,
				},
			}
			for k, v := range insight.Data {
				row.Data[k] = v
			}
			// Offsets travel inside the payload for offset-bearing types.
			if v, ok := asInt(row.Data["start_offset"]); ok {
				row.StartOffset = &v
			}
			if v, ok := asInt(row.Data["end_offset"]); ok {
				row.EndOffset = &v
			}
			if err := repo.Insert(ctx, row); err != nil {
				logger.Error("failed to insert insight", "barcode", row.Barcode, "error", err)
				skipped++
				continue
			}
			imported++
		}
	}
	if err := reader.Err(); err != nil {
		logger.Error("failed to read input", "error", err)
		os.Exit(1)
	}

	logger.Info("import finished", "imported", imported, "skipped", skipped)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
