package batch

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"log/slog"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/extraction"
	"github.com/openfacts/insights-tracker/internal/ocr"
)

// Record is one line of batch output: every insight of one category found
// in one source document. Barcode is null when none could be derived.
type Record struct {
	Type     constants.InsightType `json:"type"`
	Barcode  *string               `json:"barcode"`
	Insights []extraction.Insight  `json:"insights"`
	Source   string                `json:"source,omitempty"`
}

// Runner drives extraction over a document stream and writes JSONL records.
type Runner struct {
	engine    *extraction.Engine
	logger    *slog.Logger
	KeepEmpty bool
	Validate  bool
}

func NewRunner(engine *extraction.Engine, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, logger: logger}
}

// Stats aggregates one batch run.
type Stats struct {
	Documents int
	Skipped   int
	Written   int
	Insights  int
}

// Run extracts insightType from every document and writes one JSON line per
// document with insights (or per document, with KeepEmpty). Documents whose
// provider response is missing or erroneous are skipped. An unknown insight
// type aborts immediately: that is a caller mistake, not a data problem.
func (r *Runner) Run(ctx context.Context, docs iter.Seq[Document], insightType constants.InsightType, w io.Writer) (Stats, error) {
	encoder := json.NewEncoder(w)
	var stats Stats

	for doc := range docs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Documents++

		response, ok := ocr.FirstResponse(doc.Raw)
		if !ok {
			r.logger.Debug("no usable OCR response, skipping", "source", doc.Source)
			stats.Skipped++
			continue
		}
		if r.Validate {
			if err := ocr.ValidateResponse(response); err != nil {
				r.logger.Warn("response failed validation, skipping", "source", doc.Source, "error", err)
				stats.Skipped++
				continue
			}
		}

		result := ocr.NewResult(response, r.logger)
		insights, err := r.engine.Extract(result, insightType)
		if err != nil {
			return stats, err
		}
		if len(insights) == 0 && !r.KeepEmpty {
			continue
		}

		record := Record{
			Type:     insightType,
			Insights: insights,
			Source:   doc.Source,
		}
		if barcode := BarcodeFromPath(doc.Source); barcode != "" {
			record.Barcode = &barcode
		}
		if err := encoder.Encode(record); err != nil {
			return stats, err
		}
		stats.Written++
		stats.Insights += len(insights)
	}
	return stats, nil
}
