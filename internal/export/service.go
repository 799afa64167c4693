package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/entity"
	"github.com/openfacts/insights-tracker/internal/repository"
)

// Service is a tiny façade over the insight repository that produces XLSX
// bytes for exports.
type Service struct {
	repo   repository.InsightRepository
	logger *slog.Logger
}

func NewService(repo repository.InsightRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportInsightsXLSX returns an XLSX workbook (as bytes) with every stored
// insight of one product.
func (s *Service) ExportInsightsXLSX(ctx context.Context, barcode string) ([]byte, error) {
	start := time.Now()

	insights, err := s.repo.ListByBarcode(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Insights"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"ID",
		"Barcode",
		"Type",
		"Value",
		"Start Offset",
		"End Offset",
		"Annotation",
		"Source",
		"Created At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, insight := range insights {
		values := []any{
			insight.ID.String(),
			insight.Barcode,
			string(insight.Type),
			displayValue(insight),
			optionalInt(insight.StartOffset),
			optionalInt(insight.EndOffset),
			annotationLabel(insight.Annotation),
			insight.Source,
			insight.CreatedAt.UTC().Format(time.RFC3339),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	// Delete the default sheet if it's not ours
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("exported insights",
		"barcode", barcode,
		"rows", len(insights),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// displayValue prefers the normalized value and falls back to the whole
// payload for insight types without one.
func displayValue(insight *entity.PendingInsight) string {
	if v, ok := insight.DataString("value"); ok {
		return v
	}
	if len(insight.Data) == 0 {
		return ""
	}
	b, err := json.Marshal(insight.Data)
	if err != nil {
		return ""
	}
	return string(b)
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func annotationLabel(state *constants.AnnotationState) string {
	if state == nil {
		return "pending"
	}
	switch *state {
	case constants.AnnotationAccepted:
		return "accepted"
	case constants.AnnotationRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(*state))
	}
}
