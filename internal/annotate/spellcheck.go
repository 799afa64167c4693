package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/entity"
	"github.com/openfacts/insights-tracker/internal/repository"
)

// SpellcheckAnnotator reconciles sibling offsets after an accepted spelling
// correction. Offsets of all pending siblings of the same (barcode, type)
// index into one shared reference text; a correction that changes the length
// of its own slice shifts every sibling's range by the length delta.
//
// Every pending sibling is shifted, including ranges before the edit.
type SpellcheckAnnotator struct {
	repo   repository.InsightRepository
	logger *slog.Logger
}

func NewSpellcheckAnnotator(repo repository.InsightRepository, logger *slog.Logger) *SpellcheckAnnotator {
	return &SpellcheckAnnotator{repo: repo, logger: logger}
}

func (a *SpellcheckAnnotator) Annotate(ctx context.Context, insight *entity.PendingInsight) error {
	original, ok := insight.DataString("original")
	if !ok {
		return common.NewAppError("INVALID_INSIGHT_DATA",
			fmt.Sprintf("insight %s has no original text", insight.ID), common.ErrInvalidInput)
	}
	correction, ok := insight.DataString("correction")
	if !ok {
		return common.NewAppError("INVALID_INSIGHT_DATA",
			fmt.Sprintf("insight %s has no correction text", insight.ID), common.ErrInvalidInput)
	}

	// Offsets are rune positions, so the delta is in runes as well.
	delta := utf8.RuneCountInString(correction) - utf8.RuneCountInString(original)
	if delta == 0 {
		return nil
	}

	shifted, err := a.repo.ShiftSiblingOffsets(ctx, insight.Barcode, insight.Type, insight.ID, delta)
	if err != nil {
		return fmt.Errorf("%w: shift siblings of %s by %d: %v", common.ErrReconciliation, insight.ID, delta, err)
	}
	a.logger.Info("reconciled sibling offsets",
		"barcode", insight.Barcode, "type", insight.Type, "delta", delta, "siblings", shifted)
	return nil
}
