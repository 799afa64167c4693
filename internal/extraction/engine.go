package extraction

import (
	"fmt"
	"log/slog"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/ocr"
)

// Engine runs one category's matchers against an OCR result. It holds no
// mutable state: extraction is a pure function of (result, category), safe
// to call concurrently across independent documents.
type Engine struct {
	registry Registry
	logger   *slog.Logger
}

func NewEngine(registry Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, logger: logger}
}

// Extract returns every insight of the requested category found in the
// result, in deterministic order: the category's matcher order, then the
// candidate order returned by the field selector, then match order within
// each candidate. Matchers sharing a tag are not deduplicated.
func (e *Engine) Extract(result *ocr.Result, insightType constants.InsightType) ([]Insight, error) {
	matchers, ok := e.registry[insightType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownInsightType, insightType)
	}

	var insights []Insight
	for _, m := range matchers {
		candidates, err := result.TextFor(m.Field, m.Lowercase)
		if err != nil {
			// Unreachable for a registry built through NewRegistry.
			return nil, err
		}
		for _, candidate := range candidates {
			for _, groups := range m.Pattern.FindAllStringSubmatch(candidate, -1) {
				raw := groups[m.RawGroup]
				insight := Insight{
					Tag:   m.Tag,
					Raw:   raw,
					Value: raw,
				}
				if m.Normalize != nil {
					insight.Value = m.Normalize(groups)
				}
				if m.Subfields != nil {
					insight.Data = m.Subfields(groups)
				}
				insights = append(insights, insight)
			}
		}
	}
	return insights, nil
}

// Types returns the categories this engine's registry knows about.
func (e *Engine) Types() []constants.InsightType {
	types := make([]constants.InsightType, 0, len(e.registry))
	for _, t := range constants.AllInsightTypes() {
		if _, ok := e.registry[t]; ok {
			types = append(types, t)
		}
	}
	return types
}
