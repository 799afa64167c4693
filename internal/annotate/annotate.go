package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/entity"
	"github.com/openfacts/insights-tracker/internal/products"
	"github.com/openfacts/insights-tracker/internal/repository"
)

// Annotator applies the side effect of accepting one insight. Implementations
// are registered per insight type; each is stateless beyond its injected
// collaborators and safe for concurrent use across distinct products.
type Annotator interface {
	Annotate(ctx context.Context, insight *entity.PendingInsight) error
}

// Registry is the static insight-type to annotator mapping. A lookup miss is
// an error, never a silent no-op.
type Registry struct {
	annotators map[constants.InsightType]Annotator
}

// NewRegistry wires the built-in annotators.
func NewRegistry(client *products.Client, repo repository.InsightRepository, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		annotators: map[constants.InsightType]Annotator{
			constants.PackagerCode:         NewPackagerCodeAnnotator(client, logger),
			constants.IngredientSpellcheck: NewSpellcheckAnnotator(repo, logger),
		},
	}
}

// ForType resolves the annotator registered for an insight type.
func (r *Registry) ForType(insightType constants.InsightType) (Annotator, error) {
	annotator, ok := r.annotators[insightType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownAnnotator, insightType)
	}
	return annotator, nil
}

// Retryable reports whether a failed Annotate call is worth repeating.
// A rolled-back reconciliation is hard, and a malformed insight payload
// cannot succeed on any attempt; everything else is treated as transient.
func Retryable(err error) bool {
	return !errors.Is(err, common.ErrReconciliation) && !errors.Is(err, common.ErrInvalidInput)
}
