package annotate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/entity"
	"github.com/openfacts/insights-tracker/internal/products"
)

// embCodesField is the product database field packager codes are appended to.
const embCodesField = "add_emb_codes"

// PackagerCodeAnnotator pushes an accepted packager code onto the product.
// The push is fire-and-forget relative to local state: an unexpected server
// status is only a warning, and just a transport failure fails the operation.
type PackagerCodeAnnotator struct {
	client *products.Client
	logger *slog.Logger
}

func NewPackagerCodeAnnotator(client *products.Client, logger *slog.Logger) *PackagerCodeAnnotator {
	return &PackagerCodeAnnotator{client: client, logger: logger}
}

func (a *PackagerCodeAnnotator) Annotate(ctx context.Context, insight *entity.PendingInsight) error {
	embCode, ok := insight.DataString("value")
	if !ok {
		return common.NewAppError("INVALID_INSIGHT_DATA",
			fmt.Sprintf("insight %s has no value", insight.ID), common.ErrInvalidInput)
	}

	status, err := a.client.UpdateField(ctx, insight.Barcode, embCodesField, embCode)
	if err != nil {
		return fmt.Errorf("push emb code: %w", err)
	}
	if !products.UpdateSucceeded(status) {
		a.logger.Warn("unexpected status during product update",
			"barcode", insight.Barcode, "status", status)
	}
	return nil
}
