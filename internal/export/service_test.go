package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/entity"
)

type fakeRepo struct {
	insights []*entity.PendingInsight
	err      error
}

func (f *fakeRepo) Insert(ctx context.Context, insight *entity.PendingInsight) error {
	panic("not used")
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.PendingInsight, error) {
	panic("not used")
}

func (f *fakeRepo) ListPending(ctx context.Context, barcode string, insightType constants.InsightType) ([]*entity.PendingInsight, error) {
	panic("not used")
}

func (f *fakeRepo) ListByBarcode(ctx context.Context, barcode string) ([]*entity.PendingInsight, error) {
	return f.insights, f.err
}

func (f *fakeRepo) SetAnnotation(ctx context.Context, id uuid.UUID, state constants.AnnotationState) error {
	panic("not used")
}

func (f *fakeRepo) ShiftSiblingOffsets(ctx context.Context, barcode string, insightType constants.InsightType, exclude uuid.UUID, delta int) (int64, error) {
	panic("not used")
}

func TestExportInsightsXLSX(t *testing.T) {
	start := 4
	end := 20
	accepted := constants.AnnotationAccepted
	repo := &fakeRepo{insights: []*entity.PendingInsight{
		{
			ID:          uuid.New(),
			Barcode:     "3232278600004",
			Type:        constants.PackagerCode,
			Data:        map[string]any{"tag": "eu_fr", "value": "FR 83.400.011 CE"},
			StartOffset: &start,
			EndOffset:   &end,
			Annotation:  &accepted,
			Source:      "/323/227/860/0004/3.jpg",
			CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:      uuid.New(),
			Barcode: "3232278600004",
			Type:    constants.Label,
			Data:    map[string]any{"tag": "en:organic", "value": "en:organic"},
		},
	}}

	raw, err := NewService(repo, nil).ExportInsightsXLSX(context.Background(), "3232278600004")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	assert.Equal(t, []string{"Insights"}, f.GetSheetList())

	rows, err := f.GetRows("Insights")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Created At", rows[0][8])

	assert.Equal(t, "packager_code", rows[1][2])
	assert.Equal(t, "FR 83.400.011 CE", rows[1][3])
	assert.Equal(t, "4", rows[1][4])
	assert.Equal(t, "accepted", rows[1][6])
	assert.Equal(t, "2026-08-01T12:00:00Z", rows[1][8])

	assert.Equal(t, "label", rows[2][2])
	assert.Equal(t, "pending", rows[2][6])
}

func TestExportInsightsXLSXEmpty(t *testing.T) {
	raw, err := NewService(&fakeRepo{}, nil).ExportInsightsXLSX(context.Background(), "3232278600004")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	rows, err := f.GetRows("Insights")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExportInsightsXLSXRepoFailure(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	_, err := NewService(repo, nil).ExportInsightsXLSX(context.Background(), "3232278600004")
	assert.Error(t, err)
}
