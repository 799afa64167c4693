package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/entity"
)

type InsightRepository interface {
	Insert(ctx context.Context, insight *entity.PendingInsight) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.PendingInsight, error)
	ListPending(ctx context.Context, barcode string, insightType constants.InsightType) ([]*entity.PendingInsight, error)
	ListByBarcode(ctx context.Context, barcode string) ([]*entity.PendingInsight, error)
	SetAnnotation(ctx context.Context, id uuid.UUID, state constants.AnnotationState) error
	ShiftSiblingOffsets(ctx context.Context, barcode string, insightType constants.InsightType, exclude uuid.UUID, delta int) (int64, error)
}

type insightRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInsightRepository(db *sql.DB, logger *slog.Logger) InsightRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &insightRepository{
		db:     db,
		logger: logger,
	}
}

const insightColumns = "id, barcode, type, data, start_offset, end_offset, annotation, source, created_at, updated_at"

func (r *insightRepository) Insert(ctx context.Context, insight *entity.PendingInsight) error {
	if insight.ID == uuid.Nil {
		insight.ID = uuid.New()
	}
	now := time.Now().UTC()
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = now
	}
	insight.UpdatedAt = now

	data := insight.Data
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode insight data: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO insight (`+insightColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		insight.ID.String(),
		insight.Barcode,
		string(insight.Type),
		string(payload),
		nullableInt(insight.StartOffset),
		nullableInt(insight.EndOffset),
		nullableState(insight.Annotation),
		insight.Source,
		insight.CreatedAt,
		insight.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert insight", "barcode", insight.Barcode, "type", insight.Type, "error", err)
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return nil
}

func (r *insightRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.PendingInsight, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+insightColumns+` FROM insight WHERE id = $1`, id.String())

	insight, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insight %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get insight", "id", id, "error", err)
		return nil, err
	}
	return insight, nil
}

func (r *insightRepository) ListPending(ctx context.Context, barcode string, insightType constants.InsightType) ([]*entity.PendingInsight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+insightColumns+` FROM insight
		 WHERE barcode = $1 AND type = $2 AND annotation IS NULL
		 ORDER BY created_at, id`,
		barcode, string(insightType))
	if err != nil {
		r.logger.Error("failed to list pending insights", "barcode", barcode, "type", insightType, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()
	return collectInsights(rows)
}

func (r *insightRepository) ListByBarcode(ctx context.Context, barcode string) ([]*entity.PendingInsight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+insightColumns+` FROM insight
		 WHERE barcode = $1
		 ORDER BY created_at, id`,
		barcode)
	if err != nil {
		r.logger.Error("failed to list insights", "barcode", barcode, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()
	return collectInsights(rows)
}

func (r *insightRepository) SetAnnotation(ctx context.Context, id uuid.UUID, state constants.AnnotationState) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE insight SET annotation = $1, updated_at = $2 WHERE id = $3`,
		int(state), time.Now().UTC(), id.String())
	if err != nil {
		r.logger.Error("failed to set annotation", "id", id, "error", err)
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("insight %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// ShiftSiblingOffsets adds delta to the start and end offsets of every still
// pending insight of (barcode, insightType) other than exclude, in a single
// statement so siblings shift all-or-nothing. The increment is relative, so
// two concurrent shifts compose in either order instead of clobbering each
// other. Siblings without offsets are left alone.
func (r *insightRepository) ShiftSiblingOffsets(ctx context.Context, barcode string, insightType constants.InsightType, exclude uuid.UUID, delta int) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE insight
		 SET start_offset = start_offset + $1, end_offset = end_offset + $2, updated_at = $3
		 WHERE barcode = $4 AND type = $5 AND id <> $6
		   AND annotation IS NULL
		   AND start_offset IS NOT NULL AND end_offset IS NOT NULL`,
		delta, delta, time.Now().UTC(), barcode, string(insightType), exclude.String())
	if err != nil {
		r.logger.Error("failed to shift sibling offsets", "barcode", barcode, "type", insightType, "error", err)
		return 0, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInsight(row rowScanner) (*entity.PendingInsight, error) {
	var (
		idStr       string
		barcode     string
		typeStr     string
		dataRaw     []byte
		startOffset sql.NullInt64
		endOffset   sql.NullInt64
		annotation  sql.NullInt64
		source      string
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(&idStr, &barcode, &typeStr, &dataRaw, &startOffset, &endOffset, &annotation, &source, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse insight id %q: %w", idStr, err)
	}

	insight := &entity.PendingInsight{
		ID:        id,
		Barcode:   barcode,
		Type:      constants.InsightType(typeStr),
		Source:    source,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if len(dataRaw) > 0 {
		if err := json.Unmarshal(dataRaw, &insight.Data); err != nil {
			return nil, fmt.Errorf("decode insight data: %w", err)
		}
	}
	if startOffset.Valid {
		v := int(startOffset.Int64)
		insight.StartOffset = &v
	}
	if endOffset.Valid {
		v := int(endOffset.Int64)
		insight.EndOffset = &v
	}
	if annotation.Valid {
		state := constants.AnnotationState(annotation.Int64)
		insight.Annotation = &state
	}
	return insight, nil
}

func collectInsights(rows *sql.Rows) ([]*entity.PendingInsight, error) {
	var insights []*entity.PendingInsight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return insights, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableState(v *constants.AnnotationState) any {
	if v == nil {
		return nil
	}
	return int(*v)
}
