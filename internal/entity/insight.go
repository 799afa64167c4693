package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/openfacts/insights-tracker/constants"
)

// PendingInsight represents a stored insight for data transfer between layers.
//
// StartOffset/EndOffset, when set, mark the half-open rune range
// [StartOffset, EndOffset) of this insight inside the reference text shared
// by all insights of the same (barcode, type). Annotation is nil while the
// insight awaits a human decision.
type PendingInsight struct {
	ID          uuid.UUID                  `json:"id"`
	Barcode     string                     `json:"barcode"`
	Type        constants.InsightType      `json:"type"`
	Data        map[string]any             `json:"data"`
	StartOffset *int                       `json:"start_offset,omitempty"`
	EndOffset   *int                       `json:"end_offset,omitempty"`
	Annotation  *constants.AnnotationState `json:"annotation,omitempty"`
	Source      string                     `json:"source,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// Pending reports whether the insight still awaits an annotation.
func (p *PendingInsight) Pending() bool {
	return p.Annotation == nil
}

// DataString returns the named field of the data payload as a string.
// The boolean reports whether the field exists and is a string.
func (p *PendingInsight) DataString(key string) (string, bool) {
	if p.Data == nil {
		return "", false
	}
	v, ok := p.Data[key].(string)
	return v, ok
}
