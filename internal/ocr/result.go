package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/openfacts/insights-tracker/internal/common"
)

// Field selects which text of an OCR result a matcher runs against.
type Field int

const (
	// FieldFullText is the raw joined text of the full-text annotation.
	FieldFullText Field = iota + 1
	// FieldContiguousText is the full text with newlines collapsed to spaces.
	FieldContiguousText
	// FieldTextAnnotations is the per-region text, one candidate per region.
	FieldTextAnnotations
)

func (f Field) String() string {
	switch f {
	case FieldFullText:
		return "full_text"
	case FieldContiguousText:
		return "full_text_contiguous"
	case FieldTextAnnotations:
		return "text_annotations"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Vertex is one corner of a detected region's bounding polygon.
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TextAnnotation is one OCR-detected text region.
type TextAnnotation struct {
	Locale       string
	Text         string
	BoundingPoly []Vertex
}

// FullTextAnnotation holds the document-level text. ContiguousText is
// derived exactly once at construction and never recomputed.
type FullTextAnnotation struct {
	Text           string
	ContiguousText string
	// Pages is carried for provider fidelity; nothing reads it yet.
	Pages []json.RawMessage
}

// Result is the parsed form of one OCR provider response. It is built once
// per document, queried synchronously, then discarded; it is never persisted.
type Result struct {
	TextAnnotations    []TextAnnotation
	FullTextAnnotation *FullTextAnnotation
}

// Wire shapes for the provider payload. Every field is optional; absent or
// ill-typed optional data degrades to empty, construction never fails.
type resultPayload struct {
	TextAnnotations    json.RawMessage `json:"textAnnotations"`
	FullTextAnnotation json.RawMessage `json:"fullTextAnnotation"`
}

type textAnnotationPayload struct {
	Locale       string `json:"locale"`
	Description  string `json:"description"`
	BoundingPoly struct {
		Vertices []Vertex `json:"vertices"`
	} `json:"boundingPoly"`
}

type fullTextAnnotationPayload struct {
	Text  string            `json:"text"`
	Pages []json.RawMessage `json:"pages"`
}

// NewResult parses a provider response. Malformed optional fields are logged
// at debug severity and skipped; the returned result is never nil.
func NewResult(data []byte, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.Default()
	}

	var payload resultPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		logger.Debug("malformed OCR response, treating as empty", "error", err)
		return &Result{}
	}

	result := &Result{}

	if fieldPresent(payload.TextAnnotations) {
		var annotations []textAnnotationPayload
		if err := json.Unmarshal(payload.TextAnnotations, &annotations); err != nil {
			logger.Debug("malformed textAnnotations, skipping", "error", err)
		} else {
			result.TextAnnotations = make([]TextAnnotation, 0, len(annotations))
			for _, a := range annotations {
				result.TextAnnotations = append(result.TextAnnotations, TextAnnotation{
					Locale:       a.Locale,
					Text:         a.Description,
					BoundingPoly: a.BoundingPoly.Vertices,
				})
			}
		}
	}

	if fieldPresent(payload.FullTextAnnotation) {
		var full fullTextAnnotationPayload
		if err := json.Unmarshal(payload.FullTextAnnotation, &full); err != nil {
			logger.Debug("malformed fullTextAnnotation, skipping", "error", err)
		} else {
			result.FullTextAnnotation = &FullTextAnnotation{
				Text:           full.Text,
				ContiguousText: strings.ReplaceAll(full.Text, "\n", " "),
				Pages:          full.Pages,
			}
		}
	}

	return result
}

// fieldPresent reports whether an optional raw field carries a value. An
// absent key decodes to an empty RawMessage, but an explicit JSON null keeps
// the literal bytes and must count as absent too.
func fieldPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// FullText returns the raw full text. The boolean reports whether the
// response carried a full-text annotation at all.
func (r *Result) FullText(lowercase bool) (string, bool) {
	if r.FullTextAnnotation == nil {
		return "", false
	}
	if lowercase {
		return strings.ToLower(r.FullTextAnnotation.Text), true
	}
	return r.FullTextAnnotation.Text, true
}

// ContiguousText returns the full text with every newline replaced by a
// single space, enabling matches that span line breaks.
func (r *Result) ContiguousText(lowercase bool) (string, bool) {
	if r.FullTextAnnotation == nil {
		return "", false
	}
	if lowercase {
		return strings.ToLower(r.FullTextAnnotation.ContiguousText), true
	}
	return r.FullTextAnnotation.ContiguousText, true
}

// RegionTexts yields the per-region texts in provider order. The sequence is
// finite and restartable.
func (r *Result) RegionTexts(lowercase bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, a := range r.TextAnnotations {
			text := a.Text
			if lowercase {
				text = strings.ToLower(text)
			}
			if !yield(text) {
				return
			}
		}
	}
}

// TextFor returns the candidate strings for one matcher field. An
// unrecognized field is a configuration error, not a data error.
func (r *Result) TextFor(field Field, lowercase bool) ([]string, error) {
	switch field {
	case FieldFullText:
		if text, ok := r.FullText(lowercase); ok {
			return []string{text}, nil
		}
		return nil, nil
	case FieldContiguousText:
		if text, ok := r.ContiguousText(lowercase); ok {
			return []string{text}, nil
		}
		return nil, nil
	case FieldTextAnnotations:
		var texts []string
		for text := range r.RegionTexts(lowercase) {
			texts = append(texts, text)
		}
		return texts, nil
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidField, field)
	}
}
