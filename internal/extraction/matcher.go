package extraction

import (
	"regexp"

	"github.com/openfacts/insights-tracker/internal/ocr"
)

// NormalizeFunc maps the capture groups of one match (groups[0] is the whole
// match) to the canonical insight value. A nil func means the raw match is
// already canonical.
type NormalizeFunc func(groups []string) string

// SubfieldsFunc derives structured sub-fields from the capture groups, for
// categories whose value alone is not enough (weights, storage temperatures).
type SubfieldsFunc func(groups []string) map[string]any

// Matcher binds one compiled pattern to one OCR text field. When Lowercase
// is set the candidate text is lowercased before matching, and raw matches
// are reported from the lowercased text.
//
// RawGroup selects the capture group reported as the raw match (0 is the
// whole match). Patterns that consume a delimiter to emulate a zero-width
// boundary set it so the delimiter stays out of the reported text.
type Matcher struct {
	Pattern   *regexp.Regexp
	Field     ocr.Field
	Lowercase bool
	RawGroup  int
	Normalize NormalizeFunc
	Subfields SubfieldsFunc
}

// TaggedMatcher attaches the semantic tag a matcher's insights carry.
// Several matchers in one category may share a tag (alternate phrasings);
// each runs independently and every match is reported.
type TaggedMatcher struct {
	Tag string
	Matcher
}

// Insight is one extracted record, in extraction order. It is transient:
// handed to the store or the batch writer, never kept by the engine.
type Insight struct {
	Tag   string         `json:"tag"`
	Raw   string         `json:"raw"`
	Value string         `json:"value"`
	Data  map[string]any `json:"data,omitempty"`
}
