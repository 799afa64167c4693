package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/ocr"
)

// Registry maps each insight category to its ordered matcher list.
type Registry map[constants.InsightType][]TaggedMatcher

// NewRegistry validates every matcher's field selector up front, so a bad
// selector fails at construction rather than per document.
func NewRegistry(categories map[constants.InsightType][]TaggedMatcher) (Registry, error) {
	empty := &ocr.Result{}
	for insightType, matchers := range categories {
		for _, m := range matchers {
			if m.Pattern == nil {
				return nil, fmt.Errorf("%s/%s: nil pattern", insightType, m.Tag)
			}
			if m.RawGroup < 0 || m.RawGroup > m.Pattern.NumSubexp() {
				return nil, fmt.Errorf("%s/%s: raw group %d out of range", insightType, m.Tag, m.RawGroup)
			}
			if _, err := empty.TextFor(m.Field, false); err != nil {
				return nil, fmt.Errorf("%s/%s: %w", insightType, m.Tag, err)
			}
		}
	}
	return Registry(categories), nil
}

// MustRegistry is NewRegistry for static tables known at compile time.
func MustRegistry(categories map[constants.InsightType][]TaggedMatcher) Registry {
	r, err := NewRegistry(categories)
	if err != nil {
		panic(err)
	}
	return r
}

var weightMentions = []string{
	"poids net:",
	"poids net égoutté:",
	"net weight:",
	"peso neto:",
	"peso liquido:",
	"netto gewicht:",
}

func weightMentionPattern() *regexp.Regexp {
	quoted := make([]string, len(weightMentions))
	for i, mention := range weightMentions {
		quoted[i] = regexp.QuoteMeta(mention)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// DefaultRegistry returns the built-in matcher tables.
//
// Packager-code and EU-bio patterns are matched against the original casing:
// their approval numbers are uppercase on packaging, and normalized values
// must preserve that casing.
func DefaultRegistry() Registry {
	return MustRegistry(map[constants.InsightType][]TaggedMatcher{
		constants.PackagerCode: {
			{Tag: "fr_emb", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`(EMB) ?(\d ?\d ?\d ?\d ?\d)([a-zA-Z]{1,2})?`),
				Field:     ocr.FieldTextAnnotations,
				Normalize: normalizeFREmb,
			}},
			{Tag: "eu_fr", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`(FR) (\d{1,3})[\-\s.](\d{1,3})[\-\s.](\d{1,3}) (CE|EC)`),
				Field:     ocr.FieldContiguousText,
				Normalize: normalizeFRPackaging,
			}},
		},
		constants.Label: {
			{Tag: "en:organic", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`ingr[ée]dients?\sbiologiques?`),
				Field:     ocr.FieldContiguousText,
				Lowercase: true,
			}},
			{Tag: "en:organic", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`ingr[ée]dients?\sbio[\s.,)]`),
				Field:     ocr.FieldContiguousText,
				Lowercase: true,
			}},
			{Tag: "en:organic", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`agriculture ue/non ue biologique`),
				Field:     ocr.FieldContiguousText,
				Lowercase: true,
			}},
			{Tag: "en:organic", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`agriculture bio(?:logique)?[\s.,)]`),
				Field:     ocr.FieldContiguousText,
				Lowercase: true,
			}},
			{Tag: "en:organic", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`production bio(?:logique)?[\s.,)]`),
				Field:     ocr.FieldContiguousText,
				Lowercase: true,
			}},
			{Tag: "xx-bio-xx", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`([A-Z]{2})[\-\s.](BIO|ÖKO)[\-\s.](\d{2,3})`),
				Field:     ocr.FieldTextAnnotations,
				Normalize: normalizeEUBioLabel,
			}},
			{Tag: "fr:ab-agriculture-biologique", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`certifi[ée] ab[\s.,)]`),
				Field:     ocr.FieldContiguousText,
				Lowercase: true,
			}},
		},
		constants.WeightValue: {
			// A unit must end the text or be followed by whitespace; the
			// consumed delimiter stays out of the reported match.
			{Tag: "weight_value", Matcher: Matcher{
				Pattern:   regexp.MustCompile(`(([0-9]+[,.]?[0-9]*)\s*(fl oz|dl|cl|mg|mL|lbs|oz|g|kg|L))(?:\s|$)`),
				Field:     ocr.FieldFullText,
				RawGroup:  1,
				Subfields: weightSubfields,
			}},
		},
		constants.WeightMention: {
			{Tag: "weight_mention", Matcher: Matcher{
				Pattern: weightMentionPattern(),
				Field:   ocr.FieldFullText,
			}},
		},
		constants.Nutriscore: {
			{Tag: "nutriscore", Matcher: Matcher{
				Pattern: regexp.MustCompile(`(?i)nutri[-\s]?score`),
				Field:   ocr.FieldFullText,
			}},
		},
		constants.RecyclingInstruction: {
			{Tag: "recycling", Matcher: Matcher{
				Pattern: regexp.MustCompile(`(?i)recycle`),
				Field:   ocr.FieldContiguousText,
			}},
			{Tag: "throw_away", Matcher: Matcher{
				Pattern: regexp.MustCompile(`(?i)(?:throw away)|(?:jeter)`),
				Field:   ocr.FieldContiguousText,
			}},
		},
		constants.BestBeforeDate: {
			{Tag: "en", Matcher: Matcher{
				Pattern: regexp.MustCompile(`(?i)\d\d\s(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)(?:\s\d{4})?`),
				Field:   ocr.FieldFullText,
			}},
			{Tag: "fr", Matcher: Matcher{
				Pattern: regexp.MustCompile(`(?i)\d\d\s(?:Jan|Fev|Mar|Avr|Mai|Juin|Juil|Aou|Sep|Oct|Nov|Dec)(?:\s\d{4})?`),
				Field:   ocr.FieldFullText,
			}},
			{Tag: "full_digits", Matcher: Matcher{
				Pattern: regexp.MustCompile(`\d{2}[./]\d{2}[./](?:\d{2}){1,2}`),
				Field:   ocr.FieldFullText,
			}},
		},
		constants.StorageInstruction: {
			{Tag: "max", Matcher: Matcher{
				Pattern:   regexp.MustCompile(fmt.Sprintf(`(?i)[aà] conserver [àa] (%s) maximum`, temperaturePattern)),
				Field:     ocr.FieldContiguousText,
				Lowercase: true,
				Subfields: storageMaxSubfields,
			}},
			{Tag: "between", Matcher: Matcher{
				Pattern:   regexp.MustCompile(fmt.Sprintf(`(?i)[aà] conserver entre (%s) et (%s)`, temperaturePattern, temperaturePattern)),
				Field:     ocr.FieldContiguousText,
				Lowercase: true,
				Subfields: storageBetweenSubfields,
			}},
		},
		constants.Email: {
			{Tag: "email", Matcher: Matcher{
				Pattern: regexp.MustCompile(`[\w.-]+@[\w.-]+`),
				Field:   ocr.FieldFullText,
			}},
		},
		constants.URL: {
			{Tag: "url", Matcher: Matcher{
				Pattern: regexp.MustCompile(`(?im)^(http://www\.|https://www\.|http://|https://)?[a-z0-9]+([\-.][a-z0-9]+)*\.[a-z]{2,5}(:[0-9]{1,5})?(/\S*)?$`),
				Field:   ocr.FieldFullText,
			}},
		},
		constants.PhoneNumber: {
			{Tag: "phone_number", Matcher: Matcher{
				Pattern: regexp.MustCompile(`\d{3}[-.\s]??\d{3}[-.\s]??\d{4}|\(\d{3}\)\s*\d{3}[-.\s]??\d{4}|\d{3}[-.\s]??\d{4}`),
				Field:   ocr.FieldFullText,
			}},
		},
	})
}
