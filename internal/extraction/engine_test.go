package extraction

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfacts/insights-tracker/constants"
	"github.com/openfacts/insights-tracker/internal/common"
	"github.com/openfacts/insights-tracker/internal/ocr"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(DefaultRegistry(), nil)
}

// resultWithFullText builds an OCR result whose full text is the given
// string, newlines included.
func resultWithFullText(t *testing.T, text string) *ocr.Result {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"fullTextAnnotation": map[string]any{"text": text},
	})
	require.NoError(t, err)
	return ocr.NewResult(payload, nil)
}

// resultWithRegions builds an OCR result with one text annotation per region.
func resultWithRegions(t *testing.T, regions ...string) *ocr.Result {
	t.Helper()
	annotations := make([]map[string]any, len(regions))
	for i, r := range regions {
		annotations[i] = map[string]any{"description": r}
	}
	payload, err := json.Marshal(map[string]any{"textAnnotations": annotations})
	require.NoError(t, err)
	return ocr.NewResult(payload, nil)
}

func TestExtractPackagerCodeEUFR(t *testing.T) {
	result := resultWithFullText(t, "Fabriqué en France\nFR 83.400.011 CE\nà consommer rapidement")

	insights, err := newEngine(t).Extract(result, constants.PackagerCode)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, Insight{
		Tag:   "eu_fr",
		Raw:   "FR 83.400.011 CE",
		Value: "FR 83.400.011 CE",
	}, insights[0])
}

func TestExtractPackagerCodeEUFRSeparators(t *testing.T) {
	// Dash or space separated approval numbers normalize to dots.
	tests := []struct {
		text string
		want string
	}{
		{text: "FR 83-400-011 CE", want: "FR 83.400.011 CE"},
		{text: "FR 62 448 034 EC", want: "FR 62.448.034 EC"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := resultWithFullText(t, tt.text)
			insights, err := newEngine(t).Extract(result, constants.PackagerCode)
			require.NoError(t, err)
			require.Len(t, insights, 1)
			assert.Equal(t, tt.want, insights[0].Value)
			assert.Equal(t, tt.text, insights[0].Raw)
		})
	}
}

func TestExtractPackagerCodeSpansNewline(t *testing.T) {
	// The eu_fr matcher runs on contiguous text, so a code broken across
	// lines still matches once the newline collapses to a space.
	result := resultWithFullText(t, "FR\n83.400.011 CE")

	insights, err := newEngine(t).Extract(result, constants.PackagerCode)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "FR 83.400.011 CE", insights[0].Value)
}

func TestExtractPackagerCodeEMB(t *testing.T) {
	result := resultWithRegions(t, "EMB 50354", "EMB 5 0 3 5 4A")

	insights, err := newEngine(t).Extract(result, constants.PackagerCode)
	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.Equal(t, "fr_emb", insights[0].Tag)
	assert.Equal(t, "EMB 50354", insights[0].Value)
	assert.Equal(t, "EMB 50354A", insights[1].Value)
	assert.Equal(t, "EMB 5 0 3 5 4A", insights[1].Raw)
}

func TestExtractLabelOrganic(t *testing.T) {
	result := resultWithFullText(t, "issu de l'Agriculture Biologique certifié")

	insights, err := newEngine(t).Extract(result, constants.Label)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "en:organic", insights[0].Tag)
	assert.Equal(t, "agriculture biologique ", insights[0].Raw)
}

func TestExtractLabelEUBioCode(t *testing.T) {
	result := resultWithRegions(t, "FR-BIO-09", "DE ÖKO 001")

	insights, err := newEngine(t).Extract(result, constants.Label)
	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.Equal(t, "xx-bio-xx", insights[0].Tag)
	assert.Equal(t, "FR-BIO-09", insights[0].Value)
	assert.Equal(t, "DE-ÖKO-001", insights[1].Value)
}

func TestExtractWeightValue(t *testing.T) {
	result := resultWithFullText(t, "Poids net: 250 g\nconsommer frais")

	insights, err := newEngine(t).Extract(result, constants.WeightValue)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	// The whitespace boundary after the unit is not part of the match.
	assert.Equal(t, "250 g", insights[0].Raw)
	assert.Equal(t, "250 g", insights[0].Value)
	assert.Equal(t, "250", insights[0].Data["value"])
	assert.Equal(t, "g", insights[0].Data["unit"])
}

func TestExtractWeightValueAtEndOfText(t *testing.T) {
	result := resultWithFullText(t, "Poids net: 1,5 kg")

	insights, err := newEngine(t).Extract(result, constants.WeightValue)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "1,5 kg", insights[0].Raw)
	assert.Equal(t, "1,5", insights[0].Data["value"])
	assert.Equal(t, "kg", insights[0].Data["unit"])
}

func TestExtractStorageInstruction(t *testing.T) {
	result := resultWithFullText(t, "À conserver entre +2°C et +4°C après ouverture")

	insights, err := newEngine(t).Extract(result, constants.StorageInstruction)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "between", insights[0].Tag)
	between, ok := insights[0].Data["between"].(map[string]any)
	require.True(t, ok)
	minimum, ok := between["min"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "+2", minimum["value"])
	assert.Equal(t, "c", minimum["unit"])
}

func TestExtractNoMatches(t *testing.T) {
	result := resultWithFullText(t, "nothing interesting here")

	for _, insightType := range []constants.InsightType{constants.PackagerCode, constants.Label} {
		insights, err := newEngine(t).Extract(result, insightType)
		require.NoError(t, err)
		assert.Empty(t, insights)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	result := ocr.NewResult([]byte(`{}`), nil)

	insights, err := newEngine(t).Extract(result, constants.PackagerCode)
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestExtractDeterministic(t *testing.T) {
	result := resultWithFullText(t, "FR 83.400.011 CE et FR 62-448-034 EC recyclé")
	engine := newEngine(t)

	first, err := engine.Extract(result, constants.PackagerCode)
	require.NoError(t, err)
	require.Len(t, first, 2)

	for i := 0; i < 10; i++ {
		again, err := engine.Extract(result, constants.PackagerCode)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestExtractUnknownType(t *testing.T) {
	result := resultWithFullText(t, "FR 83.400.011 CE")
	engine := newEngine(t)

	for _, unknown := range []constants.InsightType{"nope", "", "packager-code"} {
		_, err := engine.Extract(result, unknown)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrUnknownInsightType)
	}
}

func TestExtractDuplicateEmission(t *testing.T) {
	// Two organic matchers firing on the same stretch of text both emit;
	// the engine does not deduplicate across matchers.
	result := resultWithFullText(t, "ingrédients biologiques issus de l'agriculture biologique ")

	insights, err := newEngine(t).Extract(result, constants.Label)
	require.NoError(t, err)
	require.Len(t, insights, 2)
	for _, insight := range insights {
		assert.Equal(t, "en:organic", insight.Tag)
	}
}

func TestExtractMatchOrderWithinCandidate(t *testing.T) {
	// Region candidates preserve provider order, matches preserve text order.
	result := resultWithRegions(t, "EMB 11111 then EMB 22222", "EMB 33333")

	insights, err := newEngine(t).Extract(result, constants.PackagerCode)
	require.NoError(t, err)
	require.Len(t, insights, 3)
	for i, want := range []string{"EMB 11111", "EMB 22222", "EMB 33333"} {
		assert.Equal(t, want, insights[i].Value, fmt.Sprintf("insight %d of %v", i, insights))
	}
}
