package constants

import (
	"strings"
)

// InsightType is the canonical insight category.
type InsightType string

// Stable values (store these exact strings in DB and batch output).
const (
	PackagerCode         InsightType = "packager_code"
	Label                InsightType = "label"
	WeightValue          InsightType = "weight_value"
	WeightMention        InsightType = "weight_mention"
	Nutriscore           InsightType = "nutriscore"
	RecyclingInstruction InsightType = "recycling_instruction"
	BestBeforeDate       InsightType = "best_before_date"
	StorageInstruction   InsightType = "storage_instruction"
	Email                InsightType = "email"
	URL                  InsightType = "url"
	PhoneNumber          InsightType = "phone_number"
	IngredientSpellcheck InsightType = "ingredient_spellcheck"
)

var allInsightTypes = []InsightType{
	PackagerCode,
	Label,
	WeightValue,
	WeightMention,
	Nutriscore,
	RecyclingInstruction,
	BestBeforeDate,
	StorageInstruction,
	Email,
	URL,
	PhoneNumber,
	IngredientSpellcheck,
}

func AllInsightTypes() []InsightType {
	result := make([]InsightType, len(allInsightTypes))
	copy(result, allInsightTypes)
	return result
}

func InsightTypesAsStrings() []string {
	result := make([]string, len(allInsightTypes))
	for i, t := range allInsightTypes {
		result[i] = string(t)
	}
	return result
}

// ParseInsightType matches a string against the known insight types,
// case-insensitively. The boolean reports whether the value is known.
func ParseInsightType(s string) (InsightType, bool) {
	for _, t := range allInsightTypes {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}
