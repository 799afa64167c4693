package extraction

import (
	"fmt"
	"regexp"
	"strings"
)

// normalizeFRPackaging canonicalizes a French/EU approval number: country
// code, three dot-separated numeric groups, EC/CE suffix.
// "FR 83-400-011 CE" and "FR 83.400.011 EC" both normalize with "." joints.
func normalizeFRPackaging(groups []string) string {
	return fmt.Sprintf("%s %s.%s.%s %s", groups[1], groups[2], groups[3], groups[4], groups[5])
}

// normalizeFREmb canonicalizes an EMB packager code: the city code loses its
// internal spaces and the optional company suffix is appended directly.
func normalizeFREmb(groups []string) string {
	cityCode := strings.ReplaceAll(groups[2], " ", "")
	companyCode := groups[3]
	return fmt.Sprintf("%s %s%s", groups[1], cityCode, companyCode)
}

// normalizeEUBioLabel canonicalizes an EU organic certification code to the
// COUNTRY-BIO-NNN form.
func normalizeEUBioLabel(groups []string) string {
	return fmt.Sprintf("%s-%s-%s", groups[1], groups[2], groups[3])
}

const temperaturePattern = `[+-]?\s*\d+\s*°?C`

var temperatureRe = regexp.MustCompile(`(?i)([+-]?\s*\d+)\s*°?(C)`)

// temperatureInfo splits a raw temperature mention into value and unit.
func temperatureInfo(temperature string) map[string]any {
	groups := temperatureRe.FindStringSubmatch(temperature)
	if groups == nil {
		return nil
	}
	info := map[string]any{}
	if groups[1] != "" {
		info["value"] = groups[1]
	}
	if groups[2] != "" {
		info["unit"] = groups[2]
	}
	return info
}

func weightSubfields(groups []string) map[string]any {
	return map[string]any{
		"value": groups[2],
		"unit":  groups[3],
	}
}

func storageMaxSubfields(groups []string) map[string]any {
	return map[string]any{
		"max": temperatureInfo(groups[1]),
	}
}

func storageBetweenSubfields(groups []string) map[string]any {
	return map[string]any{
		"between": map[string]any{
			"min": temperatureInfo(groups[1]),
			"max": temperatureInfo(groups[2]),
		},
	}
}
