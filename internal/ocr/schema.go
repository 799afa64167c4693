package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema describes the provider response shape we rely on. Every
// field is optional; validation only rejects payloads whose present fields
// have the wrong type, which is worth knowing before running a large dump.
var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"textAnnotations": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"locale":      map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"boundingPoly": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"vertices": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"x": map[string]any{"type": "integer"},
										"y": map[string]any{"type": "integer"},
									},
								},
							},
						},
					},
				},
			},
		},
		"fullTextAnnotation": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
		},
	},
}

// compiledSchema compiles responseSchema once; the schema is static, batch
// runs validate per document.
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(responseSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("response.json")
})

// ValidateResponse validates a raw provider response against the expected
// shape. Used by batch callers before parsing dumps of unknown provenance.
func ValidateResponse(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
