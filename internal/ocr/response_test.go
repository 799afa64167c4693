package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstResponse(t *testing.T) {
	response, ok := FirstResponse([]byte(`{"responses": [{"fullTextAnnotation": {"text": "hello"}}, {"fullTextAnnotation": {"text": "second"}}]}`))
	require.True(t, ok)

	result := NewResult(response, nil)
	text, found := result.FullText(false)
	require.True(t, found)
	assert.Equal(t, "hello", text)
}

func TestFirstResponseUnusable(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty responses", data: `{"responses": []}`},
		{name: "missing responses", data: `{}`},
		{name: "provider error", data: `{"responses": [{"error": {"code": 14}}]}`},
		{name: "malformed envelope", data: `[]`},
		{name: "malformed response", data: `{"responses": ["nope"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := FirstResponse([]byte(tt.data))
			assert.False(t, ok)
		})
	}
}

func TestValidateResponse(t *testing.T) {
	require.NoError(t, ValidateResponse([]byte(sampleResponse)))

	err := ValidateResponse([]byte(`{"textAnnotations": [{"description": 12}]}`))
	require.Error(t, err)
}
