package ocr

import (
	"encoding/json"
)

type envelopePayload struct {
	Responses []json.RawMessage `json:"responses"`
}

// FirstResponse unwraps a raw provider file, which holds a list of responses
// (one per requested feature set), and returns the first one. The boolean is
// false when the envelope is empty, malformed, or the response carries a
// provider-side error.
func FirstResponse(data []byte) (json.RawMessage, bool) {
	var envelope envelopePayload
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false
	}
	if len(envelope.Responses) == 0 {
		return nil, false
	}

	response := envelope.Responses[0]
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(response, &keys); err != nil {
		return nil, false
	}
	if _, hasErr := keys["error"]; hasErr {
		return nil, false
	}
	return response, true
}
