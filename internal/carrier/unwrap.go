package carrier

import (
	"encoding/json"
	"errors"
)

// ErrNoPayload reports a response body none of the extraction
// strategies could unwrap.
var ErrNoPayload = errors.New("no recognizable payload in response")

// extractStrategy pulls the payload out of one known response shape.
// Returns false when the shape does not match; extraction then falls
// through to the next strategy.
type extractStrategy func(body []byte) (json.RawMessage, bool)

// fromResponseData matches {"responseData": {"data": ...}}.
func fromResponseData(body []byte) (json.RawMessage, bool) {
	var wrapper struct {
		ResponseData *struct {
			Data json.RawMessage `json:"data"`
		} `json:"responseData"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, false
	}
	if wrapper.ResponseData == nil || len(wrapper.ResponseData.Data) == 0 {
		return nil, false
	}
	return wrapper.ResponseData.Data, true
}

// fromData matches {"data": ...}.
func fromData(body []byte) (json.RawMessage, bool) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, false
	}
	if len(wrapper.Data) == 0 || string(wrapper.Data) == "null" {
		return nil, false
	}
	return wrapper.Data, true
}

// fromRaw accepts the body as-is when it is a JSON object.
func fromRaw(body []byte) (json.RawMessage, bool) {
	if !json.Valid(body) {
		return nil, false
	}
	return body, true
}

// dataStrategies is the unwrap order for the data endpoints;
// summaryStrategies is the shorter order the summary endpoint uses.
var (
	dataStrategies    = []extractStrategy{fromResponseData, fromData, fromRaw}
	summaryStrategies = []extractStrategy{fromData, fromRaw}
)

// unwrapInto runs the strategies in order and decodes the first match
// into dst.
func unwrapInto(body []byte, strategies []extractStrategy, dst interface{}) error {
	for _, strategy := range strategies {
		if payload, ok := strategy(body); ok {
			return json.Unmarshal(payload, dst)
		}
	}
	return ErrNoPayload
}
