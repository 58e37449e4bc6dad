// Package normalize turns free-form model output into typed values.
//
// Every entry point is a pure function of its input and the default table:
// it either returns a fully populated value or an error wrapping ErrNoJSON or
// ErrShape. Nothing here retries or calls the model again.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON means no parseable JSON was found in the text.
	ErrNoJSON = errors.New("no parseable JSON found")
	// ErrShape means JSON was found but it cannot carry the target shape.
	ErrShape = errors.New("JSON does not match target shape")
)

// Extract parses text as JSON. When the whole text is not valid JSON it
// parses the span from the first opening delimiter to the last closing one.
// Square brackets are only tried when list is true; braces are the fallback.
func Extract(text string, list bool) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}

	span, ok := locate(text, list)
	if !ok {
		return nil, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return v, nil
}

func locate(text string, list bool) (string, bool) {
	if list {
		if span, ok := between(text, '[', ']'); ok {
			return span, true
		}
	}
	return between(text, '{', '}')
}

func between(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// object extracts a single JSON object.
func object(text string) (map[string]any, error) {
	v, err := Extract(text, false)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: want object, got %T", ErrShape, v)
	}
	return m, nil
}

// objects extracts a list of JSON objects. A lone object counts as a list of
// one and non-object elements are dropped.
func objects(text string) ([]map[string]any, error) {
	v, err := Extract(text, true)
	if err != nil {
		return nil, err
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		items = []any{t}
	default:
		return nil, fmt.Errorf("%w: want array, got %T", ErrShape, v)
	}

	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no objects in array", ErrShape)
	}
	return out, nil
}
