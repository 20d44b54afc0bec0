package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// errorMessage extracts a human-readable message from an error response body.
// Probe order: detail, error, non_field_errors, the value of a single-key
// object, then the whole body.
func errorMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return http.StatusText(status)
	}

	decoded, err := decodeJSON(trimmed)
	if err != nil {
		return string(trimmed)
	}

	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return string(trimmed)
	}

	for _, key := range []string{"detail", "error", "non_field_errors"} {
		if v, ok := obj[key]; ok && v != nil {
			return stringify(v)
		}
	}

	if len(obj) == 1 {
		for _, v := range obj {
			return stringify(v)
		}
	}

	return string(trimmed)
}

// stringify renders a decoded JSON value for display. Lists are joined with ", ".
func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}
