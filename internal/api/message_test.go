package api

import (
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "detail", status: 400, body: `{"detail": "Invalid IBAN", "error": "ignored"}`, want: "Invalid IBAN"},
		{name: "error", status: 500, body: `{"error": "db down"}`, want: "db down"},
		{name: "error before non_field_errors", status: 400, body: `{"non_field_errors": ["a"], "error": "first"}`, want: "first"},
		{name: "non_field_errors list", status: 400, body: `{"non_field_errors": ["Email taken", "Too young"], "x": 1}`, want: "Email taken, Too young"},
		{name: "non_field_errors string", status: 400, body: `{"non_field_errors": "Email taken", "x": 1}`, want: "Email taken"},
		{name: "single key list", status: 400, body: `{"iban": ["This field is required."]}`, want: "This field is required."},
		{name: "single key string", status: 400, body: `{"email": "Enter a valid email address."}`, want: "Enter a valid email address."},
		{name: "single key number", status: 400, body: `{"code": 17}`, want: "17"},
		{name: "multiple keys", status: 400, body: `{"a": "x", "b": "y"}`, want: `{"a": "x", "b": "y"}`},
		{name: "detail object", status: 400, body: `{"detail": {"field": "bad"}}`, want: `{"field":"bad"}`},
		{name: "array body", status: 400, body: `["one", "two"]`, want: `["one", "two"]`},
		{name: "trailing data", status: 500, body: `{"error": "db down"} <html>oops</html>`, want: `{"error": "db down"} <html>oops</html>`},
		{name: "plain text", status: 502, body: "Bad Gateway from proxy", want: "Bad Gateway from proxy"},
		{name: "empty body", status: 503, body: "", want: http.StatusText(503)},
		{name: "whitespace body", status: 404, body: "  \n", want: http.StatusText(404)},
		{name: "null detail falls through", status: 400, body: `{"detail": null, "error": "second"}`, want: "second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(tt.status, []byte(tt.body)); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
