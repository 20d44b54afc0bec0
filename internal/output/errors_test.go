package output

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/port-experimental/membership-cli/internal/submission"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		code       string
		suggestion string
	}{
		{
			name:       "validation",
			err:        fmt.Errorf("submit: %w", &submission.ValidationError{Fields: map[string]string{"email": "is required"}}),
			code:       "VALIDATION_ERROR",
			suggestion: "Correct the listed fields",
		},
		{
			name:       "config",
			err:        &api.Failure{Kind: api.KindConfig, Message: "api key is not configured"},
			code:       "CONFIG_ERROR",
			suggestion: "--api-key",
		},
		{
			name: "token unavailable explains cause",
			err: &api.Failure{
				Kind: api.KindTokenUnavailable,
				Err:  &api.Failure{Kind: api.KindAuth, HTTPStatus: 403},
			},
			code:       "TOKEN_UNAVAILABLE",
			suggestion: "API key was rejected",
		},
		{
			name:       "server error",
			err:        &api.Failure{Kind: api.KindAPI, HTTPStatus: 500, Message: "db down"},
			code:       "API_ERROR",
			suggestion: "manual cleanup",
		},
		{
			name:       "bad request",
			err:        &api.Failure{Kind: api.KindAPI, HTTPStatus: 400, Message: "Invalid IBAN"},
			code:       "API_ERROR",
			suggestion: "Correct the reported field",
		},
		{
			name:       "missing file",
			err:        fmt.Errorf("failed to read applications file: %w", os.ErrNotExist),
			code:       "FILE_NOT_FOUND",
			suggestion: "file path",
		},
		{
			name:       "unknown profile",
			err:        errors.New("profile 'staging' not found in configuration"),
			code:       "PROFILE_NOT_FOUND",
			suggestion: "profile name",
		},
		{
			name: "unclassified",
			err:  errors.New("something odd"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := Classify(tt.err)
			if ctx.ErrorCode != tt.code {
				t.Errorf("ErrorCode = %q, want %q", ctx.ErrorCode, tt.code)
			}
			if !strings.Contains(ctx.Suggestion, tt.suggestion) {
				t.Errorf("Suggestion = %q, want it to contain %q", ctx.Suggestion, tt.suggestion)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	Init(true)

	if got := FormatError(nil); got != "" {
		t.Errorf("FormatError(nil) = %q", got)
	}

	got := FormatError(&api.Failure{Kind: api.KindTransport, Message: "failed to reach token endpoint"})
	for _, want := range []string{
		"[TRANSPORT_ERROR] failed to reach token endpoint",
		"Suggestion: Check your network connection",
		"Error code: TRANSPORT_ERROR",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatError() = %q, missing %q", got, want)
		}
	}
}
