package output

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/port-experimental/membership-cli/internal/submission"
)

// ErrorContext provides additional context for errors.
type ErrorContext struct {
	Error      error
	Suggestion string
	ErrorCode  string
}

// FormatError formats an error with a suggestion and an error code.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return FormatErrorWithContext(Classify(err))
}

// FormatErrorWithContext formats an error with explicit context.
func FormatErrorWithContext(ctx ErrorContext) string {
	if ctx.Error == nil {
		return ""
	}

	var parts []string
	parts = append(parts, Error(ctx.Error.Error()))

	if ctx.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\n%s", Info("Suggestion: "+ctx.Suggestion)))
	}

	if ctx.ErrorCode != "" {
		parts = append(parts, fmt.Sprintf("\n%s", Dim("Error code: "+ctx.ErrorCode)))
	}

	return strings.Join(parts, "")
}

// Classify picks a suggestion and error code for err. Typed failures are
// matched first; anything else falls back to message inspection.
func Classify(err error) ErrorContext {
	ctx := ErrorContext{Error: err}

	var ve *submission.ValidationError
	if errors.As(err, &ve) {
		ctx.Suggestion = "Correct the listed fields and submit again"
		ctx.ErrorCode = "VALIDATION_ERROR"
		return ctx
	}

	var failure *api.Failure
	if errors.As(err, &failure) {
		kind := failure.Kind
		if kind == api.KindTokenUnavailable {
			// Explain the token failure rather than the wrapper.
			if inner := api.KindOf(failure.Err); inner != "" {
				kind = inner
			}
		}
		ctx.Suggestion = kindSuggestion(kind, failure.HTTPStatus)
		ctx.ErrorCode = string(failure.Kind)
		return ctx
	}

	msg := err.Error()
	ctx.Suggestion = getSuggestion(msg)
	ctx.ErrorCode = getErrorCode(err, msg)
	return ctx
}

func kindSuggestion(kind api.Kind, status int) string {
	switch kind {
	case api.KindConfig:
		return "Set the API key with --api-key, MEMBERSHIP_API_KEY, or `membership config --init`"
	case api.KindAuth:
		return "The API key was rejected. Check it with `membership config --show` and run `membership token refresh`"
	case api.KindTransport:
		return "Check your network connection and the api_url, then try again"
	case api.KindEncoding:
		return "The request could not be encoded. Check the application data for unsupported values"
	case api.KindMalformedResponse:
		return "The API answered with something other than JSON. Check that api_url points at the API root"
	case api.KindAPI:
		switch {
		case status == 429:
			return "Rate limit exceeded. Please wait a moment and try again"
		case status >= 500:
			return "The membership API failed. Try again later; a created contact may need manual cleanup"
		case status == 404:
			return "The endpoint was not found. Check that api_url ends with the API root path"
		default:
			return "The API rejected the data. Correct the reported field and submit again"
		}
	default:
		return ""
	}
}

// getSuggestion returns a helpful suggestion based on the error message.
func getSuggestion(errMsg string) string {
	lowerMsg := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lowerMsg, "profile") && strings.Contains(lowerMsg, "not found"):
		return "Verify the profile name. Run `membership config --show` to see configured profiles"
	case strings.Contains(lowerMsg, "config"):
		return "Run `membership config --init` to create a configuration file"
	case strings.Contains(lowerMsg, "file not found") || strings.Contains(lowerMsg, "no such file"):
		return "Check that the file path is correct and the file exists"
	default:
		return ""
	}
}

// getErrorCode derives an error code for untyped errors.
func getErrorCode(err error, errMsg string) string {
	lowerMsg := strings.ToLower(errMsg)

	switch {
	case errors.Is(err, os.ErrNotExist):
		return "FILE_NOT_FOUND"
	case strings.Contains(lowerMsg, "profile") && strings.Contains(lowerMsg, "not found"):
		return "PROFILE_NOT_FOUND"
	case strings.Contains(lowerMsg, "config"):
		return "CONFIG_ERROR"
	default:
		return ""
	}
}
