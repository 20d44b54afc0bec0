package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed API call.
type Kind string

const (
	// KindConfig indicates the API key is missing. Never retried.
	KindConfig Kind = "CONFIG_ERROR"

	// KindTokenUnavailable indicates no bearer token could be obtained before a
	// domain call. The underlying token failure is available via Unwrap.
	KindTokenUnavailable Kind = "TOKEN_UNAVAILABLE"

	// KindTransport indicates DNS, connect, or timeout failures.
	KindTransport Kind = "TRANSPORT_ERROR"

	// KindAuth indicates the token endpoint rejected the API key, or a 401
	// persisted after one forced refresh.
	KindAuth Kind = "AUTH_FAILURE"

	// KindEncoding indicates the request body could not be serialized.
	KindEncoding Kind = "ENCODING_ERROR"

	// KindAPI indicates a 4xx/5xx response from the remote.
	KindAPI Kind = "API_ERROR"

	// KindMalformedResponse indicates a 2xx response whose body is not JSON.
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
)

// Failure is the error returned by every Client and TokenManager operation.
type Failure struct {
	Kind       Kind
	Message    string
	HTTPStatus int    // 0 when no response was received
	RawBody    []byte // nil when no response body is available
	Err        error
}

func (f *Failure) Error() string {
	msg := f.Message
	if f.Err != nil {
		if msg == "" {
			msg = f.Err.Error()
		} else {
			msg = msg + ": " + f.Err.Error()
		}
	}
	if f.HTTPStatus != 0 {
		return fmt.Sprintf("[%s] status %d: %s", f.Kind, f.HTTPStatus, msg)
	}
	return fmt.Sprintf("[%s] %s", f.Kind, msg)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the kind of the outermost Failure in err's chain, or "".
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

func newFailure(kind Kind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: cause}
}
