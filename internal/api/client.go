package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds a single domain call.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 4 << 20
)

// Recorder receives call outcomes. An empty Kind means success.
type Recorder interface {
	RecordRequest(endpoint string, kind Kind)
	RecordAuthRetry(endpoint string)
	RecordRefresh(forced bool, kind Kind)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, Kind) {}
func (nopRecorder) RecordAuthRetry(string)     {}
func (nopRecorder) RecordRefresh(bool, Kind)   {}

// ClientOptions holds optional Client settings.
type ClientOptions struct {
	Timeout    time.Duration
	Logger     *slog.Logger
	Recorder   Recorder
	HTTPClient *http.Client
}

// Client handles authenticated requests to the membership API.
type Client struct {
	httpClient *http.Client
	tokenMgr   *TokenManager
	apiURL     string
	logger     *slog.Logger
	recorder   Recorder
}

// NewClient creates a new API client. Redirects are never followed.
func NewClient(apiURL string, tokenMgr *TokenManager, opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       timeout,
			CheckRedirect: noRedirects,
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Client{
		httpClient: httpClient,
		tokenMgr:   tokenMgr,
		apiURL:     strings.TrimRight(apiURL, "/"),
		logger:     logger,
		recorder:   recorder,
	}
}

// Tokens returns the client's token manager.
func (c *Client) Tokens() *TokenManager {
	return c.tokenMgr
}

// Request makes an authenticated request and decodes the JSON response.
// A 401 triggers one forced token refresh and one retry.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}) (interface{}, error) {
	payload, err := c.request(ctx, method, endpoint, body, true)
	c.recorder.RecordRequest(endpoint, KindOf(err))
	return payload, err
}

func (c *Client) request(ctx context.Context, method, endpoint string, body interface{}, allowRetry bool) (interface{}, error) {
	token, err := c.tokenMgr.GetValidToken(ctx)
	if err != nil {
		return nil, newFailure(KindTokenUnavailable, "could not obtain bearer token", err)
	}

	var reqBody io.Reader
	if body != nil && sendsBody(method) {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, newFailure(KindEncoding, "failed to marshal request body", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(endpoint), reqBody)
	if err != nil {
		return nil, newFailure(KindConfig, "failed to create request", err)
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newFailure(KindTransport, "failed to execute request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newFailure(KindTransport, "failed to read response body", err)
	}

	c.logger.Debug("api request",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"retry", !allowRetry,
		"duration", time.Since(start),
	)

	switch status := resp.StatusCode; {
	case status == http.StatusUnauthorized && allowRetry:
		c.logger.Info("bearer token rejected, forcing refresh", "endpoint", endpoint)
		c.recorder.RecordAuthRetry(endpoint)
		if _, err := c.tokenMgr.Refresh(ctx, true); err != nil {
			return nil, &Failure{
				Kind:       KindAuth,
				Message:    "token refresh after 401 failed",
				HTTPStatus: status,
				RawBody:    raw,
				Err:        err,
			}
		}
		return c.request(ctx, method, endpoint, body, false)

	case status == http.StatusUnauthorized:
		return nil, &Failure{
			Kind:       KindAuth,
			Message:    errorMessage(status, raw),
			HTTPStatus: status,
			RawBody:    raw,
		}

	case status >= 400:
		return nil, &Failure{
			Kind:       KindAPI,
			Message:    errorMessage(status, raw),
			HTTPStatus: status,
			RawBody:    raw,
		}

	case status == http.StatusNoContent:
		return map[string]interface{}{}, nil

	case status >= 200 && status <= 299:
		decoded, err := decodeJSON(raw)
		if err != nil {
			return nil, &Failure{
				Kind:       KindMalformedResponse,
				Message:    "failed to decode response body",
				HTTPStatus: status,
				RawBody:    raw,
				Err:        err,
			}
		}
		return decoded, nil

	default:
		return nil, &Failure{
			Kind:       KindAPI,
			Message:    "unexpected status " + resp.Status,
			HTTPStatus: status,
			RawBody:    raw,
		}
	}
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
// An empty body or trailing data after the value is an error.
func decodeJSON(raw []byte) (interface{}, error) {
	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return decoded, nil
}

// endpointURL joins the API URL and a relative endpoint, keeping the
// endpoint's trailing slash.
func (c *Client) endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.apiURL + "/" + strings.TrimLeft(endpoint, "/")
}

func sendsBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// Close releases idle connections held by the HTTP client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
