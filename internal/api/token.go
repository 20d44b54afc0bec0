package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/port-experimental/membership-cli/internal/tokenstore"
	"golang.org/x/oauth2"
)

const (
	// tokenLifetime is how long a refreshed token is trusted: the remote issues
	// tokens for an hour and we stop using them 300s early.
	tokenLifetime = 3300 * time.Second

	// RefreshTimeout bounds a single call to the token endpoint.
	RefreshTimeout = 45 * time.Second

	// DefaultTokenEndpoint is the token endpoint path relative to the API URL.
	DefaultTokenEndpoint = "refresh-token/"

	// DefaultTokenMethod is the HTTP method used against the token endpoint.
	DefaultTokenMethod = http.MethodPost
)

// tokenResponse is the body returned by the token endpoint.
type tokenResponse struct {
	Bearer string `json:"Bearer"`
}

// TokenManagerConfig configures a TokenManager.
type TokenManagerConfig struct {
	APIKey     string
	URL        string // absolute token endpoint URL
	Method     string // defaults to POST
	Store      tokenstore.Store
	Logger     *slog.Logger
	HTTPClient *http.Client
	Recorder   Recorder
	Now        func() time.Time
}

// TokenStatus is a read-only snapshot of the cached token.
type TokenStatus struct {
	Token     string
	ExpiresAt time.Time
	Valid     bool
}

// TokenManager owns the cached bearer token and its expiry.
// It is the only writer of the token store.
type TokenManager struct {
	mu         sync.RWMutex
	apiKey     string
	url        string
	method     string
	store      tokenstore.Store
	httpClient *http.Client
	logger     *slog.Logger
	recorder   Recorder
	now        func() time.Time

	loaded bool
	token  *oauth2.Token
}

// NewTokenManager creates a new token manager. Persisted state is not read
// until the first token is needed.
func NewTokenManager(cfg TokenManagerConfig) *TokenManager {
	tm := &TokenManager{
		apiKey:     cfg.APIKey,
		url:        cfg.URL,
		method:     cfg.Method,
		store:      cfg.Store,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
		now:        cfg.Now,
	}
	if tm.method == "" {
		tm.method = DefaultTokenMethod
	}
	if tm.store == nil {
		tm.store = tokenstore.NewMemoryStore(tokenstore.State{})
	}
	if tm.httpClient == nil {
		tm.httpClient = &http.Client{
			Timeout:       RefreshTimeout,
			CheckRedirect: noRedirects,
		}
	}
	if tm.logger == nil {
		tm.logger = slog.New(slog.DiscardHandler)
	}
	if tm.recorder == nil {
		tm.recorder = nopRecorder{}
	}
	if tm.now == nil {
		tm.now = time.Now
	}
	return tm
}

// GetValidToken returns the cached token while it is unexpired, refreshing
// it otherwise.
func (tm *TokenManager) GetValidToken(ctx context.Context) (string, error) {
	tm.mu.RLock()
	if tm.loaded && tm.validLocked() {
		token := tm.token.AccessToken
		tm.mu.RUnlock()
		return token, nil
	}
	tm.mu.RUnlock()

	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.loadLocked(ctx)

	// Another goroutine may have refreshed while we waited for the lock.
	if tm.validLocked() {
		return tm.token.AccessToken, nil
	}

	return tm.refreshLocked(ctx, false)
}

// Refresh always calls the token endpoint. forced marks refreshes triggered
// by a 401 from the remote.
func (tm *TokenManager) Refresh(ctx context.Context, forced bool) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.loadLocked(ctx)
	return tm.refreshLocked(ctx, forced)
}

// Clear drops the cached token and persists the empty state.
func (tm *TokenManager) Clear(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.loaded = true
	tm.token = nil
	return tm.store.Clear(ctx)
}

// SetAPIKey swaps the API key. A different key invalidates the cached token.
func (tm *TokenManager) SetAPIKey(ctx context.Context, apiKey string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if apiKey == tm.apiKey {
		return
	}
	tm.apiKey = apiKey
	tm.loaded = true
	tm.clearLocked(ctx, "api key changed")
}

// Status returns a snapshot of the cached token, loading persisted state if needed.
func (tm *TokenManager) Status(ctx context.Context) TokenStatus {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.loadLocked(ctx)
	if tm.token == nil {
		return TokenStatus{}
	}
	return TokenStatus{
		Token:     tm.token.AccessToken,
		ExpiresAt: tm.token.Expiry,
		Valid:     tm.validLocked(),
	}
}

// validLocked reports whether the cached token can be used. Caller holds mu.
func (tm *TokenManager) validLocked() bool {
	return tm.token != nil && tm.token.AccessToken != "" && tm.now().Before(tm.token.Expiry)
}

// loadLocked reads persisted state once per process. Caller holds the write lock.
func (tm *TokenManager) loadLocked(ctx context.Context) {
	if tm.loaded {
		return
	}
	tm.loaded = true

	state, err := tm.store.Load(ctx)
	if err != nil {
		tm.logger.Warn("failed to load cached token", "error", err)
		return
	}
	if state.Empty() {
		return
	}
	if state.KeyFingerprint != "" && state.KeyFingerprint != Fingerprint(tm.apiKey) {
		tm.clearLocked(ctx, "stored token belongs to a different api key")
		return
	}

	tm.token = &oauth2.Token{
		AccessToken: state.AccessToken,
		TokenType:   "Bearer",
		Expiry:      state.ExpiresAt,
	}
}

// refreshLocked performs the token endpoint call. Caller holds the write lock.
func (tm *TokenManager) refreshLocked(ctx context.Context, forced bool) (string, error) {
	token, err := tm.fetchLocked(ctx)
	tm.recorder.RecordRefresh(forced, KindOf(err))
	if err != nil {
		tm.logger.Warn("token refresh failed", "forced", forced, "error", err)
		return "", err
	}

	tm.logger.Info("bearer token refreshed", "forced", forced, "expires_at", tm.token.Expiry.UTC().Format(time.RFC3339))
	if claims, err := InspectToken(token); err == nil && !claims.ExpiresAt.IsZero() {
		tm.logger.Debug("remote token expiry", "remote_expires_at", claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return token, nil
}

func (tm *TokenManager) fetchLocked(ctx context.Context) (string, error) {
	if tm.apiKey == "" {
		return "", newFailure(KindConfig, "api key is not configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, tm.method, tm.url, nil)
	if err != nil {
		return "", newFailure(KindConfig, "invalid token endpoint", err)
	}
	// The API key is presented as a bearer credential for this one call.
	(&oauth2.Token{AccessToken: tm.apiKey, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return "", newFailure(KindTransport, "failed to reach token endpoint", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", newFailure(KindTransport, "failed to read token response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		tm.clearLocked(ctx, "token endpoint rejected api key")
		return "", &Failure{
			Kind:       KindAuth,
			Message:    "token refresh rejected: " + errorMessage(resp.StatusCode, body),
			HTTPStatus: resp.StatusCode,
			RawBody:    body,
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.Bearer == "" {
		tm.clearLocked(ctx, "token response missing bearer token")
		return "", &Failure{
			Kind:       KindAuth,
			Message:    "token response did not contain a Bearer token",
			HTTPStatus: resp.StatusCode,
			RawBody:    body,
			Err:        err,
		}
	}

	tm.token = &oauth2.Token{
		AccessToken: tr.Bearer,
		TokenType:   "Bearer",
		Expiry:      tm.now().Add(tokenLifetime),
	}

	state := tokenstore.State{
		AccessToken:    tm.token.AccessToken,
		ExpiresAt:      tm.token.Expiry,
		KeyFingerprint: Fingerprint(tm.apiKey),
	}
	if err := tm.store.Save(ctx, state); err != nil {
		tm.logger.Warn("failed to persist token", "error", err)
	}

	return tr.Bearer, nil
}

// clearLocked drops the cached token and persists the empty state.
func (tm *TokenManager) clearLocked(ctx context.Context, reason string) {
	tm.token = nil
	if err := tm.store.Clear(ctx); err != nil {
		tm.logger.Warn("failed to clear cached token", "error", err)
		return
	}
	tm.logger.Info("cached token cleared", "reason", reason)
}

// Fingerprint returns a short, non-reversible identifier for an API key.
func Fingerprint(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}

func noRedirects(req *http.Request, via []*http.Request) error {
	return http.ErrUseLastResponse
}
