package api

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/port-experimental/membership-cli/internal/tokenstore"
)

func TestTokenManager_GetValidToken_Cached(t *testing.T) {
	f := newFakeAPI(t)
	clock := newTestClock()
	store := tokenstore.NewMemoryStore(validState(clock, "cached-token"))
	tm := newTestTokenManager(f, testAPIKey, store, clock)

	for i := 0; i < 2; i++ {
		token, err := tm.GetValidToken(context.Background())
		if err != nil {
			t.Fatalf("GetValidToken() error = %v", err)
		}
		if token != "cached-token" {
			t.Errorf("Expected cached token, got '%s'", token)
		}
	}

	if n := f.tokenCount(); n != 0 {
		t.Errorf("Expected no token endpoint calls, got %d", n)
	}
}

func TestTokenManager_GetValidToken_Refreshes(t *testing.T) {
	tests := []struct {
		name  string
		state func(clock *testClock) tokenstore.State
	}{
		{
			name:  "absent",
			state: func(clock *testClock) tokenstore.State { return tokenstore.State{} },
		},
		{
			name: "expired",
			state: func(clock *testClock) tokenstore.State {
				s := validState(clock, "old")
				s.ExpiresAt = clock.Now().Add(-time.Second)
				return s
			},
		},
		{
			name: "expires now",
			state: func(clock *testClock) tokenstore.State {
				s := validState(clock, "old")
				s.ExpiresAt = clock.Now()
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI(t)
			clock := newTestClock()
			store := tokenstore.NewMemoryStore(tt.state(clock))
			tm := newTestTokenManager(f, testAPIKey, store, clock)

			token, err := tm.GetValidToken(context.Background())
			if err != nil {
				t.Fatalf("GetValidToken() error = %v", err)
			}
			if token != "token-1" {
				t.Errorf("Expected 'token-1', got '%s'", token)
			}
			if n := f.tokenCount(); n != 1 {
				t.Errorf("Expected exactly 1 token endpoint call, got %d", n)
			}

			saved, _ := store.Load(context.Background())
			wantExpiry := clock.Now().Add(3300 * time.Second)
			if saved.AccessToken != "token-1" || !saved.ExpiresAt.Equal(wantExpiry) {
				t.Errorf("Unexpected persisted state: %+v (want expiry %v)", saved, wantExpiry)
			}
			if saved.KeyFingerprint != Fingerprint(testAPIKey) {
				t.Errorf("Expected key fingerprint to be persisted")
			}

			// Second call reuses the refreshed token.
			if _, err := tm.GetValidToken(context.Background()); err != nil {
				t.Fatalf("GetValidToken() error = %v", err)
			}
			if n := f.tokenCount(); n != 1 {
				t.Errorf("Expected no additional token call, got %d total", n)
			}
		})
	}
}

func TestTokenManager_ExpiresAfterLifetime(t *testing.T) {
	f := newFakeAPI(t)
	clock := newTestClock()
	tm := newTestTokenManager(f, testAPIKey, nil, clock)

	if _, err := tm.GetValidToken(context.Background()); err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}

	clock.Advance(3299 * time.Second)
	if _, err := tm.GetValidToken(context.Background()); err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}
	if n := f.tokenCount(); n != 1 {
		t.Fatalf("Expected token to still be valid, got %d refreshes", n)
	}

	clock.Advance(time.Second)
	token, err := tm.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}
	if token != "token-2" {
		t.Errorf("Expected 'token-2' after expiry, got '%s'", token)
	}
}

func TestTokenManager_Refresh_RequestShape(t *testing.T) {
	tests := []struct {
		name   string
		method string
		want   string
	}{
		{name: "default method", method: "", want: http.MethodPost},
		{name: "configured GET", method: http.MethodGet, want: http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI(t)
			tm := NewTokenManager(TokenManagerConfig{
				APIKey: testAPIKey,
				URL:    f.server.URL + "/" + DefaultTokenEndpoint,
				Method: tt.method,
			})

			if _, err := tm.Refresh(context.Background(), false); err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}
			if f.tokenMethod != tt.want {
				t.Errorf("Expected method %s, got %s", tt.want, f.tokenMethod)
			}
			if f.tokenAuth != "Bearer "+testAPIKey {
				t.Errorf("Expected API key as bearer credential, got '%s'", f.tokenAuth)
			}
		})
	}
}

func TestTokenManager_Refresh_EmptyAPIKey(t *testing.T) {
	f := newFakeAPI(t)
	tm := newTestTokenManager(f, "", nil, newTestClock())

	_, err := tm.Refresh(context.Background(), false)
	if KindOf(err) != KindConfig {
		t.Fatalf("Expected %s, got %v", KindConfig, err)
	}
	if n := f.tokenCount(); n != 0 {
		t.Errorf("Expected no network call, got %d", n)
	}
}

func TestTokenManager_Refresh_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "forbidden", status: http.StatusForbidden},
		{name: "server error", status: http.StatusInternalServerError, body: "oops"},
		{name: "missing bearer field", status: http.StatusOK, body: `{"token": "nope"}`},
		{name: "empty bearer field", status: http.StatusOK, body: `{"Bearer": ""}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI(t)
			f.tokenStatus = tt.status
			f.tokenBody = tt.body

			clock := newTestClock()
			store := tokenstore.NewMemoryStore(validState(clock, "stale"))
			tm := newTestTokenManager(f, testAPIKey, store, clock)

			_, err := tm.Refresh(context.Background(), true)
			if KindOf(err) != KindAuth {
				t.Fatalf("Expected %s, got %v", KindAuth, err)
			}

			state, _ := store.Load(context.Background())
			if !state.Empty() {
				t.Errorf("Expected stored token to be cleared, got %+v", state)
			}
			if _, clears := store.Counts(); clears != 1 {
				t.Errorf("Expected 1 clear, got %d", clears)
			}
			if tm.Status(context.Background()).Token != "" {
				t.Error("Expected cached token to be dropped")
			}
		})
	}
}

func TestTokenManager_Refresh_TransportError(t *testing.T) {
	f := newFakeAPI(t)
	clock := newTestClock()
	store := tokenstore.NewMemoryStore(validState(clock, "kept"))
	tm := newTestTokenManager(f, testAPIKey, store, clock)
	f.server.Close()

	_, err := tm.Refresh(context.Background(), false)
	if KindOf(err) != KindTransport {
		t.Fatalf("Expected %s, got %v", KindTransport, err)
	}

	if _, clears := store.Counts(); clears != 0 {
		t.Errorf("Expected stored token to survive a transport failure, got %d clears", clears)
	}
}

func TestTokenManager_FingerprintMismatch(t *testing.T) {
	f := newFakeAPI(t)
	clock := newTestClock()
	state := validState(clock, "other-key-token")
	state.KeyFingerprint = Fingerprint("another-key")
	store := tokenstore.NewMemoryStore(state)
	tm := newTestTokenManager(f, testAPIKey, store, clock)

	token, err := tm.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}
	if token != "token-1" {
		t.Errorf("Expected fresh token, got '%s'", token)
	}
	if _, clears := store.Counts(); clears != 1 {
		t.Errorf("Expected stale token to be cleared once, got %d", clears)
	}
}

func TestTokenManager_SetAPIKey(t *testing.T) {
	f := newFakeAPI(t)
	clock := newTestClock()
	store := tokenstore.NewMemoryStore(validState(clock, "cached"))
	tm := newTestTokenManager(f, testAPIKey, store, clock)

	tm.SetAPIKey(context.Background(), testAPIKey)
	if _, clears := store.Counts(); clears != 0 {
		t.Fatalf("Expected unchanged key to keep token, got %d clears", clears)
	}

	tm.SetAPIKey(context.Background(), "rotated-key")
	if _, clears := store.Counts(); clears != 1 {
		t.Fatalf("Expected changed key to clear token, got %d clears", clears)
	}

	if _, err := tm.GetValidToken(context.Background()); err != nil {
		t.Fatalf("GetValidToken() error = %v", err)
	}
	if f.tokenAuth != "Bearer rotated-key" {
		t.Errorf("Expected rotated key to be used, got '%s'", f.tokenAuth)
	}
}

func TestTokenManager_Clear(t *testing.T) {
	clock := newTestClock()
	store := tokenstore.NewMemoryStore(validState(clock, "cached"))
	tm := NewTokenManager(TokenManagerConfig{APIKey: testAPIKey, Store: store, Now: clock.Now})

	if !tm.Status(context.Background()).Valid {
		t.Fatal("Expected seeded token to be valid")
	}
	if err := tm.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if st := tm.Status(context.Background()); st.Token != "" || st.Valid {
		t.Errorf("Expected empty status after Clear, got %+v", st)
	}
}

func TestTokenManager_ConcurrentGetValidToken(t *testing.T) {
	f := newFakeAPI(t)
	tm := newTestTokenManager(f, testAPIKey, nil, newTestClock())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tm.GetValidToken(context.Background()); err != nil {
				t.Errorf("GetValidToken() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := f.tokenCount(); n != 1 {
		t.Errorf("Expected a single refresh for concurrent callers, got %d", n)
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("") != "" {
		t.Error("Expected empty fingerprint for empty key")
	}
	a, b := Fingerprint("key-a"), Fingerprint("key-b")
	if len(a) != 16 {
		t.Errorf("Expected 16 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("Expected different keys to have different fingerprints")
	}
	if a != Fingerprint("key-a") {
		t.Error("Expected fingerprint to be deterministic")
	}
}
