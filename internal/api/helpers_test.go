package api

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/port-experimental/membership-cli/internal/tokenstore"
)

const testAPIKey = "test-api-key"

// fakeAPI serves the token endpoint and records domain calls.
type fakeAPI struct {
	mu sync.Mutex

	tokenCalls  int
	tokenMethod string
	tokenAuth   string
	// tokenStatus is returned by the token endpoint, except for the first
	// failTokenAfter calls which always succeed.
	tokenStatus    int
	failTokenAfter int
	tokenBody      string

	domainCalls map[string]int
	domainAuth  []string
	lastBody    map[string][]byte
	lastHeaders http.Header
	domain      func(w http.ResponseWriter, r *http.Request, call int)

	server *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		domainCalls: make(map[string]int),
		lastBody:    make(map[string][]byte),
		tokenStatus: http.StatusOK,
	}
	f.server = httptest.NewServer(f)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	if r.URL.Path == "/"+DefaultTokenEndpoint {
		f.tokenCalls++
		n := f.tokenCalls
		f.tokenMethod = r.Method
		f.tokenAuth = r.Header.Get("Authorization")
		status := f.tokenStatus
		if f.failTokenAfter > 0 && n <= f.failTokenAfter {
			status = http.StatusOK
		}
		body := f.tokenBody
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != "" {
			io.WriteString(w, body)
			return
		}
		if status == http.StatusOK {
			fmt.Fprintf(w, `{"Bearer": "token-%d"}`, n)
		} else {
			io.WriteString(w, `{"detail": "Invalid API key"}`)
		}
		return
	}

	f.domainCalls[r.URL.Path]++
	n := f.domainCalls[r.URL.Path]
	f.domainAuth = append(f.domainAuth, r.Header.Get("Authorization"))
	body, _ := io.ReadAll(r.Body)
	f.lastBody[r.URL.Path] = body
	f.lastHeaders = r.Header.Clone()
	handler := f.domain
	f.mu.Unlock()

	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 1}`)
		return
	}
	handler(w, r, n)
}

func (f *fakeAPI) tokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls
}

func (f *fakeAPI) domainCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.domainCalls[path]
}

func (f *fakeAPI) totalDomainCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.domainCalls {
		total += n
	}
	return total
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1700000000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTokenManager(f *fakeAPI, apiKey string, store tokenstore.Store, clock *testClock) *TokenManager {
	return NewTokenManager(TokenManagerConfig{
		APIKey: apiKey,
		URL:    f.server.URL + "/" + DefaultTokenEndpoint,
		Store:  store,
		Now:    clock.Now,
	})
}

func newTestClient(f *fakeAPI, tm *TokenManager) *Client {
	return NewClient(f.server.URL, tm, ClientOptions{})
}

// validState returns persisted state holding a token valid for another hour.
func validState(clock *testClock, token string) tokenstore.State {
	return tokenstore.State{
		AccessToken:    token,
		ExpiresAt:      clock.Now().Add(time.Hour),
		KeyFingerprint: Fingerprint(testAPIKey),
	}
}
