package submission

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/port-experimental/membership-cli/internal/config"
	"github.com/port-experimental/membership-cli/internal/tokenstore"
)

const testAPIKey = "test-api-key"

var testTypes = config.MembershipTypes{
	{Label: "Regular", RemoteID: "1"},
	{Label: "Student", RemoteID: "2"},
}

// remoteAPI fakes the membership API.
type remoteAPI struct {
	mu sync.Mutex

	tokenCalls    int
	contactCalls  int
	memberCalls   int
	deleteCalls   int
	contactStatus int
	contactBody   string
	memberStatus  int
	memberBody    string
	lastMember    map[string]interface{}

	server *httptest.Server
}

func newRemoteAPI(t *testing.T) *remoteAPI {
	t.Helper()
	r := &remoteAPI{
		contactStatus: http.StatusCreated,
		contactBody:   `{"id": 42}`,
		memberStatus:  http.StatusCreated,
		memberBody:    `{"id": 7}`,
	}
	r.server = httptest.NewServer(r)
	t.Cleanup(r.server.Close)
	return r
}

func (r *remoteAPI) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if req.Method == http.MethodDelete {
		r.deleteCalls++
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch req.URL.Path {
	case "/" + api.DefaultTokenEndpoint:
		r.tokenCalls++
		io.WriteString(w, `{"Bearer": "fresh-token"}`)
	case "/" + api.EndpointContactDetails:
		r.contactCalls++
		w.WriteHeader(r.contactStatus)
		io.WriteString(w, r.contactBody)
	case "/" + api.EndpointMember:
		r.memberCalls++
		body, _ := io.ReadAll(req.Body)
		r.lastMember = make(map[string]interface{})
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		dec.Decode(&r.lastMember)
		w.WriteHeader(r.memberStatus)
		io.WriteString(w, r.memberBody)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (r *remoteAPI) counts() (token, contact, member, deletes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokenCalls, r.contactCalls, r.memberCalls, r.deleteCalls
}

var testNow = time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

// newTestWorkflow wires a real client to the fake API with a cached, valid token.
func newTestWorkflow(t *testing.T, r *remoteAPI, logs io.Writer, recorder OutcomeRecorder) *Workflow {
	t.Helper()
	now := func() time.Time { return testNow }

	store := tokenstore.NewMemoryStore(tokenstore.State{
		AccessToken:    "cached-token",
		ExpiresAt:      testNow.Add(time.Hour),
		KeyFingerprint: api.Fingerprint(testAPIKey),
	})
	tm := api.NewTokenManager(api.TokenManagerConfig{
		APIKey: testAPIKey,
		URL:    r.server.URL + "/" + api.DefaultTokenEndpoint,
		Store:  store,
		Now:    now,
	})
	client := api.NewClient(r.server.URL, tm, api.ClientOptions{})
	t.Cleanup(func() { client.Close() })

	var logger *slog.Logger
	if logs != nil {
		logger = slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return NewWorkflow(client, Options{
		Types:    testTypes,
		Logger:   logger,
		Recorder: recorder,
		Now:      now,
	})
}

func validApplication() Application {
	return Application{
		FirstName:      " Ada ",
		LastName:       "Lovelace",
		Email:          "Ada@Example.org",
		MembershipType: "regular",
		IBAN:           Optional("GB82 WEST 1234 5698 7654 32"),
		AccountHolder:  Optional("A. Lovelace"),
	}
}

// stateRecorder collects recorded outcome states.
type stateRecorder struct {
	mu     sync.Mutex
	states []string
}

func (s *stateRecorder) RecordOutcome(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}
