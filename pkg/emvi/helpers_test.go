package emvi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAPI serves both the token endpoint and the search endpoints.
// Search requests are accepted only with the token it last issued.
type fakeAPI struct {
	t *testing.T

	mu         sync.Mutex
	validToken string
	issue      []string // tokens handed out by successive refreshes
	tokenReqs  []tokenRequest
	searchReqs []*http.Request
	queries    []url.Values

	tokenStatus int
	tokenBody   string // overrides the generated token response
	searchBody  map[string]string
	alwaysDeny  bool
	tokenGate   chan struct{}

	tokenCalls  atomic.Int32
	searchCalls atomic.Int32

	server *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		t:          t,
		validToken: "good",
		issue:      []string{"good"},
		searchBody: map[string]string{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == authenticationEndpoint {
		f.handleToken(w, r)
		return
	}
	f.handleSearch(w, r)
}

func (f *fakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	f.tokenCalls.Add(1)
	if f.tokenGate != nil {
		<-f.tokenGate
	}

	var req tokenRequest
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	f.tokenReqs = append(f.tokenReqs, req)
	status := f.tokenStatus
	override := f.tokenBody
	token := f.validToken
	if len(f.issue) > 0 {
		token = f.issue[0]
		if len(f.issue) > 1 {
			f.issue = f.issue[1:]
		}
	}
	f.validToken = token
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if override != "" {
		_, _ = io.WriteString(w, override)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token_type":   "Bearer",
		"access_token": token,
		"expires_in":   3600,
	})
}

func (f *fakeAPI) handleSearch(w http.ResponseWriter, r *http.Request) {
	f.searchCalls.Add(1)

	f.mu.Lock()
	f.searchReqs = append(f.searchReqs, r.Clone(r.Context()))
	f.queries = append(f.queries, r.URL.Query())
	valid := "Bearer " + f.validToken
	deny := f.alwaysDeny
	body, ok := f.searchBody[r.URL.Path]
	f.mu.Unlock()

	if deny || r.Header.Get("Authorization") != valid {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !ok {
		body = `{"count":0}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (f *fakeAPI) lastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.queries)
	return f.queries[len(f.queries)-1]
}

func (f *fakeAPI) setSearchBody(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchBody[path] = body
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient returns a client for f whose store already holds the token
// the fake API accepts, so searches succeed without a refresh.
func newTestClient(t *testing.T, f *fakeAPI, opts ...Option) (*Client, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	seedToken(t, store, "client-id", "good")

	base := []Option{
		WithAuthHost(f.server.URL),
		WithAPIHost(f.server.URL),
		WithHTTPClient(f.server.Client()),
		WithStore(store),
		WithLogger(testLogger()),
	}
	c, err := New(context.Background(), "client-id", "secret", "acme", append(base, opts...)...)
	require.NoError(t, err)
	return c, store
}

// newClientWithStore returns a client for f authenticating as clientID, whose
// token is kept in store.
func newClientWithStore(t *testing.T, f *fakeAPI, clientID string, store Store) *Client {
	t.Helper()
	c, err := New(context.Background(), clientID, "secret", "acme",
		WithAuthHost(f.server.URL),
		WithAPIHost(f.server.URL),
		WithHTTPClient(f.server.Client()),
		WithStore(store),
		WithLogger(testLogger()),
	)
	require.NoError(t, err)
	return c
}

// newStatusServer answers every request with status and body.
func newStatusServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

// newRecordingServer passes every request to record and answers with body.
func newRecordingServer(t *testing.T, record func(*http.Request), body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func seedToken(t *testing.T, store Store, namespace, token string) {
	t.Helper()
	require.NoError(t, store.SetMany(context.Background(), map[string][]byte{
		namespace + "/token_type":   []byte("Bearer"),
		namespace + "/access_token": []byte(token),
		namespace + "/expires_in":   []byte("3600"),
	}))
}
