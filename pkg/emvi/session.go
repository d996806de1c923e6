package emvi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/emvi-client/internal/logging"
)

const (
	grantType              = "client_credentials"
	authenticationEndpoint = "/api/v1/auth/token"
)

// Credentials identify the API client. They never change after construction.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Organization string
}

// Session owns the bearer token of one set of credentials: it loads the
// persisted token, refreshes it on demand and builds the authorization headers.
//
// A Session is safe for concurrent use. Concurrent Refresh calls share a
// single request to the token endpoint.
type Session struct {
	creds      Credentials
	authHost   string
	httpClient *http.Client
	store      Store
	namespace  string
	log        logging.Logger

	mu    sync.RWMutex
	state TokenState

	refreshGroup singleflight.Group
}

var _ oauth2.TokenSource = (*Session)(nil)

// NewSession creates a Session and loads any token persisted for its
// namespace. Missing entries are not an error: the session simply starts
// without a token and obtains one on the first 401.
func NewSession(ctx context.Context, creds Credentials, opts ...Option) (*Session, error) {
	return newSession(ctx, creds, newOptions(opts...))
}

func newSession(ctx context.Context, creds Credentials, o *options) (*Session, error) {
	namespace := o.namespace
	if namespace == "" {
		namespace = creds.ClientID
	}

	s := &Session{
		creds:      creds,
		authHost:   o.authHost,
		httpClient: o.httpClient,
		store:      o.store,
		namespace:  namespace,
		log:        o.logger.With("namespace", namespace),
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// key returns the store key of a persisted entry.
func (s *Session) key(name string) string {
	if s.namespace == "" {
		return name
	}
	return s.namespace + "/" + name
}

func (s *Session) load(ctx context.Context) error {
	values := make(map[string]string, 3)
	for _, name := range []string{keyTokenType, keyAccessToken, keyExpiresIn} {
		v, err := s.store.Get(ctx, s.key(name))
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		if v != nil {
			values[name] = string(v)
		}
	}

	if len(values) == 0 {
		s.log.Debug(ctx, "no persisted token")
		return nil
	}
	if len(values) != 3 {
		s.log.Warn(ctx, "ignoring partially persisted token", "entries", len(values))
		return nil
	}

	expiresIn, err := strconv.Atoi(values[keyExpiresIn])
	if err != nil {
		s.log.Warn(ctx, "ignoring persisted token with malformed expires_in")
		return nil
	}

	s.mu.Lock()
	s.state = TokenState{
		TokenType:   values[keyTokenType],
		AccessToken: values[keyAccessToken],
		ExpiresIn:   expiresIn,
	}
	s.mu.Unlock()

	s.log.Debug(ctx, "loaded persisted token", "token_type", values[keyTokenType], "expires_in", expiresIn)
	return nil
}

// State returns a copy of the current token.
func (s *Session) State() TokenState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Credentials returns the credentials the session authenticates with.
func (s *Session) Credentials() Credentials {
	return s.creds
}

// AuthorizationHeaders returns the headers every authenticated request carries.
// The current token is used as is, whether or not it has expired.
func (s *Session) AuthorizationHeaders() http.Header {
	s.mu.RLock()
	token := s.state.AccessToken
	s.mu.RUnlock()

	h := make(http.Header, 3)
	h.Set("Authorization", "Bearer "+token)
	h.Set("Organization", s.creds.Organization)
	h.Set("Client", s.creds.ClientID)
	return h
}

// Refresh requests a new token with the client-credentials grant and
// persists it. It makes a single attempt; a transport failure is returned
// unchanged and a non-2xx response is returned as *APIError.
//
// Callers arriving while a refresh is in flight wait for that refresh
// instead of starting another one.
func (s *Session) Refresh(ctx context.Context) error {
	return s.refresh(ctx, func() bool { return true })
}

// refreshStale refreshes only if the session still holds the token that was
// rejected. A request that got a 401 after another one already refreshed
// reuses the new token.
func (s *Session) refreshStale(ctx context.Context, rejected string) error {
	return s.refresh(ctx, func() bool { return s.State().AccessToken == rejected })
}

// refresh joins or starts the single refresh flight. The flight runs the
// needed check of whoever started it, so a caller that joined a skipped
// flight checks its own condition again and starts another one if needed.
func (s *Session) refresh(ctx context.Context, needed func() bool) error {
	for {
		ch := s.refreshGroup.DoChan("refresh", func() (any, error) {
			if !needed() {
				return false, nil
			}
			return true, s.doRefresh(context.WithoutCancel(ctx))
		})

		select {
		case res := <-ch:
			if res.Err != nil {
				return res.Err
			}
			if refreshed, _ := res.Val.(bool); refreshed || !needed() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) doRefresh(ctx context.Context) error {
	body, err := json.Marshal(tokenRequest{
		GrantType:    grantType,
		ClientID:     s.creds.ClientID,
		ClientSecret: s.creds.ClientSecret,
	})
	if err != nil {
		return fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authHost+authenticationEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn(ctx, "token request failed", "error", err)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn(ctx, "token request rejected", "status", resp.StatusCode)
		return newAPIError(resp, data)
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return fmt.Errorf("%w: failed to parse token response: %v", ErrInvalidResponse, err)
	}
	state := tr.state()

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if err := s.persist(ctx, state); err != nil {
		s.log.Error(ctx, "failed to persist token", "error", err)
		return err
	}

	s.log.Info(ctx, "token refreshed", "token_type", state.TokenType, "expires_in", state.ExpiresIn)
	return nil
}

func (s *Session) persist(ctx context.Context, state TokenState) error {
	err := s.store.SetMany(ctx, map[string][]byte{
		s.key(keyTokenType):   []byte(state.TokenType),
		s.key(keyAccessToken): []byte(state.AccessToken),
		s.key(keyExpiresIn):   []byte(strconv.Itoa(state.ExpiresIn)),
	})
	if err != nil {
		return fmt.Errorf("token refreshed but not persisted: %w", err)
	}
	return nil
}

// Clear forgets the current token and removes it from the store.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.state = TokenState{}
	s.mu.Unlock()

	for _, name := range []string{keyTokenType, keyAccessToken, keyExpiresIn} {
		if err := s.store.Delete(ctx, s.key(name)); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}
	s.log.Info(ctx, "token cleared")
	return nil
}

// Token implements oauth2.TokenSource. It returns the current token and
// only contacts the token endpoint when the session has none.
func (s *Session) Token() (*oauth2.Token, error) {
	if state := s.State(); state.Valid() {
		return state.OAuth2Token(), nil
	}
	if err := s.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return s.State().OAuth2Token(), nil
}
