// Package services contains the application services behind the CLI.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/emvi-client/internal/logging"
	"github.com/dmitrijs2005/emvi-client/pkg/emvi"
)

// Session is the part of *emvi.Session the auth service drives.
type Session interface {
	Refresh(ctx context.Context) error
	State() emvi.TokenState
	Credentials() emvi.Credentials
	Clear(ctx context.Context) error
}

var _ Session = (*emvi.Session)(nil)

// TokenLister lists stored entries by key prefix, as the metadata
// repository does.
type TokenLister interface {
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}

// TokenInfo describes the current session for display. It never carries
// the access token itself.
type TokenInfo struct {
	ClientID      string
	Organization  string
	Authenticated bool
	TokenType     string
	ExpiresIn     int
	Subject       string
	Expiry        time.Time // zero when the token is opaque or has no exp claim
}

// AuthService manages the session token on behalf of the CLI.
type AuthService interface {
	// Refresh obtains a new token regardless of the current one.
	Refresh(ctx context.Context) (TokenInfo, error)
	Status() TokenInfo
	// Logout forgets the token, locally and in the database.
	Logout(ctx context.Context) error
	// StoredClients returns the namespaces that hold a token in the
	// database, sorted.
	StoredClients(ctx context.Context) ([]string, error)
}

type authService struct {
	session Session
	tokens  TokenLister
	log     logging.Logger
}

// NewAuthService builds the auth service. tokens may be nil when the
// session is not backed by a listable store.
func NewAuthService(session Session, tokens TokenLister, log logging.Logger) AuthService {
	return &authService{session: session, tokens: tokens, log: log}
}

func (a *authService) Refresh(ctx context.Context) (TokenInfo, error) {
	if err := a.session.Refresh(ctx); err != nil {
		return TokenInfo{}, fmt.Errorf("token refresh error: %w", err)
	}
	info := a.Status()
	a.log.Info(ctx, "session refreshed", "client_id", info.ClientID, "expires_in", info.ExpiresIn)
	return info, nil
}

func (a *authService) Status() TokenInfo {
	creds := a.session.Credentials()
	state := a.session.State()

	info := TokenInfo{
		ClientID:      creds.ClientID,
		Organization:  creds.Organization,
		Authenticated: state.Valid(),
		TokenType:     state.TokenType,
		ExpiresIn:     state.ExpiresIn,
	}
	if !info.Authenticated {
		return info
	}

	if claims, err := state.Claims(); err == nil {
		if sub, err := claims.GetSubject(); err == nil {
			info.Subject = sub
		}
	}
	if exp, ok := state.Expiry(); ok {
		info.Expiry = exp
	}
	return info
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.session.Clear(ctx); err != nil {
		return fmt.Errorf("logout error: %w", err)
	}
	return nil
}

func (a *authService) StoredClients(ctx context.Context) ([]string, error) {
	if a.tokens == nil {
		return nil, nil
	}
	entries, err := a.tokens.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("stored tokens error: %w", err)
	}

	var names []string
	for key, value := range entries {
		ns, ok := strings.CutSuffix(key, "/access_token")
		if ok && ns != "" && len(value) > 0 {
			names = append(names, ns)
		}
	}
	sort.Strings(names)
	return names, nil
}
