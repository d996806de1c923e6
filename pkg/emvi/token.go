package emvi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Persisted entry names. Each is prefixed with the session namespace.
const (
	keyTokenType   = "token_type"
	keyAccessToken = "access_token"
	keyExpiresIn   = "expires_in"
)

// TokenState is the bearer token currently held by a Session.
// The zero value means no session has been established yet.
type TokenState struct {
	TokenType   string
	AccessToken string
	ExpiresIn   int
}

// Valid reports whether the state carries a token. A state loaded from
// storage is either fully populated or zero.
func (t TokenState) Valid() bool {
	return t.AccessToken != "" && t.TokenType != ""
}

// OAuth2Token converts the state for use with golang.org/x/oauth2.
// Expiry is left unset: the token is only replaced after the API rejects it.
func (t TokenState) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresIn:   int64(t.ExpiresIn),
	}
}

// Claims decodes the access token as a JWT without verifying its signature.
// Only for display; the server is the authority on token validity.
func (t TokenState) Claims() (jwt.MapClaims, error) {
	if t.AccessToken == "" {
		return nil, fmt.Errorf("no access token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.AccessToken, claims); err != nil {
		return nil, fmt.Errorf("access token is not a JWT: %w", err)
	}
	return claims, nil
}

// Expiry returns the exp claim of a JWT access token, if present.
func (t TokenState) Expiry() (time.Time, bool) {
	claims, err := t.Claims()
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// tokenRequest is the body of the client-credentials grant.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	TokenType   string          `json:"token_type"`
	AccessToken string          `json:"access_token"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
}

func (r tokenResponse) state() TokenState {
	return TokenState{
		TokenType:   r.TokenType,
		AccessToken: r.AccessToken,
		ExpiresIn:   coerceExpiresIn(r.ExpiresIn),
	}
}

// coerceExpiresIn accepts expires_in as a JSON number or a numeric string
// and keeps its leading integer part ("3600", 3600.5 and "3600s" all give 3600).
// Anything without leading digits yields 0.
func coerceExpiresIn(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
	}
	return leadingInt(s)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
