package emvi

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/emvi-client/internal/logging"
)

// authTransport stamps the session's authorization headers on every request.
// On a 401 it refreshes the token and replays the request once.
// Each Client owns its own authTransport.
type authTransport struct {
	session *Session
	base    http.RoundTripper
	limiter *rate.Limiter
	log     logging.Logger
}

func newAuthTransport(session *Session, base http.RoundTripper, limiter *rate.Limiter, log logging.Logger) *authTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{session: session, base: base, limiter: limiter, log: log}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	log := t.log.With("request_id", uuid.NewString(), "method", req.Method, "path", req.URL.Path)

	first, err := t.authorize(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(first)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		log.Debug(ctx, "request completed", "status", resp.StatusCode)
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Warn(ctx, "unauthorized request cannot be replayed")
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	log.Info(ctx, "request unauthorized, refreshing token")
	if err := t.session.refreshStale(ctx, bearerToken(first.Header)); err != nil {
		log.Warn(ctx, "token refresh failed", "error", err)
		return nil, err
	}

	retry, err := t.authorize(req)
	if err != nil {
		return nil, err
	}

	log.Debug(ctx, "replaying request with refreshed token")
	resp, err = t.base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "replay completed", "status", resp.StatusCode)
	return resp, nil
}

// authorize clones req with the current authorization headers.
func (t *authTransport) authorize(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	for k, v := range t.session.AuthorizationHeaders() {
		out.Header[k] = v
	}
	return out, nil
}

// bearerToken returns the token carried by h's Authorization header.
func bearerToken(h http.Header) string {
	return strings.TrimPrefix(h.Get("Authorization"), "Bearer ")
}
