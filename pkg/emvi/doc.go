// Package emvi is a client for the Emvi search API.
//
// # Overview
//
// The package provides:
//  1. Session: obtains a bearer token with the OAuth2 client-credentials grant,
//     persists it in a Store and builds the Authorization, Organization and
//     Client headers of every request.
//  2. Client: article, list, tag and combined search. Each Client owns an HTTP
//     transport that replays a request once after refreshing the token when
//     the API answers 401.
//
// The token is refreshed only when the API rejects it; expires_in is stored
// but never used to refresh ahead of time.
//
// # Persistence
//
// Tokens are written as three entries (token_type, access_token, expires_in)
// under "<namespace>/" where the namespace defaults to the client ID, so
// several clients can share one Store. MemoryStore is used when no Store is
// configured.
//
// # Error Handling
//
// Invalid arguments return *ValidationError (errors.Is ErrValidation) before
// any request is sent. Non-2xx responses return *APIError; a 401 that
// survives the replay matches ErrUnauthorized. Transport failures are
// returned as reported by net/http.
//
// # OAuth2 interop
//
// Session implements oauth2.TokenSource, so its token can authorize other
// HTTP clients. Unlike Client, such clients do not refresh on 401.
//
//	s, err := emvi.NewSession(ctx, emvi.Credentials{
//	    ClientID:     clientID,
//	    ClientSecret: clientSecret,
//	    Organization: "my-org",
//	})
//	if err != nil {
//	    return err
//	}
//	hc := oauth2.NewClient(ctx, s)
//
// Usage
//
//	c, err := emvi.New(ctx, clientID, clientSecret, "my-org",
//	    emvi.WithStore(store))
//	if err != nil {
//	    return err
//	}
//	res, err := c.FindArticles(ctx, "onboarding", emvi.Filter{"limit": 10})
package emvi
