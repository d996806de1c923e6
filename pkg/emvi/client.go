package emvi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/emvi-client/internal/logging"
)

const (
	searchArticlesEndpoint = "/api/v1/search/article"
	searchListsEndpoint    = "/api/v1/search/list"
	searchTagsEndpoint     = "/api/v1/search/tag"
	searchAllEndpoint      = "/api/v1/search"
)

// Item is a single search hit as returned by the API.
type Item map[string]any

// SearchResult is the normalized response of a single-entity search.
type SearchResult struct {
	Results []Item `json:"results"`
	Count   int    `json:"count"`
}

type searchResponse struct {
	Articles []Item `json:"articles"`
	Lists    []Item `json:"lists"`
	Tags     []Item `json:"tags"`
	Count    int    `json:"count"`
}

// Client issues search requests on behalf of one organization.
// It is safe for concurrent use.
type Client struct {
	session    *Session
	apiHost    string
	httpClient *http.Client
	log        logging.Logger
}

// New creates a Client for the given credentials and loads the token persisted
// for them, if any.
func New(ctx context.Context, clientID, clientSecret, organization string, opts ...Option) (*Client, error) {
	o := newOptions(opts...)

	session, err := newSession(ctx, Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Organization: organization,
	}, o)
	if err != nil {
		return nil, err
	}

	base := o.httpClient
	httpClient := &http.Client{
		Transport:     newAuthTransport(session, base.Transport, o.limiter, o.logger),
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}

	return &Client{
		session:    session,
		apiHost:    o.apiHost,
		httpClient: httpClient,
		log:        o.logger,
	}, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

// FindArticles searches articles. Results is never nil.
func (c *Client) FindArticles(ctx context.Context, query string, filter Filter) (*SearchResult, error) {
	resp, err := c.search(ctx, searchArticlesEndpoint, query, filter)
	if err != nil {
		return nil, err
	}
	return newSearchResult(resp.Articles, resp.Count), nil
}

// FindLists searches lists. Results is never nil.
func (c *Client) FindLists(ctx context.Context, query string, filter Filter) (*SearchResult, error) {
	resp, err := c.search(ctx, searchListsEndpoint, query, filter)
	if err != nil {
		return nil, err
	}
	return newSearchResult(resp.Lists, resp.Count), nil
}

// FindTags searches tags. Results is never nil.
func (c *Client) FindTags(ctx context.Context, query string, filter Filter) (*SearchResult, error) {
	resp, err := c.search(ctx, searchTagsEndpoint, query, filter)
	if err != nil {
		return nil, err
	}
	return newSearchResult(resp.Tags, resp.Count), nil
}

// FindAll searches articles, lists and tags at once and returns the response
// body as decoded JSON. A nil filter requests all three entities without
// limits; a non-nil filter is sent as given, plus the query.
func (c *Client) FindAll(ctx context.Context, query string, filter Filter) (map[string]any, error) {
	params, err := buildFilter(query, filter)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		params = defaultAllFilter(query)
	}

	var out map[string]any
	if err := c.get(ctx, searchAllEndpoint, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, endpoint, query string, filter Filter) (*searchResponse, error) {
	params, err := buildFilter(query, filter)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func newSearchResult(items []Item, count int) *SearchResult {
	if items == nil {
		items = []Item{}
	}
	return &SearchResult{Results: items, Count: count}
}

func (c *Client) get(ctx context.Context, endpoint string, params Filter, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiHost+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Values().Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug(ctx, "search request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return newAPIError(resp, data)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
