package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/emvi-client/internal/logging"
	"github.com/dmitrijs2005/emvi-client/pkg/emvi"
)

var ErrUnknownKind = errors.New("unknown search kind")

// Kind selects the entity a search targets.
type Kind string

const (
	KindArticles Kind = "articles"
	KindLists    Kind = "lists"
	KindTags     Kind = "tags"
)

// ParseKind accepts the plural and singular forms, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "articles", "article":
		return KindArticles, nil
	case "lists", "list":
		return KindLists, nil
	case "tags", "tag":
		return KindTags, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Searcher is implemented by *emvi.Client.
type Searcher interface {
	FindArticles(ctx context.Context, query string, filter emvi.Filter) (*emvi.SearchResult, error)
	FindLists(ctx context.Context, query string, filter emvi.Filter) (*emvi.SearchResult, error)
	FindTags(ctx context.Context, query string, filter emvi.Filter) (*emvi.SearchResult, error)
	FindAll(ctx context.Context, query string, filter emvi.Filter) (map[string]any, error)
}

var _ Searcher = (*emvi.Client)(nil)

type SearchService interface {
	Search(ctx context.Context, kind Kind, query string, filter emvi.Filter) (*emvi.SearchResult, error)
	All(ctx context.Context, query string, filter emvi.Filter) (map[string]any, error)
}

type searchService struct {
	client Searcher
	log    logging.Logger
}

func NewSearchService(client Searcher, log logging.Logger) SearchService {
	return &searchService{client: client, log: log}
}

func (s *searchService) Search(ctx context.Context, kind Kind, query string, filter emvi.Filter) (*emvi.SearchResult, error) {
	var find func(context.Context, string, emvi.Filter) (*emvi.SearchResult, error)
	switch kind {
	case KindArticles:
		find = s.client.FindArticles
	case KindLists:
		find = s.client.FindLists
	case KindTags:
		find = s.client.FindTags
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	start := time.Now()
	res, err := find(ctx, query, filter)
	if err != nil {
		s.log.Debug(ctx, "search failed", "kind", kind, "error", err)
		return nil, fmt.Errorf("%s search error: %w", kind, err)
	}
	s.log.Debug(ctx, "search completed", "kind", kind, "count", res.Count, "took", time.Since(start))
	return res, nil
}

func (s *searchService) All(ctx context.Context, query string, filter emvi.Filter) (map[string]any, error) {
	start := time.Now()
	res, err := s.client.FindAll(ctx, query, filter)
	if err != nil {
		s.log.Debug(ctx, "search failed", "kind", "all", "error", err)
		return nil, fmt.Errorf("search error: %w", err)
	}
	s.log.Debug(ctx, "search completed", "kind", "all", "took", time.Since(start))
	return res, nil
}
