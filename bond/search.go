package bond

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
)

// DefaultSearchCacheSize bounds the number of cached queries.
const DefaultSearchCacheSize = 256

// servantItems implements fuzzy.Source over servant labels.
type servantItems []Servant

func (items servantItems) Len() int { return len(items) }

func (items servantItems) String(i int) string {
	return SearchLabel(items[i])
}

// SearchLabel is the text a servant is matched on, e.g.
// "altria pendragon saber 2".
func SearchLabel(s Servant) string {
	return strings.ToLower(fmt.Sprintf("%s %s %d", s.Name, s.ClassName, s.CollectionNo))
}

// SearchIndex runs fuzzy servant searches with a result cache.
type SearchIndex struct {
	catalog Catalog
	cache   *lru.Cache
}

// NewSearchIndex creates a search index over catalog.
func NewSearchIndex(catalog Catalog, cacheSize int) (*SearchIndex, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultSearchCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &SearchIndex{catalog: catalog, cache: cache}, nil
}

// Search returns servants matching query, best match first. An empty
// query returns the catalog in collection order. limit <= 0 means no limit.
func (s *SearchIndex) Search(ctx context.Context, region Region, query string, limit int) ([]Servant, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	key := fmt.Sprintf("%s|%d|%s", region, limit, query)
	if cached, ok := s.cache.Get(key); ok {
		return append([]Servant(nil), cached.([]Servant)...), nil
	}

	servants, err := s.catalog.Servants(ctx, region)
	if err != nil {
		return nil, err
	}

	var results []Servant
	if query == "" {
		results = append([]Servant(nil), servants...)
	} else {
		matches := fuzzy.FindFrom(query, servantItems(servants))
		results = make([]Servant, len(matches))
		for i, m := range matches {
			results[i] = servants[m.Index]
		}
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	s.cache.Add(key, results)
	return append([]Servant(nil), results...), nil
}

// Invalidate drops cached results, e.g. after a catalog refresh.
func (s *SearchIndex) Invalidate() {
	s.cache.Purge()
}
