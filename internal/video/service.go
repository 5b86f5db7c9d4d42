package video

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/metrics"
)

const (
	defaultMaxResults = 12
	maxMaxResults     = 50

	featuredPerCategory = 6
	featuredParallelism = 4

	// lookupTimeout bounds a shared upstream lookup, which outlives any
	// single caller's context.
	lookupTimeout = 20 * time.Second
)

var (
	ErrEmptyQuery      = errors.New("search query is empty")
	ErrUnknownCategory = errors.New("unknown video category")
)

type Service interface {
	Categories() []Category
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	ByCategory(ctx context.Context, categoryID, pageToken string, maxResults int) (*SearchResponse, error)
	Featured(ctx context.Context) ([]CategoryVideos, error)
}

type service struct {
	source   Source
	cache    Cache
	cacheTTL time.Duration
	prefix   string
	sf       singleflight.Group
}

// NewService creates a video service. A nil cache disables caching.
func NewService(source Source, cache Cache, prefix string, cacheTTL time.Duration) Service {
	return &service{
		source:   source,
		cache:    cache,
		cacheTTL: cacheTTL,
		prefix:   prefix,
	}
}

func (s *service) Categories() []Category {
	return Categories()
}

func (s *service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := strings.Join(strings.Fields(req.Query), " ")
	if q == "" {
		return nil, ErrEmptyQuery
	}
	return s.lookup(ctx, "search", q, req.PageToken, normalizeMax(req.MaxResults))
}

func (s *service) ByCategory(ctx context.Context, categoryID, pageToken string, maxResults int) (*SearchResponse, error) {
	cat, ok := CategoryByID(categoryID)
	if !ok {
		return nil, ErrUnknownCategory
	}
	return s.lookup(ctx, "category", cat.Query, pageToken, normalizeMax(maxResults))
}

// Featured fetches the first page of every category concurrently. Categories
// that fail are left out; an error is returned only when all of them fail.
func (s *service) Featured(ctx context.Context) ([]CategoryVideos, error) {
	cats := Categories()
	rows := make([]*CategoryVideos, len(cats))

	var (
		mu       sync.Mutex
		firstErr error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(featuredParallelism)
	for i, cat := range cats {
		i, cat := i, cat
		g.Go(func() error {
			resp, err := s.lookup(gCtx, "category", cat.Query, "", featuredPerCategory)
			if err != nil {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Str("category", cat.ID).Msg("featured category lookup failed")
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			rows[i] = &CategoryVideos{Category: cat, Videos: resp.Videos}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]CategoryVideos, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (s *service) lookup(ctx context.Context, kind, query, pageToken string, maxResults int) (*SearchResponse, error) {
	key := BuildKey(s.prefix, kind, strings.ToLower(query), pageToken, maxResults)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		if s.cache != nil {
			cached, err := s.cache.Get(ctx, key)
			if err == nil {
				metrics.IncVideoCacheHit()
				return cached, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Msg("cache get error")
			}
		}
		metrics.IncVideoCacheMiss()

		resp, err := s.source.Search(ctx, query, pageToken, maxResults)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*SearchResponse), nil
}

func (s *service) cacheSet(ctx context.Context, key string, resp *SearchResponse) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str("key", key).Msg("cache set error")
	}
}

func normalizeMax(n int) int {
	if n <= 0 {
		return defaultMaxResults
	}
	if n > maxMaxResults {
		return maxMaxResults
	}
	return n
}
