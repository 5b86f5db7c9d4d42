package video

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubSource struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newStubSource() *stubSource {
	return &stubSource{calls: map[string]int{}, fail: map[string]bool{}}
}

func (s *stubSource) Search(_ context.Context, query, pageToken string, maxResults int) (*SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[query]++
	if s.fail[query] {
		return nil, errors.New("upstream down")
	}
	videos := make([]Video, 0, maxResults)
	for i := 0; i < maxResults; i++ {
		videos = append(videos, Video{ID: query, Title: pageToken})
	}
	return &SearchResponse{Videos: videos, TotalResults: maxResults}, nil
}

func (s *stubSource) count(query string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[query]
}

func TestService_SearchCachesResults(t *testing.T) {
	src := newStubSource()
	svc := NewService(src, NewMemoryCache(), "test", time.Minute)
	ctx := context.Background()

	first, err := svc.Search(ctx, SearchRequest{Query: "  knee   pain ", MaxResults: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(first.Videos) != 3 || first.Videos[0].ID != "knee pain" {
		t.Fatalf("unexpected result %+v", first)
	}

	if _, err := svc.Search(ctx, SearchRequest{Query: "Knee Pain", MaxResults: 3}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := src.count("knee pain"); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}

func TestService_NormalizesMaxResults(t *testing.T) {
	src := newStubSource()
	svc := NewService(src, nil, "test", time.Minute)

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "flu"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Videos) != defaultMaxResults {
		t.Fatalf("expected default %d results, got %d", defaultMaxResults, len(resp.Videos))
	}

	resp, _ = svc.Search(context.Background(), SearchRequest{Query: "cold", MaxResults: 500})
	if len(resp.Videos) != maxMaxResults {
		t.Fatalf("expected cap %d, got %d", maxMaxResults, len(resp.Videos))
	}
}

func TestService_Errors(t *testing.T) {
	svc := NewService(newStubSource(), nil, "test", time.Minute)
	if _, err := svc.Search(context.Background(), SearchRequest{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := svc.ByCategory(context.Background(), "astrology", "", 5); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestService_ByCategoryUsesCategoryQuery(t *testing.T) {
	src := newStubSource()
	svc := NewService(src, NewMemoryCache(), "test", time.Minute)

	cat, _ := CategoryByID("sleep")
	resp, err := svc.ByCategory(context.Background(), "sleep", "P2", 4)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if resp.Videos[0].ID != cat.Query || resp.Videos[0].Title != "P2" {
		t.Fatalf("expected category query and page token to reach source, got %+v", resp.Videos[0])
	}
}

func TestService_FeaturedSkipsFailedCategories(t *testing.T) {
	src := newStubSource()
	cat, _ := CategoryByID("fitness")
	src.fail[cat.Query] = true

	svc := NewService(src, NewMemoryCache(), "test", time.Minute)
	rows, err := svc.Featured(context.Background())
	if err != nil {
		t.Fatalf("featured: %v", err)
	}
	if len(rows) != len(Categories())-1 {
		t.Fatalf("expected %d rows, got %d", len(Categories())-1, len(rows))
	}
	for i, r := range rows {
		if r.Category.ID == "fitness" {
			t.Fatalf("failed category should be skipped")
		}
		if len(r.Videos) != featuredPerCategory {
			t.Fatalf("row %d: expected %d videos, got %d", i, featuredPerCategory, len(r.Videos))
		}
	}
	if rows[0].Category.ID != "general" {
		t.Fatalf("rows should keep category order, first is %s", rows[0].Category.ID)
	}
}

func TestService_FeaturedAllFail(t *testing.T) {
	src := newStubSource()
	for _, c := range Categories() {
		src.fail[c.Query] = true
	}
	svc := NewService(src, nil, "test", time.Minute)
	if _, err := svc.Featured(context.Background()); err == nil {
		t.Fatalf("expected error when every category fails")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	if err := c.Set(ctx, "k", &SearchResponse{TotalResults: 7}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || got.TotalResults != 7 {
		t.Fatalf("expected hit, got %+v err=%v", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

type ctxCheckingSource struct{ *stubSource }

func (s ctxCheckingSource) Search(ctx context.Context, query, pageToken string, maxResults int) (*SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.stubSource.Search(ctx, query, pageToken, maxResults)
}

func TestService_LookupOutlivesCallerContext(t *testing.T) {
	svc := NewService(ctxCheckingSource{newStubSource()}, NewMemoryCache(), "test", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.Search(ctx, SearchRequest{Query: "asthma", MaxResults: 2})
	if err != nil {
		t.Fatalf("shared lookup should not inherit the caller's cancellation: %v", err)
	}
	if len(resp.Videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(resp.Videos))
	}
}
