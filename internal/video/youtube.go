package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Skufu/Health-Info-Assistant/internal/log"
)

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3"

var ErrMissingAPIKey = errors.New("youtube api key not configured")

// Source is where the service looks videos up.
type Source interface {
	Search(ctx context.Context, query, pageToken string, maxResults int) (*SearchResponse, error)
}

// YouTubeClient talks to the YouTube Data API v3.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewYouTubeClient(apiKey, baseURL string, timeout time.Duration) *YouTubeClient {
	if baseURL == "" {
		baseURL = youtubeBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &YouTubeClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

type thumbnail struct {
	URL string `json:"url"`
}

type searchListResponse struct {
	NextPageToken string `json:"nextPageToken"`
	PrevPageToken string `json:"prevPageToken"`
	PageInfo      struct {
		TotalResults int `json:"totalResults"`
	} `json:"pageInfo"`
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string    `json:"title"`
			Description  string    `json:"description"`
			ChannelTitle string    `json:"channelTitle"`
			PublishedAt  time.Time `json:"publishedAt"`
			Thumbnails   struct {
				Default thumbnail `json:"default"`
				Medium  thumbnail `json:"medium"`
				High    thumbnail `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type videosListResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type youtubeError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search runs search.list and enriches the hits with durations and view
// counts from videos.list. Enrichment failures are logged, not returned.
func (c *YouTubeClient) Search(ctx context.Context, query, pageToken string, maxResults int) (*SearchResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{
		"part":              {"snippet"},
		"type":              {"video"},
		"q":                 {query},
		"maxResults":        {strconv.Itoa(maxResults)},
		"safeSearch":        {"strict"},
		"relevanceLanguage": {"en"},
		"videoEmbeddable":   {"true"},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var sr searchListResponse
	if err := c.get(ctx, "search", params, &sr); err != nil {
		return nil, err
	}

	now := c.now()
	resp := &SearchResponse{
		Videos:        make([]Video, 0, len(sr.Items)),
		NextPageToken: sr.NextPageToken,
		PrevPageToken: sr.PrevPageToken,
		TotalResults:  sr.PageInfo.TotalResults,
	}
	ids := make([]string, 0, len(sr.Items))
	for _, item := range sr.Items {
		if item.ID.VideoID == "" {
			continue
		}
		thumb := item.Snippet.Thumbnails.High.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Medium.URL
		}
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		resp.Videos = append(resp.Videos, Video{
			ID:             item.ID.VideoID,
			Title:          html.UnescapeString(item.Snippet.Title),
			Description:    html.UnescapeString(item.Snippet.Description),
			ChannelTitle:   html.UnescapeString(item.Snippet.ChannelTitle),
			Thumbnail:      thumb,
			PublishedAt:    item.Snippet.PublishedAt,
			PublishedLabel: PublishedLabel(item.Snippet.PublishedAt, now),
		})
		ids = append(ids, item.ID.VideoID)
	}

	if len(ids) > 0 {
		if err := c.enrich(ctx, ids, resp.Videos); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Int("videos", len(ids)).Msg("video details lookup failed")
		}
	}
	return resp, nil
}

func (c *YouTubeClient) enrich(ctx context.Context, ids []string, videos []Video) error {
	params := url.Values{
		"part": {"contentDetails,statistics"},
		"id":   {strings.Join(ids, ",")},
	}
	var vr videosListResponse
	if err := c.get(ctx, "videos", params, &vr); err != nil {
		return err
	}

	byID := make(map[string]int, len(videos))
	for i, v := range videos {
		byID[v.ID] = i
	}
	for _, item := range vr.Items {
		i, ok := byID[item.ID]
		if !ok {
			continue
		}
		if d, err := ParseISODuration(item.ContentDetails.Duration); err == nil {
			videos[i].Duration = FormatDuration(d)
		}
		if n, err := strconv.ParseUint(item.Statistics.ViewCount, 10, 64); err == nil {
			videos[i].ViewCount = n
			videos[i].ViewsLabel = ViewsLabel(n)
		}
	}
	return nil
}

func (c *YouTubeClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("youtube %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read youtube %s response: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		var ye youtubeError
		if json.Unmarshal(body, &ye) == nil && ye.Error.Message != "" {
			return fmt.Errorf("youtube %s error (%d): %s", endpoint, resp.StatusCode, ye.Error.Message)
		}
		return fmt.Errorf("youtube %s error (%d)", endpoint, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode youtube %s response: %w", endpoint, err)
	}
	return nil
}
