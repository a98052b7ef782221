package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/saifjishan/chatmeme/internal/logger"
)

// RetrieverService finds candidate image URLs through a metasearch
// endpoint (SearXNG-compatible JSON API). An empty result is the sole
// failure signal; transport errors are retried up to RetryCount times.
type RetrieverService struct {
	client  *resty.Client
	baseURL string
	retries int
	backoff time.Duration
}

// RetrieverConfig holds configuration for the retriever service.
type RetrieverConfig struct {
	BaseURL      string
	APIKey       string
	RetryCount   int           // attempts, default 3
	RetryBackoff time.Duration // pause between attempts, default 1s
}

// NewRetrieverService creates a new retriever service.
func NewRetrieverService(cfg *RetrieverConfig) *RetrieverService {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	retries := cfg.RetryCount
	if retries <= 0 {
		retries = 3
	}
	backoff := cfg.RetryBackoff
	if backoff < 0 {
		backoff = 0
	}

	return &RetrieverService{
		client:  client,
		baseURL: cfg.BaseURL,
		retries: retries,
		backoff: backoff,
	}
}

type imageSearchResponse struct {
	Results []struct {
		ImgSrc string `json:"img_src"`
		URL    string `json:"url"`
	} `json:"results"`
}

// Search returns up to count filtered image URLs for query, in provider
// order. It requests double the count to allow for drop-out during
// filtering, and returns an empty slice after exhausting retries.
func (s *RetrieverService) Search(ctx context.Context, query string, count int) []string {
	if count <= 0 {
		count = 1
	}

	for attempt := 1; attempt <= s.retries; attempt++ {
		urls, err := s.searchOnce(ctx, query, count)
		if err == nil {
			return urls
		}

		logger.CtxWarn(ctx, "Image search attempt %d/%d failed: %v", attempt, s.retries, err)
		if attempt < s.retries {
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				return nil
			}
		}
	}

	return nil
}

func (s *RetrieverService) searchOnce(ctx context.Context, query string, count int) ([]string, error) {
	var resp imageSearchResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":          query,
			"format":     "json",
			"categories": "images",
			"count":      strconv.Itoa(count * 2),
		}).
		SetResult(&resp).
		Get(s.baseURL)

	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, &searchStatusError{status: httpResp.StatusCode()}
	}

	urls := make([]string, 0, count)
	for _, result := range resp.Results {
		u := result.ImgSrc
		if u == "" {
			u = result.URL
		}
		if !usableImageURL(u) {
			continue
		}
		urls = append(urls, u)
		if len(urls) == count {
			break
		}
	}
	return urls, nil
}

type searchStatusError struct {
	status int
}

func (e *searchStatusError) Error() string {
	return "image search returned HTTP " + strconv.Itoa(e.status)
}

// usableImageURL applies the candidate filters: http(s) scheme, a
// jpg/jpeg/png suffix, and no thumbnail/icon markers.
func usableImageURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	if strings.Contains(lower, "thumb") || strings.Contains(lower, "icon") {
		return false
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
