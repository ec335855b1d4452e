package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidFeedFormat reports a feed body that is empty or an HTML page,
// the usual symptom of an auth redirect from the spreadsheet host.
var ErrInvalidFeedFormat = errors.New("invalid feed format: empty or HTML response")

const cacheKey = "attendboard:sheet:body"

// Fetcher downloads the published schedule spreadsheet as CSV text.
type Fetcher struct {
	baseURL string
	httpc   *http.Client
	cache   *redis.Client
	ttl     time.Duration
}

// NewFetcher builds a fetcher; cache may be nil to disable body caching.
func NewFetcher(sheetURL string, cache *redis.Client, ttl time.Duration) *Fetcher {
	return &Fetcher{
		baseURL: sheetURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
		ttl:     ttl,
	}
}

// Fetch returns parsed feed rows, serving from the Redis body cache when a
// fresh copy is available. The spreadsheet host caches aggressively on its
// side, so a timestamp query parameter busts its CDN on every real fetch.
func (f *Fetcher) Fetch(ctx context.Context) ([][]string, error) {
	if f.baseURL == "" {
		return nil, errors.New("sheet url not configured")
	}

	if f.cache != nil {
		if body, err := f.cache.Get(ctx, cacheKey).Result(); err == nil {
			return Parse(body), nil
		}
	}

	body, err := f.download(ctx)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, cacheKey, body, f.ttl).Err(); err != nil {
			log.Printf("sheet cache write failed: %v", err)
		}
	}

	return Parse(body), nil
}

func (f *Fetcher) download(ctx context.Context) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("sheet url: %w", err)
	}
	q := u.Query()
	q.Set("cache_bust", strconv.FormatInt(time.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}

	resp, err := f.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("sheet fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sheet fetch: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	body := string(raw)
	body = strings.TrimPrefix(body, "\uFEFF")

	if err := ValidateBody(body); err != nil {
		return "", err
	}
	return body, nil
}

// ValidateBody rejects bodies that cannot be delimited text.
func ValidateBody(body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || strings.HasPrefix(trimmed, "<!DOCTYPE html") || strings.HasPrefix(trimmed, "<html") {
		return ErrInvalidFeedFormat
	}
	return nil
}
