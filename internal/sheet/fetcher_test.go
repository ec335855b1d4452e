package sheet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcherDownloadsAndParses(t *testing.T) {
	var gotCacheBust string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCacheBust = r.URL.Query().Get("cache_bust")
		w.Write([]byte("\uFEFFдата,учебная группа\n01.09.2025,БО-101\n"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, nil, time.Minute)
	rows, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotCacheBust == "" {
		t.Fatal("cache_bust parameter not sent")
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// BOM must not survive into the first header cell.
	if rows[0][0] != "дата" {
		t.Fatalf("BOM not stripped: %q", rows[0][0])
	}
}

func TestFetcherRejectsHTMLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<!DOCTYPE html><html><body>redirected to login</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, nil, time.Minute)
	rows, err := f.Fetch(context.Background())
	if !errors.Is(err, ErrInvalidFeedFormat) {
		t.Fatalf("got err %v, want ErrInvalidFeedFormat", err)
	}
	if rows != nil {
		t.Fatalf("expected no rows, got %v", rows)
	}
}

func TestFetcherRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := NewFetcher(srv.URL, nil, time.Minute)
	if _, err := f.Fetch(context.Background()); !errors.Is(err, ErrInvalidFeedFormat) {
		t.Fatalf("got err %v, want ErrInvalidFeedFormat", err)
	}
}

func TestFetcherRequiresURL(t *testing.T) {
	f := NewFetcher("", nil, time.Minute)
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for unconfigured url")
	}
}
