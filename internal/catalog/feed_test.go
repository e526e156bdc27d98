package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"procure/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func feedTestConfig() config.Config {
	cfg, _ := config.Load()
	cfg.FeedBaseURL = "https://feed.test"
	cfg.FeedRateLimitRPS = 1000
	cfg.FeedStockDefault = 50
	cfg.FeedDeliveryDays = 7
	return cfg
}

func TestFeedFetchWithRetry(t *testing.T) {
	attempt := 0
	client := NewFeedClient(feedTestConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/products" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusServiceUnavailable,
					Body:       io.NopCloser(strings.NewReader(`{"error":"down"}`)),
					Header:     make(http.Header),
				}, nil
			}
			body := `[{"id":1,"title":"Mens Cotton Jacket","price":55.99},{"id":2,"title":"","price":10}]`
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	records, err := client.Fetch(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("len=%d, empty-title record should be skipped", len(records))
	}

	got := records[0]
	if got.SellerName != FeedSellerName || got.SKU != "feed-1" {
		t.Fatalf("record=%+v", got)
	}
	if got.Stock != 50 || got.DeliveryDays != 7 {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got.UnitPrice.String() != "55.99" {
		t.Fatalf("price=%s", got.UnitPrice)
	}
}

func TestFeedFetchSurfacesStatusError(t *testing.T) {
	client := NewFeedClient(feedTestConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(strings.NewReader("no such category")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	_, err := client.Fetch(context.Background(), "jewelery")
	var feedErr *FeedError
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected FeedError, got %v", err)
	}
	if feedErr.Status != http.StatusNotFound {
		t.Fatalf("status=%d", feedErr.Status)
	}
}

func TestFeedCategoryPath(t *testing.T) {
	client := NewFeedClient(feedTestConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/products/category/electronics" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`[]`)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	if _, err := client.Fetch(context.Background(), "electronics"); err != nil {
		t.Fatal(err)
	}
}

func TestFeedFetchStopsRetryingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempt := 0
	client := NewFeedClient(feedTestConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			cancel()
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader("down")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	_, err := client.Fetch(ctx, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempt != 1 {
		t.Fatalf("attempts=%d, retry should stop once the context is cancelled", attempt)
	}
}
