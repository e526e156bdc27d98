package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"procure/internal"
	"procure/internal/config"
)

// FeedSellerName labels records imported from the public product feed.
const FeedSellerName = "FakeStore Vendor"

// FeedError reports a feed request that came back non-2xx. It is a value the
// caller inspects, not a process fault.
type FeedError struct {
	Status int
	Body   string
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("product feed returned status %d: %s", e.Status, e.Body)
}

// FeedClient talks to the public product feed used to pad the demo catalog
// with extra sellers.
type FeedClient struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

func NewFeedClient(cfg config.Config) *FeedClient {
	return &FeedClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.FeedTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.FeedRateLimitRPS),
	}
}

// Fetch lists feed products, optionally restricted to a category.
func (c *FeedClient) Fetch(ctx context.Context, category string) ([]internal.ProductRecord, error) {
	endpoint := "products"
	if strings.TrimSpace(category) != "" {
		endpoint = "products/category/" + url.PathEscape(strings.TrimSpace(category))
	}

	body, err := c.fetchJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}

	out := make([]internal.ProductRecord, 0, len(raw))
	for _, item := range raw {
		record, err := c.toProductRecord(item)
		if err != nil {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// Import fetches the feed and appends the transformed records to the store.
func (c *FeedClient) Import(ctx context.Context, store *Store, category string) (int, error) {
	records, err := c.Fetch(ctx, category)
	if err != nil {
		return 0, err
	}
	store.Append(records...)
	return len(records), nil
}

func (c *FeedClient) fetchJSON(ctx context.Context, endpoint string) ([]byte, error) {
	baseURL := strings.TrimRight(c.cfg.FeedBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				lastErr = &FeedError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
				continue
			}
			return nil, &FeedError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
		}

		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("product feed request failed")
	}
	return nil, lastErr
}

// toProductRecord maps a feed product onto the catalog shape: title becomes
// the item name, price the unit price; the feed carries no stock or delivery
// estimate, so configured defaults fill those in, and the sku is synthesized
// from the feed id.
func (c *FeedClient) toProductRecord(raw map[string]any) (internal.ProductRecord, error) {
	title, _ := raw["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return internal.ProductRecord{}, errors.New("empty title")
	}

	price, ok := toDecimal(raw["price"])
	if !ok {
		return internal.ProductRecord{}, errors.New("missing price")
	}

	id := "0"
	if n, ok := raw["id"].(json.Number); ok {
		id = n.String()
	}

	return internal.ProductRecord{
		SellerName:   FeedSellerName,
		ItemName:     title,
		SKU:          "feed-" + id,
		UnitPrice:    price,
		Stock:        c.cfg.FeedStockDefault,
		DeliveryDays: c.cfg.FeedDeliveryDays,
	}, nil
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	default:
		return decimal.Decimal{}, false
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
