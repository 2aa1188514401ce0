package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"auction_tracker/config"
	"auction_tracker/httputil"
	"auction_tracker/identity"
	"auction_tracker/models"
)

const maxBodyBytes = 16 * 1024 * 1024

// Fetcher retrieves one search page at a time from the catalog. It tries the
// JSON strategy first and falls back to parsing the same body as HTML.
type Fetcher struct {
	cfg     config.CatalogConfig
	source  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewFetcher(cfg config.CatalogConfig, source string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.SearchTimeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimitMS > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.RateLimitMS)*time.Millisecond), 1)
	}
	return &Fetcher{
		cfg:     cfg,
		source:  source,
		client:  client,
		limiter: limiter,
	}
}

func (f *Fetcher) ID() string {
	return f.source
}

// SearchURL builds the request URL for a 1-based page, optionally narrowed to
// one state.
func (f *Fetcher) SearchURL(page int, state string) string {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	for k, v := range f.cfg.ExtraParams {
		q.Set(k, v)
	}
	if f.cfg.Keyword != "" {
		q.Set("keyword", f.cfg.Keyword)
	}
	q.Set("limit", strconv.Itoa(f.cfg.PageSize))
	q.Set("offset", strconv.Itoa((page-1)*f.cfg.PageSize))
	if state != "" {
		q.Set("state", state)
	}
	return strings.TrimRight(f.cfg.BaseURL, "/") + f.cfg.SearchPath + "?" + q.Encode()
}

// FetchPage returns the candidates on one page. A nil slice with a nil error
// is a legitimately empty page; transient failures come back as *FetchError
// and lockouts as *AccessBlockedError.
func (f *Fetcher) FetchPage(ctx context.Context, page int, state string) ([]models.Listing, error) {
	pageURL := f.SearchURL(page, state)

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	httputil.SetBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("read body: %w", err)}
	}

	if marker := f.lockoutMarker(body); marker != "" {
		return nil, &AccessBlockedError{URL: pageURL, Marker: marker}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	listings, err := f.Parse(body, state)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	return listings, nil
}

func (f *Fetcher) lockoutMarker(body []byte) string {
	lower := bytes.ToLower(body)
	for _, marker := range f.cfg.LockoutMarkers {
		m := strings.ToLower(strings.TrimSpace(marker))
		if m != "" && bytes.Contains(lower, []byte(m)) {
			return m
		}
	}
	return ""
}

type payloadShape int

const (
	shapeUnrecognized payloadShape = iota
	shapeEmpty
	shapeItems
)

// Parse turns a search response body into candidates: JSON first, then HTML
// on the same bytes.
func (f *Fetcher) Parse(body []byte, state string) ([]models.Listing, error) {
	items, shape := decodeItems(body)
	if shape == shapeItems {
		if listings := f.fromJSON(items, state); len(listings) > 0 {
			return listings, nil
		}
	}

	if shape != shapeUnrecognized {
		log.Printf("[FETCH] %s: JSON payload had no usable items; trying HTML parse", f.source)
	}
	listings, containers, err := f.parseHTML(body, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if containers > 0 {
		return listings, nil
	}
	// A recognized JSON page whose entries were all dropped is an empty page.
	if shape != shapeUnrecognized {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: no JSON items and no HTML listing containers matched (selectors may be stale)", ErrMalformedPayload)
}

func decodeItems(body []byte) ([]map[string]any, payloadShape) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, shapeUnrecognized
	}

	var raw []any
	shape := shapeUnrecognized
	switch v := payload.(type) {
	case []any:
		raw, shape = v, shapeEmpty
	case map[string]any:
		for _, key := range itemKeys {
			arr, ok := v[key].([]any)
			if !ok {
				continue
			}
			shape = shapeEmpty
			if len(arr) > 0 {
				raw = arr
				break
			}
		}
	}

	var items []map[string]any
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			items = append(items, m)
		}
	}
	if len(items) > 0 {
		shape = shapeItems
	}
	return items, shape
}

func (f *Fetcher) fromJSON(items []map[string]any, state string) []models.Listing {
	var listings []models.Listing
	for _, item := range items {
		id := firstString(item, jsonFields.ID)
		title := firstString(item, jsonFields.Title)
		if id == "" || title == "" {
			continue
		}

		href := identity.ResolveURL(f.cfg.BaseURL, firstString(item, jsonFields.URL))
		if href == "" && f.cfg.DetailPath != "" {
			href = strings.TrimRight(f.cfg.BaseURL, "/") + strings.ReplaceAll(f.cfg.DetailPath, "{id}", url.PathEscape(id))
		}
		if href == "" {
			continue
		}

		location := firstString(item, jsonFields.Location)
		if location == "" {
			location = state
		}
		description := firstString(item, jsonFields.Description)
		if description == "" {
			description = title
		}

		listings = append(listings, models.Listing{
			ID:          identity.Prefixed(f.source, id),
			Source:      f.source,
			Title:       title,
			URL:         href,
			Location:    location,
			EndTime:     firstString(item, jsonFields.EndTime),
			Price:       firstPrice(item, jsonFields.Price),
			Description: description,
		})
	}
	return listings
}

func firstString(item map[string]any, keys []string) string {
	for _, k := range keys {
		if s := scalarString(item[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstPrice(item map[string]any, keys []string) float64 {
	for _, k := range keys {
		switch v := item[k].(type) {
		case json.Number:
			if p, err := v.Float64(); err == nil && p > 0 {
				return p
			}
		case string:
			if p := ParsePrice(v); p > 0 {
				return p
			}
		}
	}
	return 0
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
