package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"auction_tracker/httputil"
	"auction_tracker/models"
	"auction_tracker/services"
)

// DefaultConcurrency is the detail-fetch pool size when none is configured.
const DefaultConcurrency = 10

const maxDetailBytes = 8 * 1024 * 1024

// ProgressFunc receives the completed count after each listing. total is fixed
// for the whole batch.
type ProgressFunc func(done, total int)

// DetailFetcher returns the plain text of a listing's detail page.
type DetailFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// HTTPDetailFetcher downloads detail pages and extracts the description block,
// or the whole page when the block is missing.
type HTTPDetailFetcher struct {
	client   *http.Client
	selector string
	limiter  *rate.Limiter
}

func NewHTTPDetailFetcher(client *http.Client, selector string, limiter *rate.Limiter) *HTTPDetailFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &HTTPDetailFetcher{client: client, selector: selector, limiter: limiter}
}

func (f *HTTPDetailFetcher) FetchText(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httputil.SetBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDetailBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return ExtractText(body, f.selector)
}

// ExtractText returns the whitespace-normalized text of the first element
// matching selector, falling back to the whole document.
func ExtractText(body []byte, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	if selector != "" {
		if desc := doc.Find(selector).First(); desc.Length() > 0 {
			return spacedText(desc), nil
		}
	}
	return spacedText(doc.Selection), nil
}

// spacedText joins text nodes with single spaces so adjacent block elements
// do not run their words together.
func spacedText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// ShippingWorker classifies a batch of listings by fetching each detail page
// on a bounded pool.
type ShippingWorker struct {
	fetcher    DetailFetcher
	classifier *services.Classifier
	logFunc    LogFunc
	now        func() time.Time
}

func NewShippingWorker(fetcher DetailFetcher, classifier *services.Classifier) *ShippingWorker {
	if classifier == nil {
		classifier = services.DefaultClassifier()
	}
	return &ShippingWorker{
		fetcher:    fetcher,
		classifier: classifier,
		logFunc:    NoOpLogger,
		now:        time.Now,
	}
}

// SetLogger routes per-listing warnings to an operational log.
func (w *ShippingWorker) SetLogger(fn LogFunc) {
	if fn == nil {
		fn = NoOpLogger
	}
	w.logFunc = fn
}

// ClassifyBatch returns one result per listing, in input order. A listing
// whose fetch fails or whose worker panics is reported as unknown; no failure
// reduces the batch. progress is called once per completed listing.
func (w *ShippingWorker) ClassifyBatch(ctx context.Context, listings []models.Listing, concurrency int, progress ProgressFunc) []models.ClassificationResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	total := len(listings)
	results := make([]models.ClassificationResult, total)
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i := range listings {
		g.Go(func() error {
			results[i] = w.classifyOne(ctx, listings[i])
			n := int(done.Add(1))
			if progress != nil {
				progress(n, total)
			}
			return nil
		})
	}
	g.Wait()

	return results
}

func (w *ShippingWorker) classifyOne(ctx context.Context, l models.Listing) (result models.ClassificationResult) {
	result = models.ClassificationResult{
		Listing: l,
		Ships:   models.VerdictUnknown,
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SCAN] Worker panic on %s: %v\n%s", l.ID, r, debug.Stack())
			w.logFunc(models.LogLevelError, "scan", fmt.Sprintf("worker panic on %s: %v", l.ID, r))
			result = models.ClassificationResult{
				Listing:   l,
				Ships:     models.VerdictUnknown,
				ScannedAt: w.now().UTC(),
			}
		}
	}()

	text, err := w.fetcher.FetchText(ctx, l.URL)
	if err != nil {
		log.Printf("[SCAN] Detail fetch failed for %s: %v", l.ID, err)
		w.logFunc(models.LogLevelWarn, "scan", fmt.Sprintf("detail fetch failed for %s: %v", l.ID, err))
	}

	result.Ships, result.Evidence = w.classifier.Classify(text)
	result.ScannedAt = w.now().UTC()
	return result
}
