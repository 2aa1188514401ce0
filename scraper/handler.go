package scraper

import (
	"context"
	"log"
	"net/http"

	"auction_tracker/config"
	"auction_tracker/models"
)

// PageSource is anything that can hand back one page of catalog candidates.
type PageSource interface {
	ID() string
	FetchPage(ctx context.Context, page int, state string) ([]models.Listing, error)
}

// SourceFactory builds a PageSource from a freshly loaded config, tagging
// candidates with the given source prefix.
type SourceFactory func(cfg *config.Config, source string) PageSource

// ClientFunc returns the HTTP client to use under cfg.
type ClientFunc func(cfg *config.Config) *http.Client

// NewSourceFactory returns a factory producing Fetchers whose client comes
// from clients for the config in hand. A nil clients leaves each Fetcher on
// its own default client.
func NewSourceFactory(clients ClientFunc) SourceFactory {
	return func(cfg *config.Config, source string) PageSource {
		var client *http.Client
		if clients != nil {
			client = clients(cfg)
		}
		return NewFetcher(cfg.Catalog, source, client)
	}
}

// collectPages fetches pages 1..maxPages in order. It stops at the first page
// that yields nothing or once limit candidates are in hand (limit <= 0 means
// no limit). lastErr is the error of the final page attempt; an access block
// ends paging immediately.
func collectPages(ctx context.Context, src PageSource, state string, maxPages, limit int) (listings []models.Listing, lastErr error) {
	for page := 1; page <= maxPages; page++ {
		batch, err := src.FetchPage(ctx, page, state)
		lastErr = err
		if err != nil {
			log.Printf("[FETCH] %s page %d (state=%q): %v", src.ID(), page, state, err)
			if IsAccessBlocked(err) {
				return listings, err
			}
		}

		listings = append(listings, batch...)
		if len(batch) == 0 {
			break
		}
		if limit > 0 && len(listings) >= limit {
			break
		}
	}
	return listings, lastErr
}
