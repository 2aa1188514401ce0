package httputil

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"auction_tracker/config"
)

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Clients hands out HTTP clients over one shared transport. Search and detail
// clients are built per call so their timeouts follow the config of the cycle
// or scan asking for them; the proxy is fixed at startup.
type Clients struct {
	transport *http.Transport
	Notify    *http.Client // push services
}

func NewClients(cfg *config.Config) *Clients {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy.URL != "" {
		if proxyURL, err := url.Parse(cfg.Proxy.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			log.Printf("Using proxy: %s", proxyURL.Host)
		} else {
			log.Printf("Ignoring invalid PROXY_URL: %v", err)
		}
	}

	return &Clients{
		transport: transport,
		Notify:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Search is the client for catalog search pages.
func (c *Clients) Search(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Catalog.SearchTimeout, Transport: c.transport}
}

// Detail is the client for listing detail pages.
func (c *Clients) Detail(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Scan.DetailTimeout, Transport: c.transport}
}

// SetBrowserHeaders makes requests look like they came from a desktop browser.
func SetBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
