package scraper

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"

	"auction_tracker/config"
)

// BrowserSession drives a persistent Chromium profile in a visible window.
// Cookies and consent choices made in that profile survive between runs.
type BrowserSession struct {
	cfg         config.BrowserConfig
	pw          *playwright.Playwright
	context     playwright.BrowserContext
	mu          sync.Mutex
	initialized bool
}

func NewBrowserSession(cfg config.BrowserConfig) *BrowserSession {
	return &BrowserSession{cfg: cfg}
}

func (b *BrowserSession) ensureBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	var err error
	b.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	userDataDir, err := filepath.Abs(b.cfg.UserDataDir)
	if err != nil {
		userDataDir = b.cfg.UserDataDir
	}
	b.context, err = b.pw.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(false),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		b.pw.Stop()
		b.pw = nil
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b.initialized = true
	return nil
}

// Close is safe to call on a session that never launched.
func (b *BrowserSession) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.context != nil {
		b.context.Close()
		b.context = nil
	}
	if b.pw != nil {
		b.pw.Stop()
		b.pw = nil
	}
	b.initialized = false
}

// OpenTabs opens every URL in its own tab and leaves them for a person to
// work in. Nothing is read back from the pages.
func (b *BrowserSession) OpenTabs(urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	if err := b.ensureBrowser(); err != nil {
		return err
	}

	for _, u := range urls {
		log.Printf("[BROWSER] Opening: %s", u)
		page, err := b.context.NewPage()
		if err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
		if _, err := page.Goto(u, playwright.PageGotoOptions{
			Timeout:   playwright.Float(float64(b.cfg.TimeoutMS)),
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		}); err != nil {
			log.Printf("[BROWSER] Navigation error (continuing): %v", err)
			continue
		}
		handleConsent(page)
	}
	return nil
}

var consentSelectors = []string{
	"button:has-text('Accept All')",
	"button:has-text('Accept')",
	"button:has-text('I Agree')",
	"button[id*='accept']",
	"button[class*='consent']",
}

func handleConsent(page playwright.Page) {
	for _, selector := range consentSelectors {
		btn := page.Locator(selector).First()
		if visible, _ := btn.IsVisible(); visible {
			log.Printf("[BROWSER] Clicking consent button: %s", selector)
			btn.Click()
			return
		}
	}
}

// TabURLs lists the pages -open shows: the catalog's first search page, then
// the configured extras, without duplicates or blanks.
func TabURLs(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}

	add(NewFetcher(cfg.Catalog, cfg.Catalog.Source, nil).SearchURL(1, ""))
	for _, u := range cfg.Browser.OpenURLs {
		add(u)
	}
	return urls
}
