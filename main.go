package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/time/rate"

	"auction_tracker/api"
	"auction_tracker/config"
	"auction_tracker/httputil"
	"auction_tracker/logging"
	"auction_tracker/models"
	"auction_tracker/notify"
	"auction_tracker/scheduler"
	"auction_tracker/scraper"
	"auction_tracker/services"
	"auction_tracker/storage"
	"auction_tracker/workers"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run one tracker cycle and exit")
	scanNow   = flag.Bool("scan", false, "Run one shipping scan, print the results and exit")
	noEmail   = flag.Bool("no-email", false, "Suppress email notifications for this run")
	noPush    = flag.Bool("no-push", false, "Suppress push notifications for this run")
	openTabs  = flag.Bool("open", false, "Open the configured search pages in the browser profile and wait")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath, logging.DefaultMaxSize, 3)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting auction_tracker...")
	log.Printf("Catalog: %s (source %q, %d state(s))", cfg.Catalog.BaseURL, cfg.Catalog.Source, len(cfg.Catalog.States))

	clients := httputil.NewClients(cfg)
	ctx := context.Background()

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)
	if last, err := sqliteStore.LastRun(); err == nil && last != nil {
		log.Printf("Last cycle: #%d %s at %s", last.ID, last.Status, last.StartedAt.Format(time.RFC3339))
	}

	var listingStore services.ListingStore = sqliteStore
	if cfg.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		listingStore = pgStore
		log.Printf("Listing store: Postgres %s", maskConnectionString(cfg.DatabaseURL))
	}

	var cache storage.ResultCache = storage.NewFileResultCache(cfg.ResultsPath)
	if cfg.RedisURL != "" {
		redisCache, err := storage.NewRedisResultCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		cache = redisCache
		log.Println("Scan results: Redis")
	}

	notifiers := func(c *config.Config) *notify.Dispatcher {
		return notify.FromConfig(c, clients.Notify, notify.Options{NoEmail: *noEmail, NoPush: *noPush})
	}
	sources := scraper.NewSourceFactory(clients.Search)

	reconcile := services.NewReconcileService(listingStore)
	orchestrator := scraper.NewOrchestrator(config.Load, sqliteStore, reconcile, sources)
	orchestrator.SetNotifiers(notifiers)

	scanner := scraper.NewScanner(config.Load, sources, newWorkerFactory(clients.Detail, cfg, sqliteStore), cache)
	scanner.SetNotifiers(notifiers)
	if cfg.S3.Enabled() {
		archiver, err := storage.NewS3Archiver(ctx, cfg.S3)
		if err != nil {
			log.Printf("Warning: S3 archive disabled: %v", err)
		} else {
			scanner.SetArchiver(archiver)
			log.Printf("Scan archive: s3://%s", cfg.S3.Bucket)
		}
	}
	if err := scanner.LoadCached(ctx); err != nil {
		log.Printf("Warning: could not load cached scan results: %v", err)
	}
	orchestrator.SetScanner(scanner)

	// Handle one-shot commands
	if *openTabs {
		browser := scraper.NewBrowserSession(cfg.Browser)
		defer browser.Close()
		if err := browser.OpenTabs(scraper.TabURLs(cfg)); err != nil {
			log.Fatalf("Failed to open browser: %v", err)
		}
		log.Println("Browser open. Press Ctrl+C to close.")
		waitForSignal()
		return
	}
	if *scrapeNow {
		log.Println("Running tracker cycle...")
		result, err := orchestrator.RunCycle(ctx)
		if err != nil {
			log.Fatalf("Cycle failed: %v", err)
		}
		log.Printf("Cycle complete: %d new, %d updated", result.NewCount(), result.UpdatedCount())
		return
	}
	if *scanNow {
		log.Println("Running shipping scan...")
		results, err := scanner.Run(ctx)
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		printResults(os.Stdout, results)
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, orchestrator, scanner, sqliteStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewServer(orchestrator, scanner, reconcile).NewRouter(),
	}
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	signal.Stop(sigCh)

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	sched.Stop()
	log.Println("Goodbye!")
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

// newWorkerFactory builds a classification pool per scan so phrase lists, the
// detail selector and the detail timeout follow config edits. The rate
// limiter is shared across scans.
func newWorkerFactory(clients scraper.ClientFunc, cfg *config.Config, store *storage.SQLiteStore) scraper.WorkerFactory {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Catalog.RateLimitMS > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.Catalog.RateLimitMS)*time.Millisecond), 1)
	}
	logFunc := workers.SinkLogger(store)
	return func(c *config.Config) *workers.ShippingWorker {
		fetcher := workers.NewHTTPDetailFetcher(clients(c), c.Catalog.Selectors.Detail, limiter)
		w := workers.NewShippingWorker(fetcher, services.NewClassifier(c.Scan.ShipsPhrases, c.Scan.NoShipPhrases))
		w.SetLogger(logFunc)
		return w
	}
}

func printResults(out io.Writer, results []models.ClassificationResult) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tPRICE\tLOCATION\tTITLE\tEVIDENCE\tURL")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t$%.2f\t%s\t%s\t%s\t%s\n",
			r.Ships.Label(), r.Price, r.Location, truncate(r.Title, 50), r.Evidence, r.URL)
	}
	tw.Flush()

	counts := map[models.Verdict]int{}
	for _, r := range results {
		counts[r.Ships]++
	}
	fmt.Fprintf(out, "\n%d scanned: %d ships, %d unknown, %d no ship\n",
		len(results), counts[models.VerdictShips], counts[models.VerdictUnknown], counts[models.VerdictNoShip])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
