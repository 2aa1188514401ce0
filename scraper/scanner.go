package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"auction_tracker/config"
	"auction_tracker/models"
	"auction_tracker/storage"
	"auction_tracker/workers"
)

// WorkerFactory builds the classification pool for one scan.
type WorkerFactory func(cfg *config.Config) *workers.ShippingWorker

// Archiver stores a copy of a finished scan somewhere durable.
type Archiver interface {
	ArchiveScan(ctx context.Context, scanID string, results []models.ClassificationResult) (string, error)
}

// Scanner runs shipping scans: page acquisition, capping, classification and
// ordering. At most one scan runs at a time per Scanner.
type Scanner struct {
	loader    config.Loader
	sources   SourceFactory
	newWorker WorkerFactory
	cache     storage.ResultCache
	archiver  Archiver
	notifiers NotifierFactory

	mu      sync.Mutex
	state   models.ScanState
	results []models.ClassificationResult
}

func NewScanner(loader config.Loader, sources SourceFactory, newWorker WorkerFactory, cache storage.ResultCache) *Scanner {
	return &Scanner{
		loader:    loader,
		sources:   sources,
		newWorker: newWorker,
		cache:     cache,
	}
}

func (s *Scanner) SetArchiver(a Archiver) {
	s.archiver = a
}

// SetNotifiers enables failure alerts for scans.
func (s *Scanner) SetNotifiers(f NotifierFactory) {
	s.notifiers = f
}

// LoadCached restores the last saved result set so status reports a cached
// count before the first scan of this process.
func (s *Scanner) LoadCached(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	results, err := s.cache.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	return nil
}

// Start launches a scan in the background and returns immediately. A second
// call while one is running is refused, not queued.
func (s *Scanner) Start(ctx context.Context) models.ScanStartResult {
	if !s.begin() {
		return models.ScanAlreadyRunning
	}
	go s.execute(context.WithoutCancel(ctx))
	return models.ScanStarted
}

// Run performs a scan synchronously. It returns ErrScanInProgress when a scan
// is already active.
func (s *Scanner) Run(ctx context.Context) ([]models.ClassificationResult, error) {
	if !s.begin() {
		return nil, ErrScanInProgress
	}
	return s.execute(ctx)
}

func (s *Scanner) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Running {
		return false
	}
	now := time.Now().UTC()
	s.state = models.ScanState{
		ID:      uuid.NewString(),
		Running: true,
		Started: &now,
	}
	return true
}

func (s *Scanner) Status() models.ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ScanStatus{ScanState: s.state, Cached: len(s.results)}
}

// Results returns a copy of the last successful result set.
func (s *Scanner) Results() []models.ClassificationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ClassificationResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Scanner) execute(ctx context.Context) (results []models.ClassificationResult, err error) {
	var cfg *config.Config
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan panicked: %v", r)
			results = nil
		}
		s.finish(err)
		if err != nil {
			log.Printf("[SCAN] Failed: %v", err)
			if s.notifiers != nil && cfg != nil {
				s.notifiers(cfg).Alert(ctx, "Shipping scan failed: "+err.Error(), IsAccessBlocked(err))
			}
		}
	}()

	cfg, err = s.loader()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	scanID := s.Status().ID

	src := s.sources(cfg, cfg.Scan.Source)
	listings, lastErr := collectPages(ctx, src, "", cfg.Scan.MaxPages, cfg.Scan.MaxResults)
	if len(listings) > cfg.Scan.MaxResults {
		listings = listings[:cfg.Scan.MaxResults]
	}
	log.Printf("[SCAN] %d listings to process", len(listings))

	if len(listings) == 0 && lastErr != nil {
		return nil, lastErr
	}
	if lastErr != nil {
		log.Printf("[SCAN] Continuing with %d listings after search error: %v", len(listings), lastErr)
	}

	s.mu.Lock()
	s.state.Total = len(listings)
	if lastErr != nil {
		s.state.Warning = lastErr.Error()
		s.state.Blocked = IsAccessBlocked(lastErr)
	}
	s.mu.Unlock()

	results = s.newWorker(cfg).ClassifyBatch(ctx, listings, cfg.Scan.Workers, s.progress)
	models.SortByVerdict(results)

	if s.cache != nil {
		if err := s.cache.Save(ctx, results); err != nil {
			log.Printf("[SCAN] Failed to save results: %v", err)
		}
	}
	if s.archiver != nil {
		if key, err := s.archiver.ArchiveScan(ctx, scanID, results); err != nil {
			log.Printf("[SCAN] Failed to archive scan %s: %v", scanID, err)
		} else {
			log.Printf("[SCAN] Archived to %s", key)
		}
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()

	log.Printf("[SCAN] Done: %d results", len(results))
	return results, nil
}

// progress keeps done monotonic even if completions report out of order.
func (s *Scanner) progress(done, total int) {
	s.mu.Lock()
	if done > s.state.Done {
		s.state.Done = done
	}
	s.mu.Unlock()
}

func (s *Scanner) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.state.Running = false
	s.state.Finished = &now
	if err != nil {
		s.state.Error = err.Error()
		s.state.Blocked = IsAccessBlocked(err)
	}
}
