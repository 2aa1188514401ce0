package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"auction_tracker/config"
	"auction_tracker/models"
	"auction_tracker/notify"
	"auction_tracker/services"
	"auction_tracker/storage"
)

// NotifierFactory builds the dispatcher for one cycle from that cycle's config.
type NotifierFactory func(cfg *config.Config) *notify.Dispatcher

// Orchestrator runs the tracker cycle: poll the catalog, filter, reconcile and
// notify. Cycles are serialized.
type Orchestrator struct {
	loader    config.Loader
	store     *storage.SQLiteStore
	reconcile *services.ReconcileService
	sources   SourceFactory
	notifiers NotifierFactory
	scanner   *Scanner

	mu sync.Mutex
}

func NewOrchestrator(loader config.Loader, store *storage.SQLiteStore, reconcile *services.ReconcileService, sources SourceFactory) *Orchestrator {
	return &Orchestrator{
		loader:    loader,
		store:     store,
		reconcile: reconcile,
		sources:   sources,
		notifiers: func(*config.Config) *notify.Dispatcher { return notify.NewDispatcher() },
	}
}

func (o *Orchestrator) SetNotifiers(f NotifierFactory) {
	if f != nil {
		o.notifiers = f
	}
}

// SetScanner lets scan_now commands reach the shipping scanner.
func (o *Orchestrator) SetScanner(s *Scanner) {
	o.scanner = s
}

func (o *Orchestrator) Reconcile() *services.ReconcileService {
	return o.reconcile
}

// RunCycle performs one poll + reconcile + notify pass and records it as a
// run. Transient failures on a state are logged and skipped; an access block
// aborts the cycle and raises a manual-intervention alert.
func (o *Orchestrator) RunCycle(ctx context.Context) (*models.CycleResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cfg, err := o.loader()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	source := cfg.Catalog.Source
	dispatcher := o.notifiers(cfg)

	run := &models.CycleRun{
		Source:    source,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.store.CreateRun(run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	run.ID = runID
	result := &models.CycleResult{RunID: runID}

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if err := o.store.UpdateRun(run); err != nil {
			log.Printf("[CYCLE] Failed to update run %d: %v", run.ID, err)
		}
	}()

	fail := func(status models.RunStatus, err error) (*models.CycleResult, error) {
		run.Status = status
		run.ErrorMessage = err.Error()
		o.log(run.ID, models.LogLevelError, err.Error(), source)
		dispatcher.Alert(ctx, err.Error(), IsAccessBlocked(err))
		return result, err
	}

	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Polling %s", cfg.Catalog.BaseURL), source)

	states := cfg.Catalog.States
	if len(states) == 0 {
		states = []string{""}
	}

	src := o.sources(cfg, source)
	var candidates []models.Listing
	var lastErr error
	for _, state := range states {
		listings, err := collectPages(ctx, src, state, cfg.Catalog.MaxPages, 0)
		if err != nil {
			if IsAccessBlocked(err) {
				return fail(models.RunStatusBlocked, err)
			}
			lastErr = err
			run.ErrorsCount++
			o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("State %q: %v", state, err), source)
		}
		candidates = append(candidates, listings...)
	}

	candidates = dedupe(candidates)
	run.ListingsFound = len(candidates)
	result.Found = len(candidates)
	if len(candidates) == 0 && lastErr != nil {
		return fail(models.RunStatusFailed, fmt.Errorf("no listings retrieved: %w", lastErr))
	}
	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Fetched %d raw listing(s)", len(candidates)), source)

	matched := services.NewFilter(cfg.Filter).Apply(candidates)
	run.Matched = len(matched)
	result.Matched = len(matched)
	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("%d listing(s) matched the model filter", len(matched)), source)

	merged, err := o.reconcile.Merge(ctx, matched)
	if merged != nil {
		result.New = merged.New
		result.Updated = merged.Updated
		run.ListingsNew = len(merged.New)
		run.Updated = len(merged.Updated)
	}
	if err != nil {
		run.ErrorsCount++
		return fail(models.RunStatusFailed, err)
	}

	dispatcher.NewListings(ctx, result.New)

	run.Status = models.RunStatusCompleted
	o.log(run.ID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d new, %d updated", result.NewCount(), result.UpdatedCount()), source)
	return result, nil
}

// dedupe drops repeated identifiers, keeping the first occurrence. The same
// lot can surface under more than one state query.
func dedupe(listings []models.Listing) []models.Listing {
	seen := make(map[string]bool, len(listings))
	out := listings[:0]
	for _, l := range listings {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out
}

func (o *Orchestrator) HandleCommand(ctx context.Context, cmd *models.Command) error {
	params, err := o.store.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	switch cmd.Command {
	case models.CmdScrapeNow:
		_, err := o.RunCycle(ctx)
		return err
	case models.CmdScanNow:
		if o.scanner == nil {
			return fmt.Errorf("scanner not configured")
		}
		log.Printf("[SCAN] Command scan_now: %s", o.scanner.Start(ctx))
	case models.CmdBookmark:
		if params.ListingID == "" {
			return fmt.Errorf("bookmark: listing_id required")
		}
		value, found, err := o.reconcile.Bookmark(ctx, params.ListingID, params.Bookmarked)
		if err != nil {
			return fmt.Errorf("bookmark %s: %w", params.ListingID, err)
		}
		if !found {
			return fmt.Errorf("bookmark: unknown listing %s", params.ListingID)
		}
		log.Printf("[CMD] Listing %s bookmarked=%v", params.ListingID, value)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}

	return nil
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message, source string) {
	log.Printf("%s %s: %s", level.Tag(), source, message)
	if err := o.store.Log(&runID, level, message, source); err != nil {
		log.Printf("[DB] Failed to write run log: %v", err)
	}
}
