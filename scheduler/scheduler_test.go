package scheduler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction_tracker/config"
	"auction_tracker/models"
	"auction_tracker/scraper"
	"auction_tracker/services"
	"auction_tracker/storage"
)

type onePageSource struct {
	listings []models.Listing
}

func (s *onePageSource) ID() string { return "govdeals" }

func (s *onePageSource) FetchPage(ctx context.Context, page int, state string) ([]models.Listing, error) {
	if page > 1 {
		return nil, nil
	}
	return s.listings, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Filter.Models = []string{"t480"}
	src := &onePageSource{listings: []models.Listing{
		{ID: "govdeals-1", Title: "Lenovo ThinkPad T480", URL: "https://example.test/1", Price: 120},
	}}
	sources := func(*config.Config, string) scraper.PageSource { return src }
	orch := scraper.NewOrchestrator(config.Static(cfg), store, services.NewReconcileService(store), sources)
	return New(cfg, orch, nil, store), store
}

func TestProcessCommands_DrainsQueue(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	_, err := store.EnqueueCommand(models.CmdScrapeNow, nil)
	require.NoError(t, err)
	yes := true
	_, err = store.EnqueueCommand(models.CmdBookmark, &models.CommandParams{ListingID: "govdeals-1", Bookmarked: &yes})
	require.NoError(t, err)
	_, err = store.EnqueueCommand(models.CmdBookmark, &models.CommandParams{ListingID: "govdeals-missing"})
	require.NoError(t, err)
	_, err = store.EnqueueCommand(models.CmdScanNow, nil)
	require.NoError(t, err)

	s.processCommands(ctx)

	pending, err := store.GetPendingCommands()
	require.NoError(t, err)
	assert.Empty(t, pending, "failed commands are marked processed too")

	run, err := store.LastRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.ListingsNew)

	rec, err := store.GetListing(ctx, "govdeals-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Bookmarked)
}

func TestStart_InvalidCron(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.cfg.Schedule.Cron = "not a cron"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.Error(t, s.Start(ctx))
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	s.Stop()
}
