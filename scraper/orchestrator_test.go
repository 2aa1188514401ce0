package scraper

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction_tracker/config"
	"auction_tracker/models"
	"auction_tracker/notify"
	"auction_tracker/services"
	"auction_tracker/storage"
)

type alertCall struct {
	message      string
	intervention bool
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   [][]models.Listing
	alerts []alertCall
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) NewListings(ctx context.Context, listings []models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, listings)
	return nil
}

func (r *recordingNotifier) Alert(ctx context.Context, message string, intervention bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alertCall{message: message, intervention: intervention})
	return nil
}

type cycleFixture struct {
	orch     *Orchestrator
	store    *storage.SQLiteStore
	notifier *recordingNotifier
}

func newCycleFixture(t *testing.T, src *fakeSource) *cycleFixture {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Catalog.States = []string{"TX", "OH"}
	cfg.Filter.Models = []string{"t480", "x1"}

	rec := &recordingNotifier{}
	sources := func(*config.Config, string) PageSource { return src }
	orch := NewOrchestrator(config.Static(cfg), store, services.NewReconcileService(store), sources)
	orch.SetNotifiers(func(*config.Config) *notify.Dispatcher { return notify.NewDispatcher(rec) })

	return &cycleFixture{orch: orch, store: store, notifier: rec}
}

func catalogPages() map[string][]pageResult {
	t480 := models.Listing{ID: "govdeals-1", Source: "govdeals", Title: "Lenovo ThinkPad T480", URL: "https://example.test/1", Price: 150, Location: "Austin, TX"}
	dell := models.Listing{ID: "govdeals-2", Source: "govdeals", Title: "Dell Latitude 5490", URL: "https://example.test/2", Price: 80}
	pricey := models.Listing{ID: "govdeals-3", Source: "govdeals", Title: "Lenovo ThinkPad X1 Carbon", URL: "https://example.test/3", Price: 20000}
	return map[string][]pageResult{
		"TX": {{listings: []models.Listing{t480, dell}}},
		"OH": {{listings: []models.Listing{t480, pricey}}},
	}
}

func TestRunCycle_NewThenUpdated(t *testing.T) {
	fx := newCycleFixture(t, &fakeSource{id: "govdeals", pages: catalogPages()})
	ctx := context.Background()

	result, err := fx.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Found, "duplicate across states counted once")
	assert.Equal(t, 1, result.Matched)
	require.Equal(t, 1, result.NewCount())
	assert.Equal(t, 0, result.UpdatedCount())
	assert.Equal(t, "govdeals-1", result.New[0].ID)
	assert.Equal(t, []string{"t480"}, result.New[0].MatchedModels)

	run, err := fx.store.GetRun(result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.ListingsNew)
	assert.NotNil(t, run.FinishedAt)

	logs, err := fx.store.GetRunLogs(result.RunID)
	require.NoError(t, err)
	assert.NotEmpty(t, logs)

	second, err := fx.orch.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewCount())
	assert.Equal(t, 1, second.UpdatedCount())

	require.Len(t, fx.notifier.sent, 1, "no notification when nothing is new")
	assert.Len(t, fx.notifier.sent[0], 1)
	assert.Empty(t, fx.notifier.alerts)

	records, err := fx.store.AllListings(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRunCycle_AccessBlockedAlertsForIntervention(t *testing.T) {
	pages := catalogPages()
	pages["TX"] = []pageResult{{err: &AccessBlockedError{URL: "https://example.test", Marker: "captcha"}}}
	src := &fakeSource{id: "govdeals", pages: pages}
	fx := newCycleFixture(t, src)

	result, err := fx.orch.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, IsAccessBlocked(err))
	assert.Equal(t, []string{"TX#1"}, src.Calls(), "remaining states are skipped")

	run, err := fx.store.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusBlocked, run.Status)
	assert.Contains(t, run.ErrorMessage, "captcha")

	require.Len(t, fx.notifier.alerts, 1)
	assert.True(t, fx.notifier.alerts[0].intervention)
	assert.Empty(t, fx.notifier.sent)
}

func TestRunCycle_TransientFailureOnEveryStateFails(t *testing.T) {
	src := &fakeSource{id: "govdeals", pages: map[string][]pageResult{
		"TX": {{err: &FetchError{URL: "https://example.test", StatusCode: 503}}},
		"OH": {{err: &FetchError{URL: "https://example.test", StatusCode: 503}}},
	}}
	fx := newCycleFixture(t, src)

	result, err := fx.orch.RunCycle(context.Background())
	require.Error(t, err)
	assert.False(t, IsAccessBlocked(err))

	run, err := fx.store.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, 2, run.ErrorsCount)

	require.Len(t, fx.notifier.alerts, 1)
	assert.False(t, fx.notifier.alerts[0].intervention)
}

func TestRunCycle_TransientFailureOnOneStateContinues(t *testing.T) {
	pages := catalogPages()
	pages["OH"] = []pageResult{{err: &FetchError{URL: "https://example.test", StatusCode: 503}}}
	fx := newCycleFixture(t, &fakeSource{id: "govdeals", pages: pages})

	result, err := fx.orch.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewCount())

	run, err := fx.store.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.ErrorsCount)
}

func TestHandleCommand_Bookmark(t *testing.T) {
	fx := newCycleFixture(t, &fakeSource{id: "govdeals", pages: catalogPages()})
	ctx := context.Background()
	_, err := fx.orch.RunCycle(ctx)
	require.NoError(t, err)

	toggle := &models.Command{Command: models.CmdBookmark, Params: json.RawMessage(`{"listing_id": "govdeals-1"}`)}
	require.NoError(t, fx.orch.HandleCommand(ctx, toggle))

	rec, err := fx.store.GetListing(ctx, "govdeals-1")
	require.NoError(t, err)
	assert.True(t, rec.Bookmarked)

	require.NoError(t, fx.orch.HandleCommand(ctx, toggle))
	rec, err = fx.store.GetListing(ctx, "govdeals-1")
	require.NoError(t, err)
	assert.False(t, rec.Bookmarked)

	set := &models.Command{Command: models.CmdBookmark, Params: json.RawMessage(`{"listing_id": "govdeals-1", "bookmarked": true}`)}
	require.NoError(t, fx.orch.HandleCommand(ctx, set))
	require.NoError(t, fx.orch.HandleCommand(ctx, set))
	rec, err = fx.store.GetListing(ctx, "govdeals-1")
	require.NoError(t, err)
	assert.True(t, rec.Bookmarked)

	missing := &models.Command{Command: models.CmdBookmark, Params: json.RawMessage(`{"listing_id": "govdeals-404"}`)}
	assert.Error(t, fx.orch.HandleCommand(ctx, missing))
}

func TestHandleCommand_ScanWithoutScanner(t *testing.T) {
	fx := newCycleFixture(t, &fakeSource{id: "govdeals"})
	err := fx.orch.HandleCommand(context.Background(), &models.Command{Command: models.CmdScanNow})
	assert.Error(t, err)
}
