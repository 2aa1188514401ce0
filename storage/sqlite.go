package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"auction_tracker/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// listingColumns are added to an existing listings table when missing. Older
// databases predate them; new columns must be nullable or carry a default.
var listingColumns = []struct {
	name string
	ddl  string
}{
	{"price", "REAL DEFAULT 0"},
	{"matched_models", "TEXT DEFAULT ''"},
	{"bookmarked", "INTEGER DEFAULT 0"},
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		source TEXT,
		title TEXT,
		url TEXT,
		location TEXT,
		end_time TEXT,
		description TEXT,
		first_seen TEXT,
		last_seen TEXT
	);

	CREATE TABLE IF NOT EXISTS cycle_runs (
		id INTEGER PRIMARY KEY,
		source TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		listings_found INTEGER,
		matched INTEGER,
		listings_new INTEGER,
		updated INTEGER,
		errors_count INTEGER,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		source TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON run_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON cycle_runs(status, started_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.addMissingColumns("listings")
}

func (s *SQLiteStore) addMissingColumns(table string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, col := range listingColumns {
		if existing[col.name] {
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.name, col.ddl)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, col.name, err)
		}
	}
	return nil
}

// UpsertListing inserts a new record or refreshes an existing one inside a
// single transaction. Existing records keep first_seen and bookmarked.
func (s *SQLiteStore) UpsertListing(ctx context.Context, l *models.Listing, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE id = ?`, l.ID).Scan(&exists)
	inserted := err == sql.ErrNoRows
	if err != nil && !inserted {
		return false, err
	}

	ts := models.Timestamp(now)
	if inserted {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO listings (id, source, title, url, location, end_time, description,
				first_seen, last_seen, price, matched_models, bookmarked)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			l.ID, l.Source, l.Title, l.URL, l.Location, l.EndTime, l.Description,
			ts, ts, l.Price, l.MatchedModelsString())
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE listings SET last_seen = ?, price = ?, matched_models = ?
			WHERE id = ?`,
			ts, l.Price, l.MatchedModelsString(), l.ID)
	}
	if err != nil {
		return false, err
	}
	return inserted, tx.Commit()
}

func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*models.ListingRecord, error) {
	row := s.db.QueryRowContext(ctx, listingSelect+` WHERE id = ?`, id)
	rec, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) AllListings(ctx context.Context) ([]models.ListingRecord, error) {
	rows, err := s.db.QueryContext(ctx, listingSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ListingRecord
	for rows.Next() {
		rec, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// SetBookmark sets the flag explicitly. It reports false when no record has
// that id.
func (s *SQLiteStore) SetBookmark(ctx context.Context, id string, bookmarked bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE listings SET bookmarked = ? WHERE id = ?`, bookmarked, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// ToggleBookmark flips the flag and returns the new value. found is false when
// no record has that id.
func (s *SQLiteStore) ToggleBookmark(ctx context.Context, id string) (bookmarked, found bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, err
	}
	defer tx.Rollback()

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT bookmarked FROM listings WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}

	bookmarked = current.Int64 == 0
	if _, err := tx.ExecContext(ctx, `UPDATE listings SET bookmarked = ? WHERE id = ?`, bookmarked, id); err != nil {
		return false, false, err
	}
	return bookmarked, true, tx.Commit()
}

const listingSelect = `
	SELECT id, COALESCE(source, ''), COALESCE(title, ''), COALESCE(url, ''), COALESCE(location, ''),
		COALESCE(end_time, ''), COALESCE(description, ''), COALESCE(first_seen, ''), COALESCE(last_seen, ''),
		COALESCE(price, 0), COALESCE(matched_models, ''), COALESCE(bookmarked, 0)
	FROM listings`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.ListingRecord, error) {
	var rec models.ListingRecord
	var firstSeen, lastSeen, matched string
	var bookmarked int64
	if err := row.Scan(&rec.ID, &rec.Source, &rec.Title, &rec.URL, &rec.Location,
		&rec.EndTime, &rec.Description, &firstSeen, &lastSeen,
		&rec.Price, &matched, &bookmarked); err != nil {
		return nil, err
	}

	var err error
	if rec.FirstSeen, err = models.ParseTimestamp(firstSeen); err != nil {
		return nil, fmt.Errorf("listing %s first_seen: %w", rec.ID, err)
	}
	if rec.LastSeen, err = models.ParseTimestamp(lastSeen); err != nil {
		return nil, fmt.Errorf("listing %s last_seen: %w", rec.ID, err)
	}
	rec.MatchedModels = models.SplitModels(matched)
	rec.Bookmarked = bookmarked != 0
	return &rec, nil
}

func (s *SQLiteStore) CreateRun(run *models.CycleRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO cycle_runs (source, started_at, status, listings_found, matched,
			listings_new, updated, errors_count, error_message)
		VALUES (?, ?, ?, 0, 0, 0, 0, 0, '')`,
		run.Source, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.CycleRun) error {
	_, err := s.db.Exec(`
		UPDATE cycle_runs SET finished_at = ?, status = ?, listings_found = ?, matched = ?,
			listings_new = ?, updated = ?, errors_count = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsFound, run.Matched,
		run.ListingsNew, run.Updated, run.ErrorsCount, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.CycleRun, error) {
	row := s.db.QueryRow(`
		SELECT id, source, started_at, finished_at, status, listings_found, matched,
			listings_new, updated, errors_count, COALESCE(error_message, '')
		FROM cycle_runs WHERE id = ?`, id)

	var run models.CycleRun
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.Source, &run.StartedAt, &finished, &run.Status,
		&run.ListingsFound, &run.Matched, &run.ListingsNew, &run.Updated,
		&run.ErrorsCount, &run.ErrorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// LastRun returns the most recent cycle, or nil when none has run.
func (s *SQLiteStore) LastRun() (*models.CycleRun, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM cycle_runs ORDER BY started_at DESC, id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.GetRun(id)
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, source string) error {
	_, err := s.db.Exec(`
		INSERT INTO run_logs (run_id, timestamp, level, message, source)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, source)
	return err
}

func (s *SQLiteStore) GetRunLogs(runID int64) ([]models.RunLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, source
		FROM run_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.RunLog
	for rows.Next() {
		var l models.RunLog
		var level string
		if err := rows.Scan(&l.ID, &l.RunID, &l.At, &level, &l.Message, &l.Source); err != nil {
			return nil, err
		}
		l.Level = models.ParseLogLevel(level)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) (int64, error) {
	var raw any
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return 0, err
		}
		raw = string(data)
	}
	result, err := s.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, raw, time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}
