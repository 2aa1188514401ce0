package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"auction_tracker/models"
)

// PostgresStore is the shared listing store used when several trackers write
// to one database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			end_time TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			first_seen TIMESTAMPTZ NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL
		);
		ALTER TABLE listings ADD COLUMN IF NOT EXISTS price DOUBLE PRECISION NOT NULL DEFAULT 0;
		ALTER TABLE listings ADD COLUMN IF NOT EXISTS matched_models TEXT NOT NULL DEFAULT '';
		ALTER TABLE listings ADD COLUMN IF NOT EXISTS bookmarked BOOLEAN NOT NULL DEFAULT FALSE;
		CREATE INDEX IF NOT EXISTS idx_listings_last_seen ON listings(last_seen DESC);
	`)
	return err
}

// =============================================================================
// Listings
// =============================================================================

// UpsertListing reports whether the row was inserted. xmax is zero only for
// rows created by this statement.
func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.Listing, now time.Time) (bool, error) {
	query := `
		INSERT INTO listings (
			id, source, title, url, location, end_time, description,
			first_seen, last_seen, price, matched_models, bookmarked
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $8, $9, $10, FALSE
		)
		ON CONFLICT (id) DO UPDATE SET
			last_seen = EXCLUDED.last_seen,
			price = EXCLUDED.price,
			matched_models = EXCLUDED.matched_models
		RETURNING (xmax = 0)`

	var inserted bool
	err := s.pool.QueryRow(ctx, query,
		l.ID, l.Source, l.Title, l.URL, l.Location, l.EndTime, l.Description,
		now.UTC(), l.Price, l.MatchedModelsString(),
	).Scan(&inserted)
	return inserted, err
}

func (s *PostgresStore) AllListings(ctx context.Context) ([]models.ListingRecord, error) {
	rows, err := s.pool.Query(ctx, pgListingSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ListingRecord
	for rows.Next() {
		rec, err := scanPgListing(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) SetBookmark(ctx context.Context, id string, bookmarked bool) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE listings SET bookmarked = $2 WHERE id = $1`, id, bookmarked)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ToggleBookmark(ctx context.Context, id string) (bookmarked, found bool, err error) {
	err = s.pool.QueryRow(ctx,
		`UPDATE listings SET bookmarked = NOT bookmarked WHERE id = $1 RETURNING bookmarked`, id,
	).Scan(&bookmarked)
	if err == pgx.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return bookmarked, true, nil
}

const pgListingSelect = `
	SELECT id, source, title, url, location, end_time, description,
		first_seen, last_seen, price, matched_models, bookmarked
	FROM listings`

func scanPgListing(row pgx.Row) (*models.ListingRecord, error) {
	var rec models.ListingRecord
	var matched string
	if err := row.Scan(&rec.ID, &rec.Source, &rec.Title, &rec.URL, &rec.Location,
		&rec.EndTime, &rec.Description, &rec.FirstSeen, &rec.LastSeen,
		&rec.Price, &matched, &rec.Bookmarked); err != nil {
		return nil, err
	}
	rec.FirstSeen = rec.FirstSeen.UTC()
	rec.LastSeen = rec.LastSeen.UTC()
	rec.MatchedModels = models.SplitModels(matched)
	return &rec, nil
}
