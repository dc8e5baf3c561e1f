// Package store persists the merchant-category cache shared by all users.
// Merchant classification is not treated as user-sensitive data, so one
// record per normalized name serves the whole user base.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/helpcomp/merchant-category-resolver/resolver"
	_ "modernc.org/sqlite"
)

// defaultHitConfidence backfills rows written before the confidence column
// existed.
const defaultHitConfidence = 0.8

// Record is one persisted merchant categorization.
type Record struct {
	NormalizedName string
	RawNameSample  string
	CategoryName   string
	CategoryID     string
	Confidence     float64
	Source         string
	HitCount       int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (creating if needed) the SQLite database at dbPath and applies
// migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one pooled connection avoids
	// SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an existing handle. Used by tests and by callers that
// manage the connection themselves.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Lookup fetches the shared record for a normalized key. A miss returns
// (nil, nil); a hit is reported with Source "cache".
func (s *Store) Lookup(ctx context.Context, key string) (*resolver.Resolution, error) {
	var (
		categoryName string
		categoryID   sql.NullString
		confidence   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT category_name, category_id, confidence
		 FROM merchant_categories
		 WHERE normalized_name = ?`, key,
	).Scan(&categoryName, &categoryID, &confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup merchant category: %w", err)
	}

	res := &resolver.Resolution{
		CategoryName: categoryName,
		CategoryID:   categoryID.String,
		Confidence:   defaultHitConfidence,
		Source:       resolver.SourceCache,
	}
	if confidence.Valid {
		res.Confidence = confidence.Float64
	}
	return res, nil
}

// Touch bumps the hit counter and freshness stamp of a cached record.
func (s *Store) Touch(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE merchant_categories
		 SET hit_count = hit_count + 1, updated_at = ?
		 WHERE normalized_name = ?`,
		s.now().UTC(), key,
	)
	if err != nil {
		return fmt.Errorf("touch merchant category: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the categorization for a normalized key. The
// conflict clause makes the write atomic per key: concurrent resolutions of
// the same merchant converge on a single record, last write wins, and the
// hit counter survives re-resolution.
func (s *Store) Upsert(ctx context.Context, rawName, key string, res resolver.Resolution) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO merchant_categories
		 (normalized_name, raw_name_sample, category_name, category_id, confidence, source, hit_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT(normalized_name) DO UPDATE SET
		   category_name = excluded.category_name,
		   category_id = excluded.category_id,
		   confidence = excluded.confidence,
		   source = excluded.source,
		   updated_at = excluded.updated_at`,
		key, rawName, res.CategoryName, nullable(res.CategoryID),
		res.Confidence, string(res.Source), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert merchant category: %w", err)
	}
	return nil
}

// Stats reports the cache size and accumulated hits for the exporter.
func (s *Store) Stats(ctx context.Context) (merchants, hits int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM merchant_categories`,
	).Scan(&merchants, &hits)
	if err != nil {
		return 0, 0, fmt.Errorf("merchant category stats: %w", err)
	}
	return merchants, hits, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
