package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sqanar/urlguard/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore persists verdicts in a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string, logger logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening verdict database: %w", err)
	}
	// Serialize writers; modernc sqlite handles one writer at a time anyway.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "store"}),
	}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Get returns the cached verdict for urlHash or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, urlHash string) (*CacheRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url_hash, url, header_info, is_malicious, confidence,
		       justification_summary, raw_features, true_label, updated_at
		FROM url_verdicts WHERE url_hash = ?`, urlHash)

	var (
		rec       CacheRecord
		header    sql.NullString
		conf      sql.NullFloat64
		raw       sql.NullString
		trueLabel sql.NullBool
		updatedAt string
	)
	err := row.Scan(&rec.ID, &rec.URLHash, &rec.URL, &header, &rec.IsMalicious,
		&conf, &rec.JustificationSummary, &raw, &trueLabel, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading verdict: %w", err)
	}

	if header.Valid {
		rec.HeaderInfo = &header.String
	}
	if conf.Valid {
		rec.Confidence = &conf.Float64
	}
	if raw.Valid {
		rec.RawFeatures = []byte(raw.String)
	}
	if trueLabel.Valid {
		rec.TrueLabel = &trueLabel.Bool
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rec.UpdatedAt = ts
	}
	return &rec, nil
}

// Put upserts the verdict. A re-analysis of the same URL overwrites every
// pipeline-owned column; id and true_label survive the update.
func (s *SQLiteStore) Put(ctx context.Context, rec *CacheRecord) error {
	if rec == nil {
		return errors.New("store: nil record")
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	var raw any
	if rec.RawFeatures != nil {
		raw = string(rec.RawFeatures)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO url_verdicts
			(id, url_hash, url, header_info, is_malicious, confidence,
			 justification_summary, raw_features, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url_hash) DO UPDATE SET
			url = excluded.url,
			header_info = excluded.header_info,
			is_malicious = excluded.is_malicious,
			confidence = excluded.confidence,
			justification_summary = excluded.justification_summary,
			raw_features = excluded.raw_features,
			updated_at = excluded.updated_at`,
		id, rec.URLHash, rec.URL, rec.HeaderInfo, rec.IsMalicious,
		rec.Confidence, rec.JustificationSummary, raw, updated.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing verdict: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
