// Package storage persists normalized records into a SQL store. A
// postgres:// DSN selects the Postgres driver; anything else is treated as a
// SQLite file path, which keeps local runs and tests dependency-free.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"SubmissionTagger/internal/domain"
	"SubmissionTagger/internal/ports"
)

const schema = `CREATE TABLE IF NOT EXISTS submissions (
	source_id   TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	author      TEXT,
	email       TEXT,
	content     TEXT,
	category    TEXT,
	received_at TEXT,
	tags        TEXT NOT NULL,
	summary     TEXT NOT NULL,
	loaded_at   TEXT NOT NULL
)`

// Repository implements ports.RecordRepository on database/sql.
type Repository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RecordRepository = (*Repository)(nil)

// Open connects to the store described by dsn, verifies connectivity, and
// bootstraps the schema. Connectivity failure here is fatal by definition.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	driver, dataSource, placeholder := resolveDriver(dsn)

	db, err := sql.Open(driver, dataSource)
	if err != nil {
		return nil, &domain.StoreError{Fatal: true, Err: fmt.Errorf("open %s store: %w", driver, err)}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &domain.StoreError{Fatal: true, Err: fmt.Errorf("ping %s store: %w", driver, err)}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, &domain.StoreError{Fatal: true, Err: fmt.Errorf("bootstrap schema: %w", err)}
	}

	return &Repository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}

// NewRepository wires an existing database handle, mainly for tests.
func NewRepository(db *sql.DB, placeholder sq.PlaceholderFormat) *Repository {
	return &Repository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(placeholder)}
}

func resolveDriver(dsn string) (driver, dataSource string, placeholder sq.PlaceholderFormat) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", dsn, sq.Dollar
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return "sqlite", dsn, sq.Question
}

// Upsert writes one record keyed by source id. Re-loading the same id
// overwrites the prior row (last write wins) and refreshes loaded_at; the
// single INSERT keeps each write atomic.
func (r *Repository) Upsert(ctx context.Context, rec domain.NormalizedRecord) error {
	if r.db == nil {
		return &domain.StoreError{Fatal: true, Err: fmt.Errorf("repository is not connected")}
	}

	tags, err := json.Marshal(rec.Metadata.Tags)
	if err != nil {
		return &domain.StoreError{Err: fmt.Errorf("marshal tags: %w", err)}
	}

	query := r.builder.Insert("submissions").
		Columns("source_id", "title", "author", "email", "content", "category", "received_at", "tags", "summary", "loaded_at").
		Values(
			rec.Metadata.SourceID,
			rec.Submission.Title,
			rec.Submission.Author,
			rec.Submission.Email,
			rec.Submission.Content,
			rec.Submission.Category,
			rec.Submission.ReceivedAt.UTC().Format(time.RFC3339),
			string(tags),
			rec.Metadata.Summary,
			rec.LoadedAt.UTC().Format(time.RFC3339),
		).
		Suffix(`ON CONFLICT (source_id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			email = excluded.email,
			content = excluded.content,
			category = excluded.category,
			received_at = excluded.received_at,
			tags = excluded.tags,
			summary = excluded.summary,
			loaded_at = excluded.loaded_at`)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return &domain.StoreError{Err: fmt.Errorf("build upsert: %w", err)}
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return r.classify(ctx, fmt.Errorf("upsert %s: %w", rec.Metadata.SourceID, err))
	}

	return nil
}

// Get reads one stored record by source id.
func (r *Repository) Get(ctx context.Context, sourceID string) (domain.NormalizedRecord, error) {
	query := r.builder.Select("source_id", "title", "author", "email", "content", "category", "received_at", "tags", "summary", "loaded_at").
		From("submissions").
		Where(sq.Eq{"source_id": sourceID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return domain.NormalizedRecord{}, &domain.StoreError{Err: fmt.Errorf("build select: %w", err)}
	}

	var rec domain.NormalizedRecord
	var receivedAt, tags, loadedAt string
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	err = row.Scan(
		&rec.Metadata.SourceID,
		&rec.Submission.Title,
		&rec.Submission.Author,
		&rec.Submission.Email,
		&rec.Submission.Content,
		&rec.Submission.Category,
		&receivedAt,
		&tags,
		&rec.Metadata.Summary,
		&loadedAt,
	)
	if err != nil {
		return domain.NormalizedRecord{}, r.classify(ctx, fmt.Errorf("get %s: %w", sourceID, err))
	}

	rec.Submission.ID = rec.Metadata.SourceID
	if err := json.Unmarshal([]byte(tags), &rec.Metadata.Tags); err != nil {
		return domain.NormalizedRecord{}, &domain.StoreError{Err: fmt.Errorf("unmarshal tags for %s: %w", sourceID, err)}
	}
	rec.Submission.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt)
	rec.LoadedAt, _ = time.Parse(time.RFC3339, loadedAt)

	return rec, nil
}

// Count returns the number of stored rows.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&n); err != nil {
		return 0, r.classify(ctx, fmt.Errorf("count rows: %w", err))
	}
	return n, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// classify decides whether a write failure is a per-record problem or a
// connectivity loss that must abort the run. A failed ping settles it.
func (r *Repository) classify(ctx context.Context, err error) error {
	pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if pingErr := r.db.PingContext(pingCtx); pingErr != nil {
		return &domain.StoreError{Fatal: true, Err: err}
	}
	return &domain.StoreError{Err: err}
}
