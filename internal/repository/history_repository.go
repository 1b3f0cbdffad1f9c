package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/tubegrab/internal/domain"
)

// SQLiteHistoryRepository implements HistoryRepository backed by SQLite.
type SQLiteHistoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteHistoryRepository opens (or creates) the history database at path.
func NewSQLiteHistoryRepository(path string, logger *slog.Logger) (*SQLiteHistoryRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS download_history (
			id TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			title TEXT,
			kind TEXT NOT NULL,
			quality TEXT,
			strategy TEXT NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_created_at ON download_history(created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteHistoryRepository{db: db, logger: logger}, nil
}

// Record appends one download outcome.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, rec *domain.DownloadRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO download_history (id, source_url, title, kind, quality, strategy, bytes, status, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SourceURL, rec.Title, string(rec.Kind), rec.Quality,
		rec.Strategy, rec.Bytes, rec.Status, rec.Detail, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first.
func (r *SQLiteHistoryRepository) Recent(ctx context.Context, limit int) ([]*domain.DownloadRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_url, title, kind, quality, strategy, bytes, status, detail, created_at
		FROM download_history
		ORDER BY created_at DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []*domain.DownloadRecord
	for rows.Next() {
		var rec domain.DownloadRecord
		var kind string
		if err := rows.Scan(&rec.ID, &rec.SourceURL, &rec.Title, &kind, &rec.Quality,
			&rec.Strategy, &rec.Bytes, &rec.Status, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Kind = domain.MediaKind(kind)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Prune deletes records older than the retention window.
// A non-positive retention keeps everything.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM download_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}

	removed, _ := res.RowsAffected()
	if removed > 0 {
		r.logger.Info("pruned download history", "removed", removed, "retention_days", retentionDays)
	}
	return removed, nil
}

// Close closes the underlying database.
func (r *SQLiteHistoryRepository) Close() error {
	return r.db.Close()
}
