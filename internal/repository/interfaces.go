package repository

import (
	"context"

	"github.com/iconidentify/tubegrab/internal/domain"
)

// HistoryRepository persists download history records.
// Only metadata is stored, never media bytes.
type HistoryRepository interface {
	// Record appends one download outcome.
	Record(ctx context.Context, rec *domain.DownloadRecord) error

	// Recent returns the most recent records, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.DownloadRecord, error)

	// Prune deletes records older than the retention window.
	Prune(ctx context.Context, retentionDays int) (int64, error)

	// Close releases the underlying store.
	Close() error
}
