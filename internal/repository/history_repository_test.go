package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/tubegrab/internal/domain"
)

func testHistoryRepo(t *testing.T) *SQLiteHistoryRepository {
	t.Helper()
	repo, err := NewSQLiteHistoryRepository(
		filepath.Join(t.TempDir(), "history.db"),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRecord(id string, at time.Time) *domain.DownloadRecord {
	return &domain.DownloadRecord{
		ID:        id,
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:     "Some Video",
		Kind:      domain.KindAudio,
		Quality:   "320",
		Strategy:  "stream",
		Bytes:     1024,
		Status:    domain.HistoryCompleted,
		CreatedAt: at,
	}
}

func TestHistoryRepository_RecordAndRecent(t *testing.T) {
	repo := testHistoryRepo(t)
	ctx := context.Background()

	now := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		rec := sampleRecord(id, now.Add(time.Duration(i)*time.Minute))
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record(%s): %v", id, err)
		}
	}

	records, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "c" || records[1].ID != "b" {
		t.Errorf("wrong order: got %s, %s", records[0].ID, records[1].ID)
	}
	if records[0].Kind != domain.KindAudio {
		t.Errorf("Kind = %q, want %q", records[0].Kind, domain.KindAudio)
	}
	if records[0].Bytes != 1024 {
		t.Errorf("Bytes = %d, want 1024", records[0].Bytes)
	}
}

func TestHistoryRepository_RecentEmpty(t *testing.T) {
	repo := testHistoryRepo(t)

	records, err := repo.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestHistoryRepository_Prune(t *testing.T) {
	repo := testHistoryRepo(t)
	ctx := context.Background()

	old := sampleRecord("old", time.Now().AddDate(0, 0, -40))
	recent := sampleRecord("recent", time.Now())
	if err := repo.Record(ctx, old); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := repo.Record(ctx, recent); err != nil {
		t.Fatalf("Record: %v", err)
	}

	removed, err := repo.Prune(ctx, 30)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d records, want 1", removed)
	}

	records, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].ID != "recent" {
		t.Errorf("unexpected survivors: %+v", records)
	}
}

func TestHistoryRepository_PruneDisabled(t *testing.T) {
	repo := testHistoryRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, sampleRecord("old", time.Now().AddDate(0, 0, -400))); err != nil {
		t.Fatalf("Record: %v", err)
	}

	removed, err := repo.Prune(ctx, 0)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed %d records, want 0 when retention disabled", removed)
	}
}
