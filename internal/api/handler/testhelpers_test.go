package handler

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/iconidentify/tubegrab/internal/config"
	"github.com/iconidentify/tubegrab/internal/domain"
	"github.com/iconidentify/tubegrab/internal/scratch"
	"github.com/iconidentify/tubegrab/internal/service"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubResolver is a test implementation of service.Resolver.
type stubResolver struct {
	locator   *domain.ResolvedLocator
	info      *domain.VideoInfo
	title     string
	err       error
	fileBytes []byte
}

func (s *stubResolver) Resolve(ctx context.Context, url string, kind domain.MediaKind, quality string) (*domain.ResolvedLocator, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.locator, nil
}

func (s *stubResolver) ListFormats(ctx context.Context, url string) (*domain.VideoInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

func (s *stubResolver) DownloadToFile(ctx context.Context, url string, kind domain.MediaKind, quality, dest string) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(dest, s.fileBytes, 0644)
}

func (s *stubResolver) Title(ctx context.Context, url string) string {
	if s.title == "" {
		return "download"
	}
	return s.title
}

// stubStreamer is a test implementation of service.Streamer.
type stubStreamer struct {
	payload []byte
	err     error
}

func (s *stubStreamer) Stream(ctx context.Context, mediaURL string, kind domain.MediaKind, quality string, w io.Writer) (int64, error) {
	n, _ := w.Write(s.payload)
	return int64(n), s.err
}

// stubHistory records outcomes in memory.
type stubHistory struct {
	records []*domain.DownloadRecord
	err     error
}

func (h *stubHistory) Record(ctx context.Context, rec *domain.DownloadRecord) error {
	h.records = append(h.records, rec)
	return nil
}

func (h *stubHistory) Recent(ctx context.Context, limit int) ([]*domain.DownloadRecord, error) {
	if h.err != nil {
		return nil, h.err
	}
	if limit > len(h.records) {
		limit = len(h.records)
	}
	return h.records[:limit], nil
}

func (h *stubHistory) Prune(ctx context.Context, retentionDays int) (int64, error) { return 0, nil }
func (h *stubHistory) Close() error                                                { return nil }

// newMediaService builds a MediaService around the stubs. hist may be nil.
func newMediaService(t *testing.T, res *stubResolver, str *stubStreamer, hist *stubHistory) *service.MediaService {
	t.Helper()
	dir, err := scratch.NewDir(filepath.Join(t.TempDir(), "scratch"), testLogger())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	cfg := config.ScratchConfig{MinFreeBytes: 0}
	if hist == nil {
		return service.NewMediaService(res, str, dir, nil, cfg, testLogger())
	}
	return service.NewMediaService(res, str, dir, hist, cfg, testLogger())
}
