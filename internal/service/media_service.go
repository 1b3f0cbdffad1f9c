package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/tubegrab/internal/config"
	"github.com/iconidentify/tubegrab/internal/domain"
	"github.com/iconidentify/tubegrab/internal/repository"
	"github.com/iconidentify/tubegrab/internal/scratch"
)

// Resolver turns a source page URL into direct media locators and metadata.
type Resolver interface {
	Resolve(ctx context.Context, url string, kind domain.MediaKind, quality string) (*domain.ResolvedLocator, error)
	ListFormats(ctx context.Context, url string) (*domain.VideoInfo, error)
	DownloadToFile(ctx context.Context, url string, kind domain.MediaKind, quality, dest string) error
	Title(ctx context.Context, url string) string
}

// Streamer transcodes a direct media URL into the target container,
// writing output as it is produced.
type Streamer interface {
	Stream(ctx context.Context, mediaURL string, kind domain.MediaKind, quality string, w io.Writer) (int64, error)
}

// MediaService orchestrates the download workflow: resolve, transcode,
// and the on-disk fallback pipeline.
type MediaService struct {
	extractor  Resolver
	transcoder Streamer
	scratch    *scratch.Dir
	history    repository.HistoryRepository // nil when history is disabled
	scratchCfg config.ScratchConfig
	logger     *slog.Logger
}

// NewMediaService creates a new media service. history may be nil.
func NewMediaService(
	ex Resolver,
	tc Streamer,
	dir *scratch.Dir,
	history repository.HistoryRepository,
	scratchCfg config.ScratchConfig,
	logger *slog.Logger,
) *MediaService {
	return &MediaService{
		extractor:  ex,
		transcoder: tc,
		scratch:    dir,
		history:    history,
		scratchCfg: scratchCfg,
		logger:     logger,
	}
}

// Info fetches metadata and the available quality tiers for a source URL.
func (s *MediaService) Info(ctx context.Context, url string) (*domain.VideoInfo, error) {
	if url == "" {
		return nil, domain.ErrMissingURL
	}
	if !domain.ValidSourceURL(url) {
		return nil, domain.ErrInvalidSourceURL
	}
	return s.extractor.ListFormats(ctx, url)
}

// StreamPlan holds everything needed to serve a streaming download:
// the resolved media URL and the attachment filename.
type StreamPlan struct {
	Locator  *domain.ResolvedLocator
	Filename string
}

// PrepareStream validates the request and resolves the direct media URL.
// The returned locator expires quickly and must be consumed immediately.
func (s *MediaService) PrepareStream(ctx context.Context, req domain.MediaRequest) (*StreamPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	loc, err := s.extractor.Resolve(ctx, req.SourceURL, req.Kind, req.Quality)
	if err != nil {
		return nil, err
	}

	return &StreamPlan{
		Locator:  loc,
		Filename: domain.SanitizeFilename(loc.Title, "download") + "." + req.Kind.Ext(),
	}, nil
}

// StreamTranscode pipes the resolved media through the transcoder into w.
// It returns the number of bytes written even when the transcode fails
// partway, so callers can tell a clean response from a truncated one.
func (s *MediaService) StreamTranscode(ctx context.Context, req domain.MediaRequest, mediaURL string, w io.Writer) (int64, error) {
	return s.transcoder.Stream(ctx, mediaURL, req.Kind, req.Quality, w)
}

// ScratchFile is a completed download sitting in the scratch directory.
// Close removes the file from disk.
type ScratchFile struct {
	f     *os.File
	path  string
	dir   *scratch.Dir
	Title string
	Size  int64
}

func (sf *ScratchFile) Read(p []byte) (int, error) { return sf.f.Read(p) }

// Close closes and deletes the underlying scratch file.
func (sf *ScratchFile) Close() error {
	err := sf.f.Close()
	sf.dir.Remove(sf.path)
	return err
}

// DownloadToScratch runs the fallback pipeline: the extractor writes the
// finished output to a scratch file, which the caller streams and then
// closes to delete. Used when direct URL streaming is not viable.
func (s *MediaService) DownloadToScratch(ctx context.Context, req domain.MediaRequest) (*ScratchFile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if free := freeDiskSpace(s.scratch.Path()); free < s.scratchCfg.MinFreeBytes {
		s.logger.Warn("scratch space low, refusing download",
			"free_bytes", free, "min_free_bytes", s.scratchCfg.MinFreeBytes)
		return nil, domain.ErrScratchFull
	}

	title := s.extractor.Title(ctx, req.SourceURL)

	dest := s.scratch.UniquePath(req.Kind.Ext())
	if err := s.extractor.DownloadToFile(ctx, req.SourceURL, req.Kind, req.Quality, dest); err != nil {
		s.scratch.Remove(dest)
		return nil, err
	}

	f, err := os.Open(dest)
	if err != nil {
		s.scratch.Remove(dest)
		return nil, domain.NewPipelineError("scratch", "open downloaded file", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		s.scratch.Remove(dest)
		return nil, domain.NewPipelineError("scratch", "stat downloaded file", err)
	}

	return &ScratchFile{
		f:     f,
		path:  dest,
		dir:   s.scratch,
		Title: title,
		Size:  info.Size(),
	}, nil
}

// History returns recent download records, newest first.
func (s *MediaService) History(ctx context.Context, limit int) ([]*domain.DownloadRecord, error) {
	if s.history == nil {
		return nil, domain.ErrHistoryDisabled
	}
	return s.history.Recent(ctx, limit)
}

// RecordOutcome writes one history entry for a finished download attempt.
// It is best-effort: failures are logged, never surfaced, and it is a
// no-op when history is disabled.
func (s *MediaService) RecordOutcome(ctx context.Context, req domain.MediaRequest, strategy, title string, bytes int64, outcome error) {
	if s.history == nil {
		return
	}

	rec := &domain.DownloadRecord{
		ID:        "dl_" + uuid.New().String()[:8],
		SourceURL: req.SourceURL,
		Title:     title,
		Kind:      req.Kind,
		Quality:   req.Quality,
		Strategy:  strategy,
		Bytes:     bytes,
		Status:    domain.HistoryCompleted,
		CreatedAt: time.Now(),
	}
	if outcome != nil {
		rec.Status = domain.HistoryFailed
		rec.Detail = outcome.Error()
	}

	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("failed to record download history", "error", err)
	}
}
