package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/iconidentify/tubegrab/internal/domain"
)

// Defaults applied when the metadata dump is missing fields. These must
// never raise errors.
const (
	defaultTitle   = "Unknown Title"
	defaultAuthor  = "Unknown"
	defaultFPS     = 30
	defaultBitrate = 128
)

// audioBucketStep quantizes audio bitrates into tier buckets (kbps).
const audioBucketStep = 32

// metadataDump mirrors the extractor's JSON metadata output.
type metadataDump struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Uploader  string         `json:"uploader"`
	Channel   string         `json:"channel"`
	Thumbnail string         `json:"thumbnail"`
	Duration  float64        `json:"duration"`
	Formats   []formatRecord `json:"formats"`
}

// formatRecord is one entry in the extractor's format list.
type formatRecord struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	FormatNote string  `json:"format_note"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	ABR        float64 `json:"abr"`
	Filesize   int64   `json:"filesize"`
}

func (f formatRecord) hasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

func (f formatRecord) hasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// ListFormats invokes the extractor in metadata-dump mode and builds the
// deduplicated, sorted quality tiers offered to the client.
func (e *Extractor) ListFormats(ctx context.Context, url string) (*domain.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"--dump-json",
		"--no-warnings",
		"--no-playlist",
		"--skip-download",
		url,
	}

	stdout, stderr, err := e.runner.Run(ctx, args...)
	if err != nil {
		return nil, domain.NewPipelineError("fetch metadata", runDetail(stderr, err), domain.ErrExtractionFailed)
	}

	var dump metadataDump
	if err := json.Unmarshal(stdout, &dump); err != nil {
		return nil, domain.NewPipelineError("parse metadata", err.Error(), domain.ErrMetadataParse)
	}

	videoID := dump.ID
	if videoID == "" {
		videoID = domain.ExtractVideoID(url)
	}

	info := &domain.VideoInfo{
		VideoID:    videoID,
		Title:      dump.Title,
		Author:     dump.Uploader,
		Thumbnail:  dump.Thumbnail,
		Duration:   int(dump.Duration),
		VideoTiers: videoTiers(dump.Formats),
		AudioTiers: audioTiers(dump.Formats),
	}

	if info.Title == "" {
		info.Title = defaultTitle
	}
	if info.Author == "" {
		info.Author = dump.Channel
	}
	if info.Author == "" {
		info.Author = defaultAuthor
	}
	if info.Thumbnail == "" {
		info.Thumbnail = fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
	}

	return info, nil
}

// videoTiers collects entries with a real video codec and a known height
// into one tier per height. When two entries share a height, the one
// that also carries embedded audio wins, so the client is never offered
// a video-only stream where a muxed one exists. Sorted descending.
func videoTiers(formats []formatRecord) []domain.VideoTier {
	byHeight := make(map[int]domain.VideoTier)
	for _, f := range formats {
		if !f.hasVideo() || f.Height <= 0 {
			continue
		}
		if _, seen := byHeight[f.Height]; seen && !f.hasAudio() {
			continue
		}

		tier := domain.VideoTier{
			Height:       f.Height,
			Quality:      fmt.Sprintf("%dp", f.Height),
			QualityLabel: f.FormatNote,
			Format:       f.Ext,
			HasAudio:     f.hasAudio(),
			FPS:          int(f.FPS),
			Filesize:     f.Filesize,
		}
		if tier.QualityLabel == "" {
			tier.QualityLabel = tier.Quality
		}
		if tier.Format == "" {
			tier.Format = "mp4"
		}
		if tier.FPS == 0 {
			tier.FPS = defaultFPS
		}
		byHeight[f.Height] = tier
	}

	tiers := make([]domain.VideoTier, 0, len(byHeight))
	for _, t := range byHeight {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Height > tiers[j].Height })
	return tiers
}

// audioTiers collects audio-only entries into one tier per bitrate
// bucket, bitrate rounded to the nearest 32 kbps. Sorted descending.
func audioTiers(formats []formatRecord) []domain.AudioTier {
	byBucket := make(map[int]domain.AudioTier)
	for _, f := range formats {
		if !f.hasAudio() || f.hasVideo() {
			continue
		}

		abr := f.ABR
		if abr <= 0 {
			abr = defaultBitrate
		}
		bucket := int(math.Round(abr/audioBucketStep)) * audioBucketStep
		if _, seen := byBucket[bucket]; seen {
			continue
		}

		tier := domain.AudioTier{
			Quality:  fmt.Sprintf("%dkbps", bucket),
			Format:   f.Ext,
			Bitrate:  bucket,
			Filesize: f.Filesize,
		}
		if tier.Format == "" {
			tier.Format = "mp3"
		}
		byBucket[bucket] = tier
	}

	tiers := make([]domain.AudioTier, 0, len(byBucket))
	for _, t := range byBucket {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Bitrate > tiers[j].Bitrate })
	return tiers
}
