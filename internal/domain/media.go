package domain

import (
	"fmt"
	"time"
)

// MediaKind selects the output flavor of a download.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// ParseMediaKind parses a user-supplied kind string.
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(s) {
	case KindVideo:
		return KindVideo, nil
	case KindAudio:
		return KindAudio, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Ext returns the output container extension for the kind.
func (k MediaKind) Ext() string {
	if k == KindAudio {
		return "mp3"
	}
	return "mp4"
}

// ContentType returns the response content type for the kind.
func (k MediaKind) ContentType() string {
	if k == KindAudio {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// MediaRequest is a validated download request.
type MediaRequest struct {
	SourceURL string
	Kind      MediaKind
	Quality   string
}

// Validate checks the request before any subprocess is invoked.
func (r MediaRequest) Validate() error {
	if r.SourceURL == "" {
		return ErrMissingURL
	}
	if !ValidSourceURL(r.SourceURL) {
		return ErrInvalidSourceURL
	}
	if r.Kind != KindVideo && r.Kind != KindAudio {
		return ErrInvalidKind
	}
	return nil
}

// ResolvedLocator is a direct media URL obtained from the extractor,
// plus the asset's display title. The URL is time-limited (it typically
// expires within minutes) and must be consumed immediately, never cached.
type ResolvedLocator struct {
	MediaURL string
	Title    string
}

// VideoTier is one deduplicated video quality bucket offered to the client.
type VideoTier struct {
	Height       int
	Quality      string // "720p"
	QualityLabel string
	Format       string // container extension
	HasAudio     bool
	FPS          int
	Filesize     int64
}

// AudioTier is one deduplicated audio quality bucket, keyed by bitrate
// rounded to the nearest 32 kbps.
type AudioTier struct {
	Quality  string // "128kbps"
	Format   string
	Bitrate  int
	Filesize int64
}

// VideoInfo is the metadata record returned by the info endpoint.
type VideoInfo struct {
	VideoID    string
	Title      string
	Author     string
	Thumbnail  string
	Duration   int
	VideoTiers []VideoTier
	AudioTiers []AudioTier
}

// DownloadRecord is one entry in the download history.
// It holds metadata only, never media bytes.
type DownloadRecord struct {
	ID        string
	SourceURL string
	Title     string
	Kind      MediaKind
	Quality   string
	Strategy  string
	Bytes     int64
	Status    string
	Detail    string
	CreatedAt time.Time
}

// Download history statuses.
const (
	HistoryCompleted = "completed"
	HistoryFailed    = "failed"
)
