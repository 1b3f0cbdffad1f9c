package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/iconidentify/tubegrab/internal/config"
	"github.com/iconidentify/tubegrab/internal/domain"
)

// fallbackTitle is used when the best-effort title lookup fails.
const fallbackTitle = "download"

// stderrTailLimit caps how much extractor stderr is kept for diagnostics.
const stderrTailLimit = 4096

// Extractor invokes the external extractor tool (yt-dlp) to resolve
// source URLs into direct media locators and metadata.
type Extractor struct {
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Extractor backed by the configured binary.
// The binary must be present on PATH; its absence is a configuration error.
func New(cfg config.ExtractorConfig, logger *slog.Logger) (*Extractor, error) {
	bin, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("extractor binary %q not found in PATH: %w", cfg.Binary, err)
	}

	return &Extractor{
		runner:  &execRunner{bin: bin},
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// NewWithRunner creates an Extractor with a custom runner. Used in tests.
func NewWithRunner(r Runner, timeout time.Duration, logger *slog.Logger) *Extractor {
	return &Extractor{runner: r, timeout: timeout, logger: logger}
}

// execRunner runs the extractor binary via os/exec.
type execRunner struct {
	bin string
}

func (r *execRunner) Run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, r.bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// formatSelector builds the extractor's format-selection expression for a
// kind/quality pair. Video tiers constrain height and fall back to the
// best combined stream when separate video+audio streams don't exist.
func formatSelector(kind domain.MediaKind, quality string) string {
	if kind == domain.KindAudio {
		return "bestaudio"
	}
	if h, err := strconv.Atoi(strings.TrimSuffix(quality, "p")); err == nil && h > 0 {
		return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", h, h)
	}
	return "best"
}

// Resolve obtains a direct, time-limited media URL and the asset's
// display title for a download request.
func (e *Extractor) Resolve(ctx context.Context, url string, kind domain.MediaKind, quality string) (*domain.ResolvedLocator, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"-g",
		"--no-warnings",
		"--no-playlist",
		"-f", formatSelector(kind, quality),
		url,
	}

	stdout, stderr, err := e.runner.Run(ctx, args...)
	if err != nil {
		return nil, domain.NewPipelineError("resolve media url", runDetail(stderr, err), domain.ErrExtractionFailed)
	}

	// The extractor may print two locators (video, then separate audio).
	// The first line is the combined/video locator and wins.
	mediaURL := firstLine(stdout)
	if mediaURL == "" {
		return nil, domain.NewPipelineError("resolve media url", "no usable output", domain.ErrExtractionFailed)
	}

	return &domain.ResolvedLocator{
		MediaURL: mediaURL,
		Title:    e.Title(ctx, url),
	}, nil
}

// Title fetches the asset's display title. Title retrieval is
// best-effort: any failure degrades to a placeholder, never an error.
func (e *Extractor) Title(ctx context.Context, url string) string {
	stdout, stderr, err := e.runner.Run(ctx, "--get-title", "--no-warnings", url)
	if err != nil {
		e.logger.Warn("title lookup failed, using fallback",
			"url", url,
			"error", err,
			"stderr", tail(stderr),
		)
		return fallbackTitle
	}

	title := firstLine(stdout)
	if title == "" {
		return fallbackTitle
	}
	return title
}

// firstLine returns the first non-empty trimmed line of output.
func firstLine(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// tail returns at most the last stderrTailLimit bytes of diagnostic output.
func tail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}

// runDetail combines the exec error with the stderr tail for diagnostics.
func runDetail(stderr []byte, err error) string {
	detail := tail(stderr)
	if detail == "" {
		return err.Error()
	}
	return err.Error() + ": " + detail
}
