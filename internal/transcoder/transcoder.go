package transcoder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/iconidentify/tubegrab/internal/config"
	"github.com/iconidentify/tubegrab/internal/domain"
)

// waitDelay bounds how long a killed transcoder may linger before its
// pipes are forcibly closed.
const waitDelay = 5 * time.Second

// Transcoder invokes the external transcoder tool (ffmpeg) to convert a
// resolved media locator into the target container, streamed to stdout.
type Transcoder struct {
	bin    string
	logger *slog.Logger
}

// New creates a Transcoder backed by the configured binary.
// The binary must be present on PATH; its absence is a configuration error.
func New(cfg config.TranscoderConfig, logger *slog.Logger) (*Transcoder, error) {
	bin, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("transcoder binary %q not found in PATH: %w", cfg.Binary, err)
	}
	return &Transcoder{bin: bin, logger: logger}, nil
}

// Stream spawns the transcoder against mediaURL and copies its stdout to
// w chunk by chunk as it is produced. Nothing is buffered beyond the OS
// pipe: a consumer that stops accepting bytes blocks the copy, which
// stops draining the pipe, which pauses the transcoder. Backpressure is
// cooperative end to end.
//
// Cancelling ctx (e.g. the client disconnecting) kills the transcoder
// process so no orphan keeps encoding against an abandoned connection.
// Returns the number of bytes written, which is non-zero when a failure
// surfaces mid-stream after output has already been sent.
func (t *Transcoder) Stream(ctx context.Context, mediaURL string, kind domain.MediaKind, quality string, w io.Writer) (int64, error) {
	args := Args(kind, mediaURL, quality)

	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.WaitDelay = waitDelay

	// Diagnostic output is captured for logging only, never sent to the
	// client.
	stderr := newTailBuffer(stderrTailLimit)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, domain.NewPipelineError("open transcoder pipe", err.Error(), domain.ErrTranscodeFailed)
	}

	if err := cmd.Start(); err != nil {
		return 0, domain.NewPipelineError("spawn transcoder", err.Error(), domain.ErrTranscodeFailed)
	}

	t.logger.Debug("transcoder started", "pid", cmd.Process.Pid, "kind", kind, "quality", quality)

	written, copyErr := io.Copy(w, stdout)
	waitErr := cmd.Wait()

	if waitErr != nil {
		t.logger.Error("transcoder exited abnormally",
			"error", waitErr,
			"bytes_written", written,
			"stderr", stderr.String(),
		)
		return written, domain.NewPipelineError("transcode", runDetail(stderr.String(), waitErr), domain.ErrTranscodeFailed)
	}

	if copyErr != nil {
		// The process finished but the consumer stopped accepting bytes.
		return written, fmt.Errorf("write transcoded stream: %w", copyErr)
	}

	if msg := stderr.String(); msg != "" {
		t.logger.Debug("transcoder finished with diagnostics", "stderr", msg)
	}

	return written, nil
}

func runDetail(stderr string, err error) string {
	if stderr == "" {
		return err.Error()
	}
	return err.Error() + ": " + stderr
}

// stderrTailLimit caps captured diagnostic output.
const stderrTailLimit = 8192

// tailBuffer is a bounded writer that keeps only the most recent bytes.
// Transcoders can emit unbounded progress chatter on long streams; only
// the tail is useful when diagnosing a failure.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
