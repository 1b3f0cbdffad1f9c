package extractor

import (
	"context"
	"os"

	"github.com/iconidentify/tubegrab/internal/domain"
)

// DownloadToFile runs the fallback pipeline: the extractor performs
// format selection and post-processing itself (audio extraction or
// video+audio merge) and writes a complete file to dest.
//
// Success requires BOTH a zero exit code and the file existing on disk;
// the extractor can exit cleanly without producing the expected artifact
// under partial failures. The call is bounded by ctx, not the extractor
// timeout, because full downloads can legitimately run for a long time.
func (e *Extractor) DownloadToFile(ctx context.Context, url string, kind domain.MediaKind, quality, dest string) error {
	args := []string{
		"-f", formatSelector(kind, quality),
		"--no-warnings",
		"--no-playlist",
	}

	if kind == domain.KindAudio {
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", "0")
	} else {
		args = append(args, "--merge-output-format", "mp4")
	}

	args = append(args, "-o", dest, url)

	_, stderr, err := e.runner.Run(ctx, args...)
	if err != nil {
		return domain.NewPipelineError("download to scratch", runDetail(stderr, err), domain.ErrDownloadFailed)
	}

	if _, err := os.Stat(dest); err != nil {
		return domain.NewPipelineError("download to scratch",
			"extractor exited cleanly but produced no file", domain.ErrDownloadFailed)
	}

	return nil
}
