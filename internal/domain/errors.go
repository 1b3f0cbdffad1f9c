package domain

import "errors"

// Domain errors.
var (
	// ErrMissingURL is returned when no source URL was supplied.
	ErrMissingURL = errors.New("missing source url")

	// ErrInvalidSourceURL is returned when the URL does not match the
	// accepted source-host pattern.
	ErrInvalidSourceURL = errors.New("invalid source url")

	// ErrInvalidKind is returned when the requested media kind is not
	// "video" or "audio".
	ErrInvalidKind = errors.New("invalid media kind")

	// ErrExtractionFailed is returned when the extractor exits non-zero
	// or produces no usable output.
	ErrExtractionFailed = errors.New("media extraction failed")

	// ErrMetadataParse is returned when the extractor succeeded but its
	// JSON output could not be parsed.
	ErrMetadataParse = errors.New("metadata parse failed")

	// ErrTranscodeFailed is returned when the transcoder fails to spawn
	// or terminates abnormally.
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrDownloadFailed is returned by the fallback pipeline when the
	// extractor exits non-zero or leaves no file behind.
	ErrDownloadFailed = errors.New("download failed")

	// ErrScratchFull is returned when the scratch directory has too
	// little free space for a fallback download.
	ErrScratchFull = errors.New("insufficient scratch space")

	// ErrHistoryDisabled is returned when download history is queried
	// but no database is configured.
	ErrHistoryDisabled = errors.New("download history disabled")
)

// IsValidation reports whether err is a client-input error that must be
// rejected before any subprocess is spawned.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingURL) ||
		errors.Is(err, ErrInvalidSourceURL) ||
		errors.Is(err, ErrInvalidKind)
}

// PipelineError wraps a pipeline failure with its operation and the
// subprocess diagnostic output. Detail is for server-side logs; it is
// echoed to clients only in development mode.
type PipelineError struct {
	Op     string
	Detail string
	Err    error
}

func (e *PipelineError) Error() string {
	if e.Detail != "" {
		return e.Op + ": " + e.Err.Error() + ": " + e.Detail
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(op, detail string, err error) *PipelineError {
	return &PipelineError{Op: op, Detail: detail, Err: err}
}

// ErrorDetail extracts the diagnostic detail from err, if any.
func ErrorDetail(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Detail
	}
	return ""
}
