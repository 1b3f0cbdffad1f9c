package extractor

import "context"

// Runner executes one extractor invocation and returns its output.
// It exists so tests can assert on spawn behavior without a real binary.
type Runner interface {
	Run(ctx context.Context, args ...string) (stdout, stderr []byte, err error)
}
