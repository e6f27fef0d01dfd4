package manifest

import (
	"fmt"

	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
)

type ManifestErrorCause string

const (
	ErrCauseWriteFailure ManifestErrorCause = "manifest write failure"
	ErrCauseOpenFailure  ManifestErrorCause = "manifest open failure"
)

// ManifestError is always fatal: per §7, a manifest write failure exits
// the process with code 2 after a best-effort drain. It is never
// retried in place.
type ManifestError struct {
	Message string
	Cause   ManifestErrorCause
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest error: %s: %s", e.Cause, e.Message)
}

func (e *ManifestError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *ManifestError) IsRetryable() bool { return false }
