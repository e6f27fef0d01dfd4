package report

import (
	"fmt"

	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
)

// ReportError wraps a failure writing one of the aggregator's output
// files. It is always fatal: a report artifact that can't be written is
// not something a retry fixes mid-process.
type ReportError struct {
	Artifact string
	Message  string
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("report error: %s: %s", e.Artifact, e.Message)
}

func (e *ReportError) Severity() failure.Severity {
	return failure.SeverityFatal
}
