package ports

import (
	"context"

	"sysyjudge/internal/domain/judge"
)

// ReportSink durably stores a finished suite report.
type ReportSink interface {
	WriteReport(ctx context.Context, report *judge.SuiteReport) (string, error)
}
