package ports

import (
	"context"

	"sysyjudge/internal/domain/judge"
)

// RunReportPublisher publishes case results and suite reports to an external system.
type RunReportPublisher interface {
	PublishCaseResult(ctx context.Context, result judge.CaseResult) error
	PublishSuiteReport(ctx context.Context, report *judge.SuiteReport) error
	Close() error
}
