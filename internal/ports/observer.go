package ports

import "sysyjudge/internal/domain/judge"

// Observer receives best-effort progress notifications from a suite run.
type Observer interface {
	Progress(current, high int)
	CaseFinished(result judge.CaseResult)
	SuiteFinished(report *judge.SuiteReport)
}
