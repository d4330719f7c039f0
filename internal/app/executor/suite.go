package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
)

// SuiteConfig describes one suite run over a numbered fixture range.
type SuiteConfig struct {
	Layout    judge.Layout
	WithInput bool
	// StopOnFailure ends the run at the first rejected case.
	StopOnFailure bool
	// Revision is stamped into every report when set.
	Revision string
}

// Suite runs the case executor over an inclusive id range and emits a report.
type Suite struct {
	cases      *CaseExecutor
	config     SuiteConfig
	sink       ports.ReportSink
	observers  []ports.Observer
	publishers []ports.RunReportPublisher
	logger     *log.Logger
	now        func() time.Time
}

// NewSuite constructs a Suite writing its reports to sink.
func NewSuite(cases *CaseExecutor, cfg SuiteConfig, sink ports.ReportSink, logger *log.Logger) *Suite {
	if logger == nil {
		logger = log.Default()
	}
	return &Suite{
		cases:  cases,
		config: cfg,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// AddObserver registers an observer notified of progress and results.
func (s *Suite) AddObserver(observer ports.Observer) {
	if observer != nil {
		s.observers = append(s.observers, observer)
	}
}

// AddPublisher registers a publisher receiving every case result and report.
func (s *Suite) AddPublisher(publisher ports.RunReportPublisher) {
	if publisher != nil {
		s.publishers = append(s.publishers, publisher)
	}
}

// Run executes every id in [low, high] in ascending order and writes the
// report. Cancelling ctx stops the run between cases; the partial report is
// still written. The only error returned is a failure to run at all or to
// store the report.
func (s *Suite) Run(ctx context.Context, low, high int) (*judge.SuiteReport, string, error) {
	if err := judge.ValidateRange(low, high); err != nil {
		return nil, "", fmt.Errorf("suite: invalid range [%d, %d]: %w", low, high, err)
	}

	report := judge.NewSuiteReport(s.now(), low, high)
	report.Revision = s.config.Revision
	start := time.Now()

	for id := low; id <= high; id++ {
		if err := ctx.Err(); err != nil {
			s.logger.Printf("suite interrupted before testfile%d: %v", id, err)
			report.Interrupt()
			break
		}

		tc := judge.NewTestCase(s.config.Layout, id, s.config.WithInput)
		result := s.cases.Execute(ctx, tc)
		report.Record(result)

		if result.Err != nil {
			s.logger.Printf("%s: %v", tc.Name(), result.Err)
		}
		s.notifyCase(ctx, result, high)

		if !result.Passed() && s.config.StopOnFailure {
			if id < high {
				report.Interrupt()
			}
			break
		}
	}

	report.Elapsed = time.Since(start)

	// The report is written even after cancellation.
	writeCtx := context.WithoutCancel(ctx)
	path, err := s.sink.WriteReport(writeCtx, report)
	if err != nil {
		return report, "", fmt.Errorf("write report: %w", err)
	}

	for _, observer := range s.observers {
		observer.SuiteFinished(report)
	}
	for _, publisher := range s.publishers {
		if err := publisher.PublishSuiteReport(writeCtx, report); err != nil {
			s.logger.Printf("warning: publish suite report: %v", err)
		}
	}

	return report, path, nil
}

func (s *Suite) notifyCase(ctx context.Context, result judge.CaseResult, high int) {
	for _, observer := range s.observers {
		observer.CaseFinished(result)
		observer.Progress(result.Case.ID, high)
	}
	for _, publisher := range s.publishers {
		if err := publisher.PublishCaseResult(context.WithoutCancel(ctx), result); err != nil {
			s.logger.Printf("warning: publish result for %s: %v", result.Case.Name(), err)
		}
	}
}
