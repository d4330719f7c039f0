package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
)

// Service drives a Suite from a stream of run requests.
type Service struct {
	suite  *Suite
	logger *log.Logger
}

// NewService constructs a Service around suite.
func NewService(suite *Suite, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{suite: suite, logger: logger}
}

// ExecuteFromProducer pulls run requests from source and runs them one at a
// time, since every suite shares the same workspace.
//
// If maxRequests is greater than zero the execution stops after the specified
// number of requests has been processed. Otherwise it keeps consuming until
// the context is cancelled or the source signals completion via io.EOF.
//
// When onReport is provided it is invoked after every suite with the request
// and the resulting report.
func (s *Service) ExecuteFromProducer(
	ctx context.Context,
	source ports.RunRequestSource,
	maxRequests int,
	onReport func(judge.RunRequest, *judge.SuiteReport),
) error {
	processed := 0

	for {
		if maxRequests > 0 && processed >= maxRequests {
			return nil
		}

		req, err := source.NextRequest(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, judge.ErrInvalidRequest) {
				processed++
				s.logger.Printf("skipping request: %v", err)
				continue
			}
			return fmt.Errorf("get next request: %w", err)
		}
		processed++

		if err := judge.ValidateRange(req.Low, req.High); err != nil {
			s.logger.Printf("skipping request %q: invalid range [%d, %d]: %v", req.ID, req.Low, req.High, err)
			continue
		}

		report, path, err := s.suite.Run(ctx, req.Low, req.High)
		if err != nil {
			return fmt.Errorf("run request %q: %w", req.ID, err)
		}
		s.logger.Printf("request %q finished: %s, report %s", req.ID, report.StatusLabel(), path)

		if onReport != nil {
			onReport(req, report)
		}
	}
}
