package producer

import (
	"context"
	"io"
	"sync"
	"time"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
)

// Service implements ports.RunRequestSource over an in-memory queue. The CLI
// uses it to feed its single command-line run through the same path as
// requests arriving from Kafka.
type Service struct {
	mu       sync.Mutex
	requests []judge.RunRequest
	index    int
}

var _ ports.RunRequestSource = (*Service)(nil)

// NewService builds a producer seeded with requests.
func NewService(requests ...judge.RunRequest) *Service {
	s := &Service{}
	for _, req := range requests {
		s.AddRequest(req)
	}
	return s
}

// NextRequest returns the next queued request, or io.EOF once the queue is drained.
func (s *Service) NextRequest(ctx context.Context) (judge.RunRequest, error) {
	select {
	case <-ctx.Done():
		return judge.RunRequest{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.requests) {
		return judge.RunRequest{}, io.EOF
	}

	req := s.requests[s.index]
	s.index++

	return req, nil
}

// AddRequest appends a request to the queue, assigning an ID when missing.
func (s *Service) AddRequest(req judge.RunRequest) {
	if req.ID == "" {
		req.ID = time.Now().UTC().Format(time.RFC3339Nano)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
}
