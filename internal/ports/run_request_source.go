package ports

import (
	"context"

	"sysyjudge/internal/domain/judge"
)

// RunRequestSource yields suite run requests. It returns io.EOF once the
// stream is finished.
type RunRequestSource interface {
	NextRequest(ctx context.Context) (judge.RunRequest, error)
}
