package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
)

// FileSink writes each report to its own file under Dir.
type FileSink struct {
	Dir string
}

var _ ports.ReportSink = (*FileSink)(nil)

// NewFileSink returns a FileSink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// WriteReport creates the report directory if needed and writes the report.
// A report started in the same second as an existing one replaces it.
func (s *FileSink) WriteReport(ctx context.Context, report *judge.SuiteReport) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(s.Dir, Filename(report.StartedAt))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}

	if err := Format(file, report); err != nil {
		file.Close()
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close report %s: %w", path, err)
	}
	return path, nil
}
