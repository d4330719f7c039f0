package report

import (
	"fmt"
	"io"
	"log"
	"sync"

	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/ports"
)

// Console prints the running tally and the final banner to a terminal.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	logger *log.Logger
}

var _ ports.Observer = (*Console)(nil)

// NewConsole writes to out, colouring the verdict when color is set. Write
// failures are logged to logger.
func NewConsole(out io.Writer, color bool, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.Default()
	}
	return &Console{out: out, color: color, logger: logger}
}

func (c *Console) Progress(current, high int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "testing %d/%d\r", current, high)
}

func (c *Console) CaseFinished(judge.CaseResult) {}

func (c *Console) SuiteFinished(report *judge.SuiteReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	if err := format(c.out, report, c.color); err != nil {
		c.logger.Printf("warning: failed to print report: %v", err)
		return
	}
	accepted, rejected := report.Counts()
	if _, err := fmt.Fprintf(c.out, "%d accepted, %d rejected of %d\n", accepted, rejected, report.Total()); err != nil {
		c.logger.Printf("warning: failed to print summary: %v", err)
	}
}
