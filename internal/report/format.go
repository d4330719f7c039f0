// Package report renders suite reports as the plain text testlog format and
// stores them as timestamp-named files.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"sysyjudge/internal/domain/judge"
)

// TimeLayout is the timestamp format used in report headers and file names.
const TimeLayout = "2006-01-02 15:04:05"

const (
	filePrefix = "testlog "
	fileSuffix = ".txt"

	ansiGreen = "\033[1;32;40m"
	ansiRed   = "\033[1;31;40m"
	ansiReset = "\033[0m"
)

// Filename returns the report file name for a suite started at t.
func Filename(t time.Time) string {
	return filePrefix + t.Format(TimeLayout) + fileSuffix
}

// Format writes report in the testlog layout.
func Format(w io.Writer, report *judge.SuiteReport) error {
	return format(w, report, false)
}

func format(w io.Writer, report *judge.SuiteReport, color bool) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "test time: %s\n", report.StartedAt.Format(TimeLayout))
	if report.Revision != "" {
		fmt.Fprintf(bw, "compiler revision: %s\n", report.Revision)
	}
	fmt.Fprintf(bw, "test result: %s\n", verdict(report.StatusLabel(), report.Passed, color))
	fmt.Fprintln(bw, "details:")
	for _, id := range report.IDs() {
		fmt.Fprintln(bw, caseLine(report, id))
	}
	if report.Interrupted {
		fmt.Fprintf(bw, "interrupted: %d of %d cases run\n", len(report.Verdicts), report.Total())
	}
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "total test time: %dms\n", report.Elapsed.Milliseconds())

	return bw.Flush()
}

func caseLine(report *judge.SuiteReport, id int) string {
	result, ok := report.Result(id)
	if !ok {
		result = judge.CaseResult{Case: judge.TestCase{ID: id}, Status: judge.StatusWrongAnswer}
		if report.Verdicts[id] {
			result.Status = judge.StatusAccepted
		}
	}

	line := result.Case.Name() + "   " + result.Status.Label()
	if result.Err != nil {
		line += " (" + reason(result.Err) + ")"
	}
	return line
}

// reason keeps the first line of err so each case stays on one report line.
func reason(err error) string {
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	return msg
}

func verdict(label string, passed, color bool) string {
	if !color {
		return label
	}
	if passed {
		return ansiGreen + label + ansiReset
	}
	return ansiRed + label + ansiReset
}
