package judge

import (
	"sort"
	"time"
)

// SuiteReport is the outcome of running a contiguous id range.
type SuiteReport struct {
	StartedAt time.Time
	Low       int
	High      int
	Passed    bool
	Verdicts  map[int]bool
	Results   []CaseResult
	Elapsed   time.Duration
	Revision  string
	// Interrupted is set when the run stopped before reaching High.
	Interrupted bool
}

// NewSuiteReport starts an empty, passing report for [low, high].
func NewSuiteReport(startedAt time.Time, low, high int) *SuiteReport {
	return &SuiteReport{
		StartedAt: startedAt,
		Low:       low,
		High:      high,
		Passed:    true,
		Verdicts:  make(map[int]bool, max(high-low+1, 0)),
	}
}

// Record stores the verdict of a case and folds it into the overall result.
func (r *SuiteReport) Record(result CaseResult) {
	passed := result.Passed()
	r.Verdicts[result.Case.ID] = passed
	r.Passed = r.Passed && passed
	r.Results = append(r.Results, result)
}

// IDs returns the recorded case ids in ascending order.
func (r *SuiteReport) IDs() []int {
	ids := make([]int, 0, len(r.Verdicts))
	for id := range r.Verdicts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Result returns the recorded result for id.
func (r *SuiteReport) Result(id int) (CaseResult, bool) {
	for _, result := range r.Results {
		if result.Case.ID == id {
			return result, true
		}
	}
	return CaseResult{}, false
}

// Counts returns the number of accepted and rejected cases.
func (r *SuiteReport) Counts() (accepted, rejected int) {
	for _, ok := range r.Verdicts {
		if ok {
			accepted++
		} else {
			rejected++
		}
	}
	return accepted, rejected
}

// Total is the number of ids in the configured range.
func (r *SuiteReport) Total() int {
	return r.High - r.Low + 1
}

// Interrupt marks a run that stopped before covering the whole range. An
// interrupted suite does not pass, since ids after the stop have no verdict.
func (r *SuiteReport) Interrupt() {
	r.Interrupted = true
	r.Passed = false
}

// StatusLabel is the overall verdict text.
func (r *SuiteReport) StatusLabel() string {
	if r.Passed {
		return StatusAccepted.Label()
	}
	return StatusWrongAnswer.Label()
}
