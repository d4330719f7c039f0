package judge

import "time"

// CaseResult captures the outcome of running one TestCase.
type CaseResult struct {
	Case     TestCase
	Status   Status
	Err      error
	Duration time.Duration
	// MismatchLine is the 1-based line of the first difference, zero when the
	// outputs matched or could not be compared.
	MismatchLine int
}

// Passed is the boolean verdict of the case.
func (r CaseResult) Passed() bool {
	return r.Status.Passed() && r.Err == nil
}
