package judge

import "errors"

// Status describes why a case ended the way it did.
type Status string

const (
	StatusAccepted    Status = "accepted"
	StatusWrongAnswer Status = "wrong_answer"
	StatusToolFailed  Status = "tool_failed"
	StatusMissingFile Status = "missing_file"
)

// Passed reports whether the status counts as a passing verdict.
func (s Status) Passed() bool {
	return s == StatusAccepted
}

// Label is the verdict text printed in reports. Every non-accepted status is
// reported as a wrong answer.
func (s Status) Label() string {
	if s.Passed() {
		return "Accepted"
	}
	return "Wrong Answer"
}

// StatusForError maps a case error to its status.
func StatusForError(err error) Status {
	switch {
	case err == nil:
		return StatusAccepted
	case errors.Is(err, ErrMissingFile):
		return StatusMissingFile
	case errors.Is(err, ErrToolFailed):
		return StatusToolFailed
	default:
		return StatusWrongAnswer
	}
}
