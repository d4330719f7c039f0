package judge

import "fmt"

// MaxCaseID is the largest fixture id a suite accepts.
const MaxCaseID = 1 << 20

// RunRequest asks a worker to run the suite over [Low, High].
type RunRequest struct {
	ID   string
	Low  int
	High int
}

// ValidateRange reports whether [low, high] is a usable fixture range.
func ValidateRange(low, high int) error {
	if low < 0 {
		return fmt.Errorf("low must not be negative, got %d", low)
	}
	if low > high {
		return fmt.Errorf("low (%d) must not exceed high (%d)", low, high)
	}
	if high > MaxCaseID {
		return fmt.Errorf("high (%d) must not exceed %d", high, MaxCaseID)
	}
	return nil
}
