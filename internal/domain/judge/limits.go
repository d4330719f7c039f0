package judge

import "time"

// RunLimits describes optional resource boundaries for a single tool invocation.
//
// A zero value RunLimits imposes no additional restrictions.
type RunLimits struct {
	// Timeout caps how long the tool is allowed to run. Zero means no limit.
	Timeout time.Duration
	// MemoryLimitBytes caps container memory usage in bytes. Zero means no limit.
	// Only the docker runtime enforces it.
	MemoryLimitBytes int64
}

// Normalize clamps negative limits to zero.
func (l RunLimits) Normalize() RunLimits {
	if l.Timeout < 0 {
		l.Timeout = 0
	}
	if l.MemoryLimitBytes < 0 {
		l.MemoryLimitBytes = 0
	}
	return l
}

// Merge returns l with every non-zero field of overrides applied on top.
func (l RunLimits) Merge(overrides RunLimits) RunLimits {
	effective := l.Normalize()
	overrides = overrides.Normalize()

	if overrides.Timeout > 0 {
		effective.Timeout = overrides.Timeout
	}
	if overrides.MemoryLimitBytes > 0 {
		effective.MemoryLimitBytes = overrides.MemoryLimitBytes
	}
	return effective
}
