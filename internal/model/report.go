package model

import "time"

// StepStatus represents the outcome of a single step.
type StepStatus int

const (
	// Passed indicates the step completed successfully.
	Passed StepStatus = iota
	// Failed indicates the tool ran and reported violations.
	Failed
	// Errored indicates the step could not run to completion (missing tool,
	// file-system error, timeout).
	Errored
	// Skipped indicates the step never ran because of an earlier failure.
	Skipped
)

func (s StepStatus) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Errored:
		return "error"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepResult holds the outcome of running one step.
type StepResult struct {
	Step     Step
	Status   StepStatus
	ExitCode int
	Duration time.Duration
	Err      error
	// Changed lists the files a builtin pass rewrote.
	Changed []Path
	// Diff is a unified diff of the builtin pass, when requested.
	Diff string
}

// OK reports whether the step passed.
func (r StepResult) OK() bool {
	return r.Status == Passed
}

// RunReport aggregates the results of an operation run.
type RunReport struct {
	Operation Operation
	Results   []StepResult
	Duration  time.Duration
}

// Failed reports whether any step failed or errored.
func (r RunReport) Failed() bool {
	_, ok := r.FirstFailure()
	return ok
}

// FirstFailure returns the first step that did not pass and was not skipped.
func (r RunReport) FirstFailure() (StepResult, bool) {
	for _, result := range r.Results {
		if result.Status == Failed || result.Status == Errored {
			return result, true
		}
	}

	return StepResult{}, false
}

// Count returns the number of results with the given status.
func (r RunReport) Count(status StepStatus) int {
	n := 0

	for _, result := range r.Results {
		if result.Status == status {
			n++
		}
	}

	return n
}
