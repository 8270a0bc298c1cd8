package models

import (
	"fmt"
	"strings"
	"time"
)

// WorkSummary records the outcome of one worker step: when it ran,
// what went wrong, and whether the failure is worth retrying.
type WorkSummary struct {
	// Attempted is set to true when the step starts.
	Attempted bool

	// AttemptNumber counts delivery attempts, starting at one.
	AttemptNumber int

	// ErrorIsFatal means the message should not be retried.
	// Checksum value mismatches and structural errors are fatal;
	// network blips are not.
	ErrorIsFatal bool

	// Errors lists everything that went wrong during this step.
	Errors []string

	// StartedAt is zero until the step starts.
	StartedAt time.Time

	// FinishedAt is zero until the step finishes. A finished step
	// may still have failed; check Succeeded().
	FinishedAt time.Time

	// Retry indicates whether a failed step should be requeued.
	// Defaults to true, since transient infrastructure errors are
	// far more common than bad input.
	Retry bool
}

func NewWorkSummary() *WorkSummary {
	return &WorkSummary{
		Errors: make([]string, 0),
		Retry:  true,
	}
}

func (summary *WorkSummary) Start() {
	summary.Attempted = true
	summary.StartedAt = time.Now().UTC()
}

func (summary *WorkSummary) Started() bool {
	return !summary.StartedAt.IsZero()
}

func (summary *WorkSummary) Finish() {
	summary.FinishedAt = time.Now().UTC()
}

func (summary *WorkSummary) Finished() bool {
	return !summary.FinishedAt.IsZero()
}

func (summary *WorkSummary) RunTime() time.Duration {
	if summary.StartedAt.IsZero() {
		return time.Duration(0)
	}
	endTime := summary.FinishedAt
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(summary.StartedAt)
}

func (summary *WorkSummary) Succeeded() bool {
	return summary.Finished() && len(summary.Errors) == 0
}

func (summary *WorkSummary) AddError(format string, a ...interface{}) {
	summary.Errors = append(summary.Errors, fmt.Sprintf(format, a...))
}

func (summary *WorkSummary) AddFatalError(format string, a ...interface{}) {
	summary.AddError(format, a...)
	summary.ErrorIsFatal = true
	summary.Retry = false
}

func (summary *WorkSummary) HasErrors() bool {
	return len(summary.Errors) > 0
}

func (summary *WorkSummary) FirstError() string {
	if len(summary.Errors) > 0 {
		return summary.Errors[0]
	}
	return ""
}

func (summary *WorkSummary) AllErrorsAsString() string {
	return strings.Join(summary.Errors, "\n")
}

func (summary *WorkSummary) ClearErrors() {
	summary.Errors = make([]string, 0)
	summary.ErrorIsFatal = false
	summary.Retry = true
}
