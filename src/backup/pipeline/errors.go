package pipeline

import (
	"fmt"
	"time"
)

// StageTimeoutError reports a pipeline stage that exceeded its deadline.
// Per-instance and non-fatal; the next scheduled run is the retry mechanism.
type StageTimeoutError struct {
	Stage   State
	Timeout time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("stage %s timed out after %s", e.Stage, e.Timeout)
}

// StageAPIError reports a management-API failure during a pipeline stage.
// Per-instance and non-fatal.
type StageAPIError struct {
	Stage State
	Err   error
}

func (e *StageAPIError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageAPIError) Unwrap() error { return e.Err }

// CleanupOutcome distinguishes how a best-effort operation ended, so tests
// can assert on cleanup results without conflating them with pipeline
// outcomes.
type CleanupOutcome int

const (
	// CleanupOK: the artifact was deleted (or was already gone).
	CleanupOK CleanupOutcome = iota
	// CleanupWarned: deletion failed but the run continues. A dangling
	// remote artifact is reclaimed by the next run's orphan sweep.
	CleanupWarned
	// CleanupFatal: deletion failed in a way that must stop the run.
	// Remote deletions never use this today; it exists for callers that
	// cannot tolerate leftovers.
	CleanupFatal
)

// CleanupResult records one remote deletion attempt.
type CleanupResult struct {
	Resource string // "snapshot" or "image"
	Name     string
	Outcome  CleanupOutcome
	Err      error
}
