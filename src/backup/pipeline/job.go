package pipeline

import (
	"time"

	"incus-autobackup/src/incusapi"
)

// State is the per-instance pipeline state.
type State string

const (
	StatePending      State = "PENDING"
	StateSnapshotting State = "SNAPSHOTTING"
	StatePublishing   State = "PUBLISHING"
	StateExporting    State = "EXPORTING"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
	StateSkipped      State = "SKIPPED"
)

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateSkipped
}

// Job tracks one instance's backup for the duration of a run. It is created
// when the instance is picked up and discarded when processing ends; nothing
// is persisted beyond log lines.
type Job struct {
	Instance incusapi.Instance
	// Date is the run date the archive is named after.
	Date time.Time
	// Token is the time-of-day uniqueness suffix appended to remote
	// artifact names so retried or concurrent attempts on the same day
	// cannot collide.
	Token string

	State State
	// Err holds the failure that moved the job to StateFailed.
	Err error

	// Remote intermediate artifacts.
	SnapshotName string
	ImageAlias   string

	// ArchivePath is the final daily archive location. Set for Done and
	// Skipped jobs; for Skipped it points at the pre-existing archive.
	ArchivePath string

	// Cleanup records the best-effort remote deletions performed at the
	// end of the pipeline, win or lose.
	Cleanup []CleanupResult
}

func (j *Job) fail(err error) *Job {
	j.State = StateFailed
	j.Err = err
	return j
}
