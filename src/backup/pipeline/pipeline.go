// Package pipeline runs the four-stage backup of one instance:
// snapshot, publish, export, cleanup. Each stage is a blocking call bounded
// by a caller-enforced timeout. A failed instance never aborts the run; the
// job ends in a terminal state the run loop inspects.
package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"incus-autobackup/src/archive"
	"incus-autobackup/src/config"
	"incus-autobackup/src/incusapi"
)

// Executor drives the per-instance pipeline.
type Executor struct {
	Client incusapi.Client
	Config config.Config
	Log    logrus.FieldLogger

	// Now is the clock, injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Run processes one instance to a terminal state. It never returns an error;
// failures are captured on the job and logged.
func (e *Executor) Run(ctx context.Context, inst incusapi.Instance) *Job {
	now := e.now()
	job := &Job{
		Instance: inst,
		Date:     now,
		Token:    now.Format(tokenLayout),
		State:    StatePending,
	}
	log := e.Log.WithFields(logrus.Fields{"instance": inst.Name, "project": inst.Project})

	// Idempotency guard: one daily archive per instance per date. A
	// pre-existing archive is the expected steady state on same-day
	// re-runs, not an error.
	expected := archive.Path(e.Config.Root, archive.TierDaily, inst.Name, job.Date, e.Config.ArchiveExt())
	if _, err := os.Stat(expected); err == nil {
		job.State = StateSkipped
		job.ArchivePath = expected
		log.WithField("archive", expected).Info("daily archive already exists, skipping")
		return job
	}

	// Reclaim intermediate artifacts a previous failed attempt may have
	// left on the remote side. Best-effort: a dangling artifact must not
	// block today's attempt.
	e.sweepOrphans(ctx, inst, log)

	// Stage 1: stateless snapshot under a unique name.
	job.State = StateSnapshotting
	job.SnapshotName = snapshotName(job.Date, job.Token)
	log = log.WithField("snapshot", job.SnapshotName)
	err := e.stage(ctx, e.Config.Timeouts.Snapshot, StateSnapshotting, func(sctx context.Context) error {
		return e.Client.CreateSnapshot(sctx, inst.Project, inst.Name, job.SnapshotName)
	})
	if err != nil {
		log.WithError(err).Error("snapshot failed")
		return job.fail(err)
	}

	// Stage 2: publish the snapshot as a compressed image. The dominant
	// cost, hence the long timeout.
	job.State = StatePublishing
	job.ImageAlias = imageAlias(inst.Name, job.Date, job.Token)
	log = log.WithField("alias", job.ImageAlias)
	err = e.stage(ctx, e.Config.Timeouts.Publish, StatePublishing, func(sctx context.Context) error {
		return e.Client.PublishImage(sctx, inst.Project, inst.Name, job.SnapshotName, job.ImageAlias, e.Config.Compression)
	})
	if err != nil {
		log.WithError(err).Error("publish failed")
		job.Cleanup = append(job.Cleanup, e.deleteSnapshot(ctx, inst, job.SnapshotName, log))
		return job.fail(err)
	}

	// Stage 3: export the image to the daily tier. Written to a partial
	// path and renamed, so a failed export never leaves a file the next
	// run's guard would mistake for a finished archive.
	job.State = StateExporting
	partial := expected + ".partial"
	exportErr := e.stage(ctx, e.Config.Timeouts.Export, StateExporting, func(sctx context.Context) error {
		return e.Client.ExportImage(sctx, inst.Project, job.ImageAlias, partial)
	})
	if exportErr == nil {
		exportErr = os.Rename(partial, expected)
	}
	if exportErr != nil {
		_ = os.Remove(partial)
		log.WithError(exportErr).Error("export failed")
	} else {
		job.ArchivePath = expected
	}

	// Stage 4: unconditional remote cleanup, win or lose. Cleanup success
	// does not mask an export failure.
	job.Cleanup = append(job.Cleanup, e.deleteImage(ctx, inst, job.ImageAlias, log))
	job.Cleanup = append(job.Cleanup, e.deleteSnapshot(ctx, inst, job.SnapshotName, log))

	if exportErr != nil {
		return job.fail(exportErr)
	}
	job.State = StateDone
	log.WithField("archive", expected).Info("backup complete")
	return job
}

// stage runs fn under its timeout and classifies the failure.
func (e *Executor) stage(ctx context.Context, timeout time.Duration, state State, fn func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(sctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &StageTimeoutError{Stage: state, Timeout: timeout}
	}
	return &StageAPIError{Stage: state, Err: err}
}

// sweepOrphans deletes remote snapshots and image aliases left behind by a
// previous failed run of this instance. Failures are logged and ignored.
func (e *Executor) sweepOrphans(ctx context.Context, inst incusapi.Instance, log logrus.FieldLogger) {
	snaps, err := e.Client.ListSnapshots(ctx, inst.Project, inst.Name)
	if err != nil {
		log.WithError(err).Warn("orphan sweep: cannot list snapshots")
	}
	for _, s := range snaps {
		if !isBackupSnapshot(s) {
			continue
		}
		log.WithField("snapshot", s).Info("removing orphaned snapshot from previous run")
		if err := e.Client.DeleteSnapshot(ctx, inst.Project, inst.Name, s); err != nil {
			log.WithError(err).WithField("snapshot", s).Warn("orphan sweep: delete snapshot failed")
		}
	}

	aliases, err := e.Client.ListImageAliases(ctx, inst.Project)
	if err != nil {
		log.WithError(err).Warn("orphan sweep: cannot list image aliases")
	}
	for _, a := range aliases {
		if !isBackupAlias(a, inst.Name) {
			continue
		}
		log.WithField("alias", a).Info("removing orphaned image from previous run")
		if err := e.Client.DeleteImage(ctx, inst.Project, a); err != nil {
			log.WithError(err).WithField("alias", a).Warn("orphan sweep: delete image failed")
		}
	}
}

func (e *Executor) deleteSnapshot(ctx context.Context, inst incusapi.Instance, name string, log logrus.FieldLogger) CleanupResult {
	res := CleanupResult{Resource: "snapshot", Name: name}
	if err := e.Client.DeleteSnapshot(ctx, inst.Project, inst.Name, name); err != nil {
		res.Outcome = CleanupWarned
		res.Err = err
		log.WithError(err).WithField("snapshot", name).Warn("cleanup: delete snapshot failed")
	}
	return res
}

func (e *Executor) deleteImage(ctx context.Context, inst incusapi.Instance, alias string, log logrus.FieldLogger) CleanupResult {
	res := CleanupResult{Resource: "image", Name: alias}
	if err := e.Client.DeleteImage(ctx, inst.Project, alias); err != nil {
		res.Outcome = CleanupWarned
		res.Err = err
		log.WithError(err).WithField("alias", alias).Warn("cleanup: delete image failed")
	}
	return res
}
