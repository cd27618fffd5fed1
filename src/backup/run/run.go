// Package run drives one full scheduled backup invocation: preflight gate,
// instance enumeration, the per-instance pipeline with weekly promotion, and
// a single retention pass over the whole archive tree at the end.
package run

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"incus-autobackup/src/archive"
	"incus-autobackup/src/backup/pipeline"
	"incus-autobackup/src/backup/promote"
	"incus-autobackup/src/backup/retention"
	"incus-autobackup/src/config"
	"incus-autobackup/src/incusapi"
	"incus-autobackup/src/preflight"
)

// DependencyError marks a fatal failure to reach or enumerate the management
// API. The run aborts with no partial work and no retention pass.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Summary aggregates a finished run. A run with failed instances is still a
// successful invocation; callers exit non-zero only when Run returns an
// error.
type Summary struct {
	Done    int
	Failed  int
	Skipped int
	Jobs    []*pipeline.Job
}

// Runner executes one scheduled run. Single worker: instances are processed
// sequentially so snapshot/publish/export never contend for host I/O or API
// bandwidth.
type Runner struct {
	Client incusapi.Client
	Config config.Config
	Log    logrus.FieldLogger

	// Now is the clock, injectable for tests. Defaults to time.Now.
	Now func() time.Time
	// Gate is the preflight check, injectable for tests. Defaults to
	// Preflight.
	Gate func(config.Config) error
}

// Preflight is the default fatal gate: privilege, mount, capacity,
// writability. Any failure aborts before instance work starts.
func Preflight(cfg config.Config) error {
	if cfg.RequireRoot {
		if err := preflight.CheckPrivileged(); err != nil {
			return err
		}
	}
	if err := preflight.CheckMounted(cfg.Root); err != nil {
		return err
	}
	if err := preflight.CheckFreeSpace(cfg.Root, cfg.MinFreeGiB); err != nil {
		return err
	}
	return preflight.CheckWritable(cfg.Root)
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run performs the whole scheduled invocation. The returned error is non-nil
// only for fatal preconditions and dependency failures.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	gate := r.Gate
	if gate == nil {
		gate = Preflight
	}
	if err := gate(r.Config); err != nil {
		return nil, err
	}

	if _, err := r.Client.Server(ctx); err != nil {
		return nil, &DependencyError{Op: "probe server", Err: err}
	}

	instances, err := r.enumerate(ctx)
	if err != nil {
		return nil, err
	}
	r.Log.WithField("instances", len(instances)).Info("starting backup run")

	if err := archive.EnsureLayout(r.Config.Root); err != nil {
		return nil, &preflight.PreconditionError{Check: "writable", Err: err}
	}

	exec := &pipeline.Executor{Client: r.Client, Config: r.Config, Log: r.Log, Now: r.Now}
	sum := &Summary{}
	for _, inst := range instances {
		job := exec.Run(ctx, inst)
		sum.Jobs = append(sum.Jobs, job)
		switch job.State {
		case pipeline.StateDone:
			sum.Done++
			if promote.Due(r.Config, job) {
				if err := promote.Promote(r.Config, job, r.Log); err != nil {
					// Supplementary copy; the daily archive stands.
					r.Log.WithError(err).WithField("instance", inst.Name).Warn("weekly promotion failed")
				}
			}
		case pipeline.StateSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}

	if err := retention.Run(r.Config, r.now(), r.Log); err != nil {
		// The backups themselves succeeded; do not fail the invocation.
		r.Log.WithError(err).Warn("retention pass failed")
	}

	r.Log.WithFields(logrus.Fields{
		"done":    sum.Done,
		"failed":  sum.Failed,
		"skipped": sum.Skipped,
	}).Info("backup run finished")
	return sum, nil
}

// enumerate queries the API once and returns an ordered, deduplicated work
// list. The list is fixed for the remainder of the run; the API is never
// re-queried mid-run.
func (r *Runner) enumerate(ctx context.Context) ([]incusapi.Instance, error) {
	projects, err := r.Client.ListProjects(ctx)
	if err != nil {
		return nil, &DependencyError{Op: "list projects", Err: err}
	}
	sort.Strings(projects)

	seen := map[incusapi.Instance]struct{}{}
	var out []incusapi.Instance
	for _, p := range projects {
		insts, err := r.Client.ListInstances(ctx, p)
		if err != nil {
			return nil, &DependencyError{Op: "list instances in " + p, Err: err}
		}
		for _, inst := range insts {
			if _, dup := seen[inst]; dup {
				continue
			}
			seen[inst] = struct{}{}
			out = append(out, inst)
		}
	}
	return out, nil
}
