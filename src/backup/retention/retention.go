// Package retention prunes the archive tree after a run: daily archives past
// a maximum age are expired, and weekly archives are rotated down to a fixed
// count per instance. Planning and applying are split so the prune command
// can preview deletions.
package retention

import (
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"incus-autobackup/src/archive"
	"incus-autobackup/src/config"
)

// Candidate is one archive planned for deletion.
type Candidate struct {
	Tier     archive.Tier
	Instance string
	Date     string
	Path     string
	ModTime  time.Time
	Reason   string // "expired" or "rotated"
}

// PlanDailyExpiry returns every daily archive whose last-modified time is
// older than maxAge at the given moment. Age is measured from mtime, not the
// date in the filename, so a re-copied archive counts as fresh.
func PlanDailyExpiry(root string, maxAge time.Duration, now time.Time) ([]Candidate, error) {
	entries, err := archive.ListTier(root, archive.TierDaily)
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for _, e := range entries {
		if now.Sub(e.ModTime) > maxAge {
			out = append(out, Candidate{
				Tier:     e.Tier,
				Instance: e.Instance,
				Date:     e.Date,
				Path:     e.Path,
				ModTime:  e.ModTime,
				Reason:   "expired",
			})
		}
	}
	return out, nil
}

// PlanWeeklyRotation groups weekly archives by instance and, within each
// group, keeps the newest keep archives by mtime and plans the rest for
// deletion. Grouping relies on the suffix-stripping filename parser, so
// instance names containing the filename separator group correctly. Groups
// with keep or fewer archives are untouched.
func PlanWeeklyRotation(root string, keep int) ([]Candidate, error) {
	entries, err := archive.ListTier(root, archive.TierWeekly)
	if err != nil {
		return nil, err
	}
	byInstance := map[string][]archive.Entry{}
	for _, e := range entries {
		byInstance[e.Instance] = append(byInstance[e.Instance], e)
	}
	instances := make([]string, 0, len(byInstance))
	for name := range byInstance {
		instances = append(instances, name)
	}
	sort.Strings(instances)

	var out []Candidate
	for _, name := range instances {
		group := byInstance[name]
		sort.Slice(group, func(i, j int) bool {
			return group[i].ModTime.After(group[j].ModTime)
		})
		if len(group) <= keep {
			continue
		}
		for _, e := range group[keep:] {
			out = append(out, Candidate{
				Tier:     e.Tier,
				Instance: e.Instance,
				Date:     e.Date,
				Path:     e.Path,
				ModTime:  e.ModTime,
				Reason:   "rotated",
			})
		}
	}
	return out, nil
}

// Apply deletes the planned candidates. Individual deletion failures are
// logged and do not stop the pass; the count of removed files is returned.
func Apply(candidates []Candidate, log logrus.FieldLogger) int {
	removed := 0
	for _, c := range candidates {
		if err := os.Remove(c.Path); err != nil {
			log.WithError(err).WithField("path", c.Path).Warn("retention: delete failed")
			continue
		}
		removed++
		log.WithFields(logrus.Fields{
			"tier":     c.Tier,
			"instance": c.Instance,
			"path":     c.Path,
			"reason":   c.Reason,
		}).Info("retention: archive deleted")
	}
	return removed
}

// Run executes both passes for a finished run: daily expiry first, then
// weekly rotation.
func Run(cfg config.Config, now time.Time, log logrus.FieldLogger) error {
	expired, err := PlanDailyExpiry(cfg.Root, cfg.Retention.DailyMaxAge, now)
	if err != nil {
		return err
	}
	Apply(expired, log)

	rotated, err := PlanWeeklyRotation(cfg.Root, cfg.Retention.WeeklyKeep)
	if err != nil {
		return err
	}
	Apply(rotated, log)
	return nil
}
