// Package promote copies a finished daily archive into the weekly tier on
// the designated weekday. The weekly copy is supplementary: its failure is
// logged but never fails the job that produced the daily archive.
package promote

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"incus-autobackup/src/archive"
	"incus-autobackup/src/backup/pipeline"
	"incus-autobackup/src/config"
)

// Due reports whether a job's run date falls on the promotion weekday.
func Due(cfg config.Config, job *pipeline.Job) bool {
	return job.Date.Weekday() == cfg.PromoteWeekday
}

// Promote copies the job's daily archive into the weekly tier under the same
// (instance, date) name. Only meaningful for jobs that reached DONE.
func Promote(cfg config.Config, job *pipeline.Job, log logrus.FieldLogger) error {
	dst := archive.Path(cfg.Root, archive.TierWeekly, job.Instance.Name, job.Date, cfg.ArchiveExt())
	if err := copyFile(job.ArchivePath, dst); err != nil {
		return fmt.Errorf("promote %s to weekly tier: %w", job.ArchivePath, err)
	}
	log.WithFields(logrus.Fields{
		"instance": job.Instance.Name,
		"weekly":   dst,
	}).Info("daily archive promoted to weekly tier")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
