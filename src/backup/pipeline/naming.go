package pipeline

import (
	"fmt"
	"regexp"
	"time"

	"incus-autobackup/src/archive"
)

// Remote artifact naming. The "autobackup-" prefix is what the orphan sweep
// keys on, so anything created here must keep that shape.
const artifactPrefix = "autobackup-"

// tokenLayout is the time-of-day uniqueness token (HHMMSS).
const tokenLayout = "150405"

func snapshotName(date time.Time, token string) string {
	return fmt.Sprintf("%s%s-%s", artifactPrefix, date.Format(archive.DateLayout), token)
}

func imageAlias(instance string, date time.Time, token string) string {
	return fmt.Sprintf("%s%s-%s-%s", artifactPrefix, instance, date.Format(archive.DateLayout), token)
}

var (
	snapshotRe = regexp.MustCompile(`^autobackup-\d{4}-\d{2}-\d{2}-\d{6}$`)
	aliasRe    = regexp.MustCompile(`^autobackup-(.+)-\d{4}-\d{2}-\d{2}-\d{6}$`)
)

// isBackupSnapshot reports whether name looks like a snapshot this tool
// created, on any date.
func isBackupSnapshot(name string) bool {
	return snapshotRe.MatchString(name)
}

// isBackupAlias reports whether alias belongs to the given instance. The
// instance name is matched against the full captured segment, not a prefix,
// so "web" never claims aliases of "web-01".
func isBackupAlias(alias, instance string) bool {
	m := aliasRe.FindStringSubmatch(alias)
	return m != nil && m[1] == instance
}
