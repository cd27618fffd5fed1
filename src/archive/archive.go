// Package archive defines the on-disk layout of the backup target and the
// archive naming scheme shared by the pipeline, the weekly promoter and the
// retention passes.
//
// Layout: <root>/daily/<instance>_<YYYY-MM-DD><ext> and the same under
// <root>/weekly. The extension is fixed by the configured compression
// algorithm so that existence checks on re-runs compare the same path.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Tier classifies an archive by retention rule.
type Tier string

const (
	TierDaily  Tier = "daily"
	TierWeekly Tier = "weekly"
)

// DateLayout is the calendar-date component of archive filenames.
const DateLayout = "2006-01-02"

// knownExts lists every archive extension a run may have produced. Parsing
// must accept all of them because the compression setting can change between
// deployments, and old archives keep their suffix.
var knownExts = []string{".tar.gz", ".tar.xz", ".tar.zst", ".tar"}

// TierDir returns the directory holding one tier's archives.
func TierDir(root string, tier Tier) string {
	return filepath.Join(root, string(tier))
}

// Filename builds the archive filename for an instance and date.
func Filename(instance string, date time.Time, ext string) string {
	return fmt.Sprintf("%s_%s%s", instance, date.Format(DateLayout), ext)
}

// Path builds the absolute archive path for an instance, date and tier.
func Path(root string, tier Tier, instance string, date time.Time, ext string) string {
	return filepath.Join(TierDir(root, tier), Filename(instance, date, ext))
}

// EnsureLayout creates the daily/ and weekly/ subdirectories on first run.
func EnsureLayout(root string) error {
	for _, tier := range []Tier{TierDaily, TierWeekly} {
		if err := os.MkdirAll(TierDir(root, tier), 0o755); err != nil {
			return fmt.Errorf("create %s tier: %w", tier, err)
		}
	}
	return nil
}

// ParseName splits an archive filename into instance name and date.
//
// The instance name is recovered by stripping the trailing _<date><ext>
// suffix, never by splitting on the separator: instance names may themselves
// contain underscores ("a_b" must parse as "a_b", not "a").
func ParseName(filename string) (instance string, date time.Time, ok bool) {
	base := filename
	ext := ""
	for _, e := range knownExts {
		if strings.HasSuffix(base, e) {
			ext = e
			break
		}
	}
	if ext == "" {
		return "", time.Time{}, false
	}
	base = strings.TrimSuffix(base, ext)
	// Expect ..._YYYY-MM-DD at the end.
	const dateLen = len(DateLayout)
	if len(base) < dateLen+2 || base[len(base)-dateLen-1] != '_' {
		return "", time.Time{}, false
	}
	d, err := time.Parse(DateLayout, base[len(base)-dateLen:])
	if err != nil {
		return "", time.Time{}, false
	}
	return base[:len(base)-dateLen-1], d, true
}
