package archive

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Entry describes one archive discovered on the target.
type Entry struct {
	Tier     Tier      `json:"tier"`
	Instance string    `json:"instance"`
	Date     string    `json:"date"` // YYYY-MM-DD from the filename
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
}

// List scans both tiers under root and returns every parseable archive,
// sorted by tier, instance, then date. Files that do not match the naming
// scheme are ignored; a missing tier directory is an empty result, not an
// error.
func List(root string) ([]Entry, error) {
	var entries []Entry
	for _, tier := range []Tier{TierDaily, TierWeekly} {
		e, err := ListTier(root, tier)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e...)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Instance != b.Instance {
			return a.Instance < b.Instance
		}
		return a.Date < b.Date
	})
	return entries, nil
}

// ListTier scans a single tier directory.
func ListTier(root string, tier Tier) ([]Entry, error) {
	dir := TierDir(root, tier)
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		instance, date, ok := ParseName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Tier:     tier,
			Instance: instance,
			Date:     date.Format(DateLayout),
			Path:     filepath.Join(dir, de.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	return entries, nil
}
