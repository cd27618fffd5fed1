package pipeline

import (
	"testing"
	"time"
)

func TestSnapshotName(t *testing.T) {
	date := time.Date(2026, 8, 28, 3, 15, 7, 0, time.UTC)
	got := snapshotName(date, "031507")
	if got != "autobackup-2026-08-28-031507" {
		t.Fatalf("snapshotName = %q", got)
	}
	if !isBackupSnapshot(got) {
		t.Fatalf("generated snapshot name must match its own sweep pattern")
	}
}

func TestImageAlias_RoundTrips(t *testing.T) {
	date := time.Date(2026, 8, 28, 3, 15, 7, 0, time.UTC)
	for _, inst := range []string{"web", "web-01", "a_b", "a-2026-01-01-x"} {
		alias := imageAlias(inst, date, "031507")
		if !isBackupAlias(alias, inst) {
			t.Fatalf("alias %q must match instance %q", alias, inst)
		}
	}
}

func TestIsBackupAlias_NoPrefixClaims(t *testing.T) {
	alias := imageAlias("web-01", time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), "031507")
	if isBackupAlias(alias, "web") {
		t.Fatalf("instance web must not claim %q", alias)
	}
	if isBackupAlias(alias, "web-01-db") {
		t.Fatalf("instance web-01-db must not claim %q", alias)
	}
}

func TestIsBackupSnapshot_RejectsForeignNames(t *testing.T) {
	for _, name := range []string{"snap0", "autobackup-", "autobackup-2026-08-28", "backup-2026-08-28-031507"} {
		if isBackupSnapshot(name) {
			t.Fatalf("%q must not be treated as ours", name)
		}
	}
}
