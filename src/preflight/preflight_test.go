package preflight_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"incus-autobackup/src/preflight"
)

func TestCheckFreeSpace_ZeroMinimumPasses(t *testing.T) {
	if err := preflight.CheckFreeSpace(t.TempDir(), 0); err != nil {
		t.Fatalf("CheckFreeSpace: %v", err)
	}
}

func TestCheckFreeSpace_ImpossibleMinimumFails(t *testing.T) {
	// 1 EiB of free space is not going to be there.
	err := preflight.CheckFreeSpace(t.TempDir(), 1<<30)
	if err == nil {
		t.Fatalf("expected capacity failure")
	}
	var pe *preflight.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %T: %v", err, err)
	}
	if pe.Check != "capacity" {
		t.Fatalf("Check = %q, want capacity", pe.Check)
	}
}

func TestCheckMounted_MissingRoot(t *testing.T) {
	err := preflight.CheckMounted(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatalf("expected mount failure for missing root")
	}
	var pe *preflight.PreconditionError
	if !errors.As(err, &pe) || pe.Check != "mount" {
		t.Fatalf("expected mount PreconditionError, got %v", err)
	}
}

func TestCheckMounted_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := preflight.CheckMounted(f); err == nil {
		t.Fatalf("expected mount failure for non-directory root")
	}
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	if err := preflight.CheckWritable(dir); err != nil {
		t.Fatalf("CheckWritable: %v", err)
	}
	// The probe file must not survive.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("probe file left behind: %v", entries[0].Name())
	}
}

func TestCheckWritable_ReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dir, 0o755)
	if err := preflight.CheckWritable(dir); err == nil {
		t.Fatalf("expected writable check to fail on read-only dir")
	}
}

func TestCheckPrivileged(t *testing.T) {
	err := preflight.CheckPrivileged()
	if os.Geteuid() == 0 {
		if err != nil {
			t.Fatalf("CheckPrivileged as root: %v", err)
		}
		return
	}
	var pe *preflight.PreconditionError
	if !errors.As(err, &pe) || pe.Check != "privilege" {
		t.Fatalf("expected privilege PreconditionError, got %v", err)
	}
}
