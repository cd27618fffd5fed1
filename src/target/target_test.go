package target_test

import (
	"testing"

	"incus-autobackup/src/target"
)

func TestParse_Dir_OK(t *testing.T) {
	got, err := target.Parse("dir:/mnt/backup/incus")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.Scheme != "dir" {
		t.Fatalf("scheme = %q, want dir", got.Scheme)
	}
	if got.DirPath != "/mnt/backup/incus" {
		t.Fatalf("DirPath = %q, want /mnt/backup/incus", got.DirPath)
	}
}

func TestParse_Dir_Cleans(t *testing.T) {
	got, err := target.Parse("dir://mnt//backup/")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.DirPath != "/mnt/backup" {
		t.Fatalf("DirPath = %q, want /mnt/backup", got.DirPath)
	}
}

func TestParse_Invalid_Empty(t *testing.T) {
	if _, err := target.Parse(""); err == nil {
		t.Fatalf("expected error for empty target")
	}
}

func TestParse_Invalid_NoScheme(t *testing.T) {
	if _, err := target.Parse("/var/backups"); err == nil {
		t.Fatalf("expected error for missing scheme")
	}
}

func TestParse_Invalid_UnsupportedScheme(t *testing.T) {
	if _, err := target.Parse("s3:/repo"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestParse_Dir_Relative_Invalid(t *testing.T) {
	if _, err := target.Parse("dir:relative/path"); err == nil {
		t.Fatalf("expected error for relative path")
	}
}

func TestString_Canonical(t *testing.T) {
	got, err := target.Parse("dir:/mnt/backup")
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "dir:/mnt/backup" {
		t.Fatalf("String() = %q", got.String())
	}
}
