package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"incus-autobackup/src/cli"
	"incus-autobackup/src/version"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errBuf bytes.Buffer
	cmd := cli.NewRootCmd(&out, &errBuf)
	cmd.SetArgs(args)
	_, err := cmd.ExecuteC()
	return out.String(), errBuf.String(), err
}

func TestRootHelp_ListsCommands(t *testing.T) {
	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, want := range []string{"run", "prune", "list", "version"} {
		if !strings.Contains(out, want) {
			t.Fatalf("help missing %q:\n%s", want, out)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out) != version.Version {
		t.Fatalf("version output = %q, want %q", out, version.Version)
	}
}

func TestListCmd_Table(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "daily", "web-01_2026-08-28.tar.gz"))
	mustWrite(t, filepath.Join(root, "weekly", "a_b_2026-08-23.tar.gz"))

	out, errBuf, err := execute(t, "list", "--target", "dir:"+root)
	if err != nil {
		t.Fatalf("list failed: %v; stderr=%s", err, errBuf)
	}
	if !strings.Contains(out, "web-01") || !strings.Contains(out, "2026-08-28") {
		t.Fatalf("daily row missing:\n%s", out)
	}
	if !strings.Contains(out, "a_b") || !strings.Contains(out, "weekly") {
		t.Fatalf("weekly row missing:\n%s", out)
	}
}

func TestListCmd_JSON(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "daily", "web-01_2026-08-28.tar.gz"))

	out, _, err := execute(t, "list", "--target", "dir:"+root, "-o", "json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, `"instance": "web-01"`) {
		t.Fatalf("json output missing instance:\n%s", out)
	}
}

func TestListCmd_RequiresTarget(t *testing.T) {
	if _, _, err := execute(t, "list"); err == nil {
		t.Fatalf("expected error without --target")
	}
}

func TestPruneCmd_RemovesExpiredDailies(t *testing.T) {
	root := t.TempDir()
	old := mustWrite(t, filepath.Join(root, "daily", "web_2026-08-01.tar.gz"))
	fresh := mustWrite(t, filepath.Join(root, "daily", "web_2026-08-28.tar.gz"))
	age(t, old, 10)

	out, errBuf, err := execute(t, "prune", "--target", "dir:"+root, "-y")
	if err != nil {
		t.Fatalf("prune failed: %v; stderr=%s", err, errBuf)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected expired archive removed; stat err=%v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh archive retained: %v", err)
	}
	if !strings.Contains(out, "delete") {
		t.Fatalf("expected delete preview in output:\n%s", out)
	}
}

func TestPruneCmd_DryRunDoesNotDelete(t *testing.T) {
	root := t.TempDir()
	old := mustWrite(t, filepath.Join(root, "daily", "db_2026-08-01.tar.gz"))
	age(t, old, 10)

	out, errBuf, err := execute(t, "prune", "--target", "dir:"+root, "--dry-run")
	if err != nil {
		t.Fatalf("prune failed: %v; stderr=%s", err, errBuf)
	}
	if _, err := os.Stat(old); err != nil {
		t.Fatalf("dry-run must not delete: %v", err)
	}
	if !strings.Contains(out, "delete") {
		t.Fatalf("expected preview of deletions even in dry-run:\n%s", out)
	}
}

func TestPruneCmd_RotatesWeeklies(t *testing.T) {
	root := t.TempDir()
	dates := []string{"2026-07-26", "2026-08-02", "2026-08-09", "2026-08-16", "2026-08-23", "2026-08-30"}
	var paths []string
	for i, d := range dates {
		p := mustWrite(t, filepath.Join(root, "weekly", "web-01_"+d+".tar.gz"))
		age(t, p, 7*(len(dates)-1-i))
		paths = append(paths, p)
	}

	_, errBuf, err := execute(t, "prune", "--target", "dir:"+root, "-y")
	if err != nil {
		t.Fatalf("prune failed: %v; stderr=%s", err, errBuf)
	}
	for i, p := range paths {
		_, err := os.Stat(p)
		if i < 2 && !os.IsNotExist(err) {
			t.Fatalf("oldest weekly %s should be rotated out; stat err=%v", p, err)
		}
		if i >= 2 && err != nil {
			t.Fatalf("weekly %s should be retained: %v", p, err)
		}
	}
}

func TestRunCmd_RequiresTarget(t *testing.T) {
	if _, _, err := execute(t, "run"); err == nil {
		t.Fatalf("expected error without --target")
	}
}

func TestRunCmd_MissingRootFailsPreflight(t *testing.T) {
	t.Setenv("INCUS_AUTOBACKUP_REQUIRE_ROOT", "false")
	missing := filepath.Join(t.TempDir(), "not-mounted")
	_, _, err := execute(t, "run", "--target", "dir:"+missing)
	if err == nil {
		t.Fatalf("expected fatal precondition for missing backup root")
	}
}

func mustWrite(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func age(t *testing.T, path string, days int) {
	t.Helper()
	mtime := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}
