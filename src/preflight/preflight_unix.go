//go:build !windows

package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// validateMountPoint rejects paths that live on the same device as "/".
// A backup root on the system partition usually means the external drive is
// not mounted and we are looking at a ghost directory.
func validateMountPoint(path string) error {
	rootInfo, err := os.Stat("/")
	if err != nil {
		return fmt.Errorf("stat /: %w", err)
	}
	rootStat, ok := rootInfo.Sys().(*unix.Stat_t)
	if !ok {
		return fmt.Errorf("unsupported platform for unix.Stat_t")
	}
	pathInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	pathStat, ok := pathInfo.Sys().(*unix.Stat_t)
	if !ok {
		return fmt.Errorf("unsupported platform for unix.Stat_t")
	}
	if pathStat.Dev == rootStat.Dev && path != "/" {
		return fmt.Errorf("%s is on the root filesystem; is the backup drive mounted?", path)
	}
	return nil
}

func freeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	// Bavail: blocks available to unprivileged users, the conservative figure.
	return st.Bavail * uint64(st.Bsize), nil
}
