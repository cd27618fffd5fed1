// Package preflight gates a backup run on the fatal preconditions: process
// privilege, a really-mounted target, and a free-space floor. All checks are
// read-only except the writability probe, which creates and removes one
// temporary file.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// PreconditionError marks a fatal gate failure. The run must abort before any
// instance work when one is returned.
type PreconditionError struct {
	Check string // privilege|mount|capacity|writable
	Err   error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition %s: %v", e.Check, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// CheckPrivileged verifies the process runs as root. Instance exports preserve
// ownership, so unprivileged runs produce broken archives.
func CheckPrivileged() error {
	if os.Geteuid() != 0 {
		return &PreconditionError{Check: "privilege", Err: fmt.Errorf("must run as root (euid %d)", os.Geteuid())}
	}
	return nil
}

// CheckMounted verifies root is an existing directory that does not sit on the
// system partition. An unmounted backup drive leaves a plain directory on the
// root filesystem; writing there fills the system disk instead of the target.
func CheckMounted(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return &PreconditionError{Check: "mount", Err: fmt.Errorf("backup root %s does not exist", root)}
		}
		return &PreconditionError{Check: "mount", Err: fmt.Errorf("stat backup root: %w", err)}
	}
	if !info.IsDir() {
		return &PreconditionError{Check: "mount", Err: fmt.Errorf("backup root %s is not a directory", root)}
	}
	if err := validateMountPoint(root); err != nil {
		return &PreconditionError{Check: "mount", Err: err}
	}
	return nil
}

// CheckFreeSpace verifies the filesystem holding root has at least minGiB
// gibibytes available.
func CheckFreeSpace(root string, minGiB uint64) error {
	free, err := freeBytes(root)
	if err != nil {
		return &PreconditionError{Check: "capacity", Err: fmt.Errorf("query free space: %w", err)}
	}
	min := minGiB * humanize.GiByte
	if free < min {
		return &PreconditionError{Check: "capacity", Err: fmt.Errorf(
			"insufficient free space on %s: %s available, %s required",
			root, humanize.IBytes(free), humanize.IBytes(min))}
	}
	return nil
}

// CheckWritable ensures the root accepts writes by creating and deleting a
// probe file.
func CheckWritable(root string) error {
	probe := filepath.Join(root, ".incus-autobackup-writetest")
	f, err := os.Create(probe)
	if err != nil {
		return &PreconditionError{Check: "writable", Err: fmt.Errorf("backup root %s is not writable: %w", root, err)}
	}
	f.Close()
	_ = os.Remove(probe)
	return nil
}
