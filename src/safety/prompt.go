package safety

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Options carries the global destructive-action flags.
type Options struct {
	// DryRun plans and previews but never deletes.
	DryRun bool
	// Yes answers prompts non-interactively, for timer-driven runs.
	Yes bool
}

// Confirm prompts the user to confirm a destructive action.
//   - If opts.Yes is true, it returns true without prompting.
//   - If opts.DryRun is true, it returns false with no error (no action
//     should be taken).
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		return false, nil
	}
	if opts.Yes {
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	ans := strings.TrimSpace(strings.ToLower(line))
	return ans == "y" || ans == "yes", nil
}
