package render

import (
	"fmt"
	"io"

	"github.com/normatrack/normatrack/internal/diff"
	"github.com/normatrack/normatrack/internal/usecase"
)

// DefaultChangesLimit caps the lines printed by Changes.
const DefaultChangesLimit = 200

// Summary prints a one-line count of what changed between the two snapshots.
func Summary(w io.Writer, cmp *usecase.Comparison) error {
	if cmp.Identical() {
		_, err := fmt.Fprintf(w, "%s -> %s: no changes (%d lines)\n", cmp.Base, cmp.Target, cmp.Summary.Unchanged)
		return err
	}
	_, err := fmt.Fprintf(w, "%s -> %s: +%d -%d, %d unchanged\n",
		cmp.Base, cmp.Target, cmp.Summary.Added, cmp.Summary.Removed, cmp.Summary.Unchanged)
	return err
}

// Changes prints the summary line and then only the changed lines, at most
// limit of them. A non-positive limit means DefaultChangesLimit.
func Changes(w io.Writer, cmp *usecase.Comparison, limit int) error {
	if limit <= 0 {
		limit = DefaultChangesLimit
	}
	if err := Summary(w, cmp); err != nil {
		return err
	}

	var lines []string
	for _, op := range cmp.Changes() {
		switch op.Kind {
		case diff.Delete:
			lines = append(lines, fmt.Sprintf("- %5d  %s", op.BaseLine, op.Base))
		case diff.Insert:
			lines = append(lines, fmt.Sprintf("+ %5d  %s", op.TargetLine, op.Target))
		case diff.Replace:
			lines = append(lines,
				fmt.Sprintf("- %5d  %s", op.BaseLine, op.Base),
				fmt.Sprintf("+ %5d  %s", op.TargetLine, op.Target))
		}
	}

	shown := min(len(lines), limit)
	for _, line := range lines[:shown] {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if hidden := len(lines) - shown; hidden > 0 {
		if _, err := fmt.Fprintf(w, "... %d more changed lines not shown\n", hidden); err != nil {
			return err
		}
	}
	return nil
}
