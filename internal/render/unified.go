package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/normatrack/normatrack/internal/diff"
	"github.com/normatrack/normatrack/internal/usecase"
)

// Unified prints cmp in unified diff format with context unchanged lines
// around each hunk. Identical snapshots print nothing.
func Unified(w io.Writer, cmp *usecase.Comparison, context int) error {
	fd := UnifiedDiff(cmp, context)
	if len(fd.Hunks) == 0 {
		return nil
	}
	out, err := godiff.PrintFileDiff(fd)
	if err != nil {
		return fmt.Errorf("print unified diff: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// UnifiedDiff converts cmp into a file diff whose names are the snapshot
// references.
func UnifiedDiff(cmp *usecase.Comparison, context int) *godiff.FileDiff {
	fd := &godiff.FileDiff{
		OrigName: cmp.Base.String(),
		OrigTime: timePtr(cmp.BaseAt),
		NewName:  cmp.Target.String(),
		NewTime:  timePtr(cmp.TargetAt),
	}
	fd.Hunks = hunks(cmp.Script, max(context, 0))
	return fd
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// hunks groups the script into hunks. Changes separated by at most
// 2*context unchanged lines share a hunk.
func hunks(script []diff.Op, context int) []*godiff.Hunk {
	// basePos[i] and targetPos[i] count lines consumed before op i.
	basePos := make([]int, len(script)+1)
	targetPos := make([]int, len(script)+1)
	for i, op := range script {
		basePos[i+1], targetPos[i+1] = basePos[i], targetPos[i]
		if op.Kind != diff.Insert {
			basePos[i+1]++
		}
		if op.Kind != diff.Delete {
			targetPos[i+1]++
		}
	}

	var ranges [][2]int
	for i, op := range script {
		if op.Kind == diff.Equal {
			continue
		}
		start, end := max(i-context, 0), min(i+context+1, len(script))
		if n := len(ranges); n > 0 && start <= ranges[n-1][1] {
			ranges[n-1][1] = end
			continue
		}
		ranges = append(ranges, [2]int{start, end})
	}

	out := make([]*godiff.Hunk, 0, len(ranges))
	for _, r := range ranges {
		origLines := basePos[r[1]] - basePos[r[0]]
		newLines := targetPos[r[1]] - targetPos[r[0]]
		out = append(out, &godiff.Hunk{
			OrigStartLine: startLine(basePos[r[0]], origLines),
			OrigLines:     int32(origLines),
			NewStartLine:  startLine(targetPos[r[0]], newLines),
			NewLines:      int32(newLines),
			Body:          hunkBody(script[r[0]:r[1]]),
		})
	}
	return out
}

// startLine follows the unified convention: an empty side names the line
// after which the hunk applies.
func startLine(before, lines int) int32 {
	if lines == 0 {
		return int32(before)
	}
	return int32(before + 1)
}

// hunkBody writes each change run as its deletions followed by its
// insertions.
func hunkBody(ops []diff.Op) []byte {
	var body, removed, added strings.Builder
	flush := func() {
		body.WriteString(removed.String())
		body.WriteString(added.String())
		removed.Reset()
		added.Reset()
	}
	for _, op := range ops {
		switch op.Kind {
		case diff.Equal:
			flush()
			body.WriteString(" " + op.Base + "\n")
		case diff.Delete:
			removed.WriteString("-" + op.Base + "\n")
		case diff.Insert:
			added.WriteString("+" + op.Target + "\n")
		case diff.Replace:
			removed.WriteString("-" + op.Base + "\n")
			added.WriteString("+" + op.Target + "\n")
		}
	}
	flush()
	return []byte(body.String())
}
