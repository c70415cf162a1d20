package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/normatrack/normatrack/internal/diff"
	"github.com/normatrack/normatrack/internal/usecase"
)

// SideBySideOptions tunes SideBySide.
type SideBySideOptions struct {
	// Width is the total table width. Zero means the width of w.
	Width int
	// Context is the number of unchanged lines kept around changes. Negative
	// shows every line.
	Context int
}

const minTextWidth = 12

// SideBySide prints cmp as a two-column table, base on the left.
func SideBySide(w io.Writer, cmp *usecase.Comparison, opts SideBySideOptions) {
	rows := diff.Fold(diff.SideBySide(cmp.Script), opts.Context)

	width := opts.Width
	if width <= 0 {
		width = TerminalWidth(w)
	}
	textWidth := sideTextWidth(width, rows)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{
		"#", header(cmp.Base.String(), cmp.BaseAt), "", "#", header(cmp.Target.String(), cmp.TargetAt),
	})

	for _, row := range rows {
		if row.IsSkip() {
			t.AppendRow(table.Row{"", fmt.Sprintf("... %d unchanged lines ...", row.Skipped), "", "", ""})
			continue
		}
		t.AppendRow(table.Row{
			lineNumber(row.BaseLine),
			wrapString(row.Base, textWidth),
			string(row.Marker),
			lineNumber(row.TargetLine),
			wrapString(row.Target, textWidth),
		})
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("-%d", cmp.Summary.Removed), "", "", fmt.Sprintf("+%d", cmp.Summary.Added)})
	t.Render()
}

// sideTextWidth splits the width left after borders, padding, line numbers
// and the marker column between the two text columns.
func sideTextWidth(width int, rows []diff.Row) int {
	maxLine := 0
	for _, row := range rows {
		maxLine = max(maxLine, row.BaseLine, row.TargetLine)
	}
	numWidth := len(strconv.Itoa(maxLine))
	const columns = 5
	overhead := columns*3 + 1 + 2*numWidth + 1
	return max((width-overhead)/2, minTextWidth)
}
