package diff

// Row markers.
const (
	MarkEqual   = ' '
	MarkDelete  = '-'
	MarkInsert  = '+'
	MarkReplace = '~'
)

// DefaultContext is the number of unchanged lines kept around each change
// when folding.
const DefaultContext = 4

// Row is one line of a two-column view. The side without a line has a zero
// line number and an empty text.
type Row struct {
	Marker     rune   `json:"marker"`
	BaseLine   int    `json:"base_line,omitempty"`
	Base       string `json:"base,omitempty"`
	TargetLine int    `json:"target_line,omitempty"`
	Target     string `json:"target,omitempty"`
	// Skipped is the number of unchanged lines folded into this row. Rows
	// with Skipped > 0 carry no text.
	Skipped int `json:"skipped,omitempty"`
}

// IsSkip reports whether the row stands for folded lines.
func (r Row) IsSkip() bool { return r.Skipped > 0 }

// SideBySide projects an edit script into two aligned columns.
func SideBySide(script []Op) []Row {
	rows := make([]Row, 0, len(script))
	for _, op := range script {
		row := Row{BaseLine: op.BaseLine, TargetLine: op.TargetLine}
		switch op.Kind {
		case Equal:
			row.Marker = MarkEqual
			row.Base, row.Target = op.Base, op.Target
		case Delete:
			row.Marker = MarkDelete
			row.Base = op.Base
		case Insert:
			row.Marker = MarkInsert
			row.Target = op.Target
		case Replace:
			row.Marker = MarkReplace
			row.Base, row.Target = op.Base, op.Target
		}
		rows = append(rows, row)
	}
	return rows
}

// Fold keeps at most context unchanged rows on each side of a change and
// replaces the rest of every unchanged run with a single skip row. A negative
// context returns rows unchanged.
func Fold(rows []Row, context int) []Row {
	if context < 0 {
		return rows
	}

	out := make([]Row, 0, len(rows))
	for i := 0; i < len(rows); {
		if rows[i].Marker != MarkEqual || rows[i].IsSkip() {
			out = append(out, rows[i])
			i++
			continue
		}

		j := i
		for j < len(rows) && rows[j].Marker == MarkEqual && !rows[j].IsSkip() {
			j++
		}
		run := rows[i:j]

		head, tail := context, context
		if i == 0 {
			head = 0
		}
		if j == len(rows) {
			tail = 0
		}
		if len(run) > head+tail {
			out = append(out, run[:head]...)
			out = append(out, Row{Marker: MarkEqual, Skipped: len(run) - head - tail})
			out = append(out, run[len(run)-tail:]...)
		} else {
			out = append(out, run...)
		}
		i = j
	}
	return out
}
