package render

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"

	"github.com/normatrack/normatrack/internal/snapshot"
)

// maxURLWidth truncates source URLs in the records table.
const maxURLWidth = 60

// History prints the snapshot metadata of one record.
func History(w io.Writer, metas []snapshot.SnapshotMeta) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Seq", "Captured", "Fingerprint", "Raw", "ID"})

	for _, m := range metas {
		raw := ""
		if len(m.RawRef) >= 12 {
			raw = m.RawRef[:12]
		}
		t.AppendRow(table.Row{
			m.Sequence,
			m.CapturedAt.Format(TimeLayout),
			m.Fingerprint.Short(),
			raw,
			m.ID,
		})
	}
	t.Render()
}

// Records prints the tracked records.
func Records(w io.Writer, records []snapshot.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"Record", "Snapshots", "Last captured", "Source URL"})

	for _, r := range records {
		last := ""
		if !r.LastCapturedAt.IsZero() {
			last = r.LastCapturedAt.Format(TimeLayout)
		}
		t.AppendRow(table.Row{
			r.RecordID,
			r.Snapshots,
			last,
			runewidth.Truncate(r.SourceURL, maxURLWidth, "..."),
		})
	}
	t.Render()
}

func header(ref string, at time.Time) string {
	if at.IsZero() {
		return ref
	}
	return ref + "  " + at.UTC().Format(TimeLayout)
}
