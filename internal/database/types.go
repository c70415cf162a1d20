package database

import "time"

// RecordRow represents a row in the records table together with snapshot
// statistics aggregated from the snapshots table.
type RecordRow struct {
	RecordID       string
	SourceURL      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SnapshotCount  int64
	LastCapturedAt time.Time
}

// SnapshotRow corresponds to a row in the snapshots table. Text is empty when
// the row was loaded without its content.
type SnapshotRow struct {
	ID          string
	RecordID    string
	Sequence    int64
	CapturedAt  time.Time
	Text        string
	Fingerprint string
	RawRef      string
}
