package database

import (
	"fmt"

	sqldb "github.com/normatrack/normatrack/internal/database/sqlc"
)

// RecordRowFromRecord converts a bare records row.
func RecordRowFromRecord(row sqldb.Record) (RecordRow, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return RecordRow{}, fmt.Errorf("record %s: %w", row.RecordID, err)
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return RecordRow{}, fmt.Errorf("record %s: %w", row.RecordID, err)
	}
	return RecordRow{
		RecordID:  row.RecordID,
		SourceURL: row.SourceURL,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// RecordRowFromStats converts a records row joined with snapshot statistics.
func RecordRowFromStats(row sqldb.ListRecordsWithStatsRow) (RecordRow, error) {
	record, err := RecordRowFromRecord(sqldb.Record{
		RecordID:  row.RecordID,
		SourceURL: row.SourceURL,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	})
	if err != nil {
		return RecordRow{}, err
	}
	record.SnapshotCount = row.SnapshotCount
	if record.LastCapturedAt, err = optionalTime(row.LastCapturedAt); err != nil {
		return RecordRow{}, fmt.Errorf("record %s: %w", row.RecordID, err)
	}
	return record, nil
}

// SnapshotRowFromSnapshot converts a full snapshots row.
func SnapshotRowFromSnapshot(row sqldb.Snapshot) (SnapshotRow, error) {
	capturedAt, err := parseTime(row.CapturedAt)
	if err != nil {
		return SnapshotRow{}, fmt.Errorf("snapshot %s@%d: %w", row.RecordID, row.Sequence, err)
	}
	return SnapshotRow{
		ID:          row.ID,
		RecordID:    row.RecordID,
		Sequence:    row.Sequence,
		CapturedAt:  capturedAt,
		Text:        row.NormalizedText,
		Fingerprint: row.Fingerprint,
		RawRef:      row.RawRef,
	}, nil
}

// SnapshotRowFromMeta converts a snapshots row loaded without its text.
func SnapshotRowFromMeta(row sqldb.ListSnapshotMetaRow) (SnapshotRow, error) {
	return SnapshotRowFromSnapshot(sqldb.Snapshot{
		RecordID:    row.RecordID,
		Sequence:    row.Sequence,
		ID:          row.ID,
		CapturedAt:  row.CapturedAt,
		Fingerprint: row.Fingerprint,
		RawRef:      row.RawRef,
	})
}

// SnapshotInsertParams creates insert parameters from a snapshot row.
func SnapshotInsertParams(row SnapshotRow) sqldb.InsertSnapshotParams {
	return sqldb.InsertSnapshotParams{
		RecordID:       row.RecordID,
		Sequence:       row.Sequence,
		ID:             row.ID,
		CapturedAt:     formatTime(row.CapturedAt),
		NormalizedText: row.Text,
		Fingerprint:    row.Fingerprint,
		RawRef:         row.RawRef,
	}
}
