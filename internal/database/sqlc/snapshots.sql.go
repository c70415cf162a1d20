package sqldb

import "context"

const snapshotColumns = `record_id, sequence, id, captured_at, normalized_text, fingerprint, raw_ref`

func scanSnapshot(row interface{ Scan(dest ...any) error }) (Snapshot, error) {
	var i Snapshot
	err := row.Scan(
		&i.RecordID,
		&i.Sequence,
		&i.ID,
		&i.CapturedAt,
		&i.NormalizedText,
		&i.Fingerprint,
		&i.RawRef,
	)
	return i, err
}

const getLatestSnapshot = `SELECT ` + snapshotColumns + ` FROM snapshots WHERE record_id = ? ORDER BY sequence DESC LIMIT 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context, recordID string) (Snapshot, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getLatestSnapshot, recordID))
}

const getSnapshot = `SELECT ` + snapshotColumns + ` FROM snapshots WHERE record_id = ? AND sequence = ?`

type GetSnapshotParams struct {
	RecordID string
	Sequence int64
}

func (q *Queries) GetSnapshot(ctx context.Context, arg GetSnapshotParams) (Snapshot, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getSnapshot, arg.RecordID, arg.Sequence))
}

const getSnapshotAt = `SELECT ` + snapshotColumns + ` FROM snapshots WHERE record_id = ? AND captured_at <= ? ORDER BY sequence DESC LIMIT 1`

type GetSnapshotAtParams struct {
	RecordID   string
	CapturedAt string
}

func (q *Queries) GetSnapshotAt(ctx context.Context, arg GetSnapshotAtParams) (Snapshot, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getSnapshotAt, arg.RecordID, arg.CapturedAt))
}

const listSnapshotMeta = `SELECT record_id, sequence, id, captured_at, fingerprint, raw_ref FROM snapshots WHERE record_id = ? ORDER BY sequence`

type ListSnapshotMetaRow struct {
	RecordID    string
	Sequence    int64
	ID          string
	CapturedAt  string
	Fingerprint string
	RawRef      string
}

func (q *Queries) ListSnapshotMeta(ctx context.Context, recordID string) ([]ListSnapshotMetaRow, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshotMeta, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListSnapshotMetaRow
	for rows.Next() {
		var i ListSnapshotMetaRow
		if err := rows.Scan(
			&i.RecordID,
			&i.Sequence,
			&i.ID,
			&i.CapturedAt,
			&i.Fingerprint,
			&i.RawRef,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const maxSequenceForRecord = `SELECT CAST(COALESCE(MAX(sequence), 0) AS INTEGER) FROM snapshots WHERE record_id = ?`

func (q *Queries) MaxSequenceForRecord(ctx context.Context, recordID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, maxSequenceForRecord, recordID)
	var maxSequence int64
	err := row.Scan(&maxSequence)
	return maxSequence, err
}

const insertSnapshot = `INSERT INTO snapshots (` + snapshotColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

type InsertSnapshotParams struct {
	RecordID       string
	Sequence       int64
	ID             string
	CapturedAt     string
	NormalizedText string
	Fingerprint    string
	RawRef         string
}

func (q *Queries) InsertSnapshot(ctx context.Context, arg InsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, insertSnapshot,
		arg.RecordID,
		arg.Sequence,
		arg.ID,
		arg.CapturedAt,
		arg.NormalizedText,
		arg.Fingerprint,
		arg.RawRef,
	)
	return err
}
