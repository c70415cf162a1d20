package sqldb

import (
	"context"
	"database/sql"
)

const getRecord = `SELECT record_id, source_url, created_at, updated_at FROM records WHERE record_id = ?`

func (q *Queries) GetRecord(ctx context.Context, recordID string) (Record, error) {
	row := q.db.QueryRowContext(ctx, getRecord, recordID)
	var i Record
	err := row.Scan(&i.RecordID, &i.SourceURL, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const insertRecord = `INSERT INTO records (record_id, source_url, created_at, updated_at) VALUES (?, ?, ?, ?)`

type InsertRecordParams struct {
	RecordID  string
	SourceURL string
	CreatedAt string
	UpdatedAt string
}

func (q *Queries) InsertRecord(ctx context.Context, arg InsertRecordParams) error {
	_, err := q.db.ExecContext(ctx, insertRecord, arg.RecordID, arg.SourceURL, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateRecordSourceURL = `UPDATE records SET source_url = ?, updated_at = ? WHERE record_id = ?`

type UpdateRecordSourceURLParams struct {
	SourceURL string
	UpdatedAt string
	RecordID  string
}

func (q *Queries) UpdateRecordSourceURL(ctx context.Context, arg UpdateRecordSourceURLParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateRecordSourceURL, arg.SourceURL, arg.UpdatedAt, arg.RecordID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listRecordsWithStats = `
SELECT r.record_id, r.source_url, r.created_at, r.updated_at,
       COUNT(s.sequence) AS snapshot_count,
       MAX(s.captured_at) AS last_captured_at
FROM records r
LEFT JOIN snapshots s ON s.record_id = r.record_id
GROUP BY r.record_id
ORDER BY r.record_id`

type ListRecordsWithStatsRow struct {
	RecordID       string
	SourceURL      string
	CreatedAt      string
	UpdatedAt      string
	SnapshotCount  int64
	LastCapturedAt sql.NullString
}

func (q *Queries) ListRecordsWithStats(ctx context.Context) ([]ListRecordsWithStatsRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecordsWithStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListRecordsWithStatsRow
	for rows.Next() {
		var i ListRecordsWithStatsRow
		if err := rows.Scan(
			&i.RecordID,
			&i.SourceURL,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.SnapshotCount,
			&i.LastCapturedAt,
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

const countRecords = `SELECT COUNT(*) FROM records`

func (q *Queries) CountRecords(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countRecords)
	var count int64
	err := row.Scan(&count)
	return count, err
}
