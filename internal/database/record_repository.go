package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqldb "github.com/normatrack/normatrack/internal/database/sqlc"
)

type RecordRepository struct {
	ctx *Context
}

func NewRecordRepository(dbCtx *Context) *RecordRepository {
	return &RecordRepository{ctx: dbCtx}
}

func (r *RecordRepository) FindByID(ctx context.Context, recordID string) (*RecordRow, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("record repository: missing database context")
	}

	row, err := queries.GetRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	record, err := RecordRowFromRecord(row)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *RecordRepository) List(ctx context.Context) ([]RecordRow, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("record repository: missing database context")
	}

	rows, err := queries.ListRecordsWithStats(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]RecordRow, 0, len(rows))
	for _, row := range rows {
		record, err := RecordRowFromStats(row)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}

func (r *RecordRepository) Count(ctx context.Context) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, fmt.Errorf("record repository: missing database context")
	}
	return queries.CountRecords(ctx)
}

func (r *RecordRepository) Create(ctx context.Context, recordID, sourceURL string, now time.Time) error {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return fmt.Errorf("record repository: missing database context")
	}

	stamp := formatTime(now)
	return queries.InsertRecord(ctx, sqldb.InsertRecordParams{
		RecordID:  recordID,
		SourceURL: sourceURL,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	})
}

// UpdateSourceURL reports whether a record was updated.
func (r *RecordRepository) UpdateSourceURL(ctx context.Context, recordID, sourceURL string, now time.Time) (bool, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return false, fmt.Errorf("record repository: missing database context")
	}

	affected, err := queries.UpdateRecordSourceURL(ctx, sqldb.UpdateRecordSourceURLParams{
		SourceURL: sourceURL,
		UpdatedAt: formatTime(now),
		RecordID:  recordID,
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
