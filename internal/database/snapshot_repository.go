package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqldb "github.com/normatrack/normatrack/internal/database/sqlc"
)

type SnapshotRepository struct {
	ctx *Context
}

func NewSnapshotRepository(dbCtx *Context) *SnapshotRepository {
	return &SnapshotRepository{ctx: dbCtx}
}

func (r *SnapshotRepository) FindLatest(ctx context.Context, recordID string) (*SnapshotRow, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("snapshot repository: missing database context")
	}

	row, err := queries.GetLatestSnapshot(ctx, recordID)
	return snapshotOrNil(row, err)
}

func (r *SnapshotRepository) FindBySequence(ctx context.Context, recordID string, sequence int64) (*SnapshotRow, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("snapshot repository: missing database context")
	}

	row, err := queries.GetSnapshot(ctx, sqldb.GetSnapshotParams{RecordID: recordID, Sequence: sequence})
	return snapshotOrNil(row, err)
}

// FindAt returns the latest snapshot captured at or before at.
func (r *SnapshotRepository) FindAt(ctx context.Context, recordID string, at time.Time) (*SnapshotRow, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("snapshot repository: missing database context")
	}

	row, err := queries.GetSnapshotAt(ctx, sqldb.GetSnapshotAtParams{RecordID: recordID, CapturedAt: formatTime(at)})
	return snapshotOrNil(row, err)
}

func (r *SnapshotRepository) ListMeta(ctx context.Context, recordID string) ([]SnapshotRow, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("snapshot repository: missing database context")
	}

	rows, err := queries.ListSnapshotMeta(ctx, recordID)
	if err != nil {
		return nil, err
	}

	result := make([]SnapshotRow, 0, len(rows))
	for _, row := range rows {
		snap, err := SnapshotRowFromMeta(row)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, nil
}

func (r *SnapshotRepository) GetMaxSequence(ctx context.Context, recordID string) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, fmt.Errorf("snapshot repository: missing database context")
	}

	maxSequence, err := queries.MaxSequenceForRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return maxSequence, nil
}

func (r *SnapshotRepository) Create(ctx context.Context, row SnapshotRow) error {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return fmt.Errorf("snapshot repository: missing database context")
	}

	return queries.InsertSnapshot(ctx, SnapshotInsertParams(row))
}

func snapshotOrNil(row sqldb.Snapshot, err error) (*SnapshotRow, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	snap, err := SnapshotRowFromSnapshot(row)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
