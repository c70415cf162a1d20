package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/normatrack/normatrack/internal/database"
	sqldb "github.com/normatrack/normatrack/internal/database/sqlc"
	"github.com/normatrack/normatrack/internal/fingerprint"
	"github.com/normatrack/normatrack/internal/snapshot"
)

// SnapshotService is the SQLite-backed snapshot.Store.
type SnapshotService struct {
	ctx *database.Context
	now func() time.Time
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(ctx *database.Context) *SnapshotService {
	return &SnapshotService{
		ctx: ctx,
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ snapshot.Store = (*SnapshotService)(nil)

// Latest returns the most recent snapshot of a record, or nil when the record
// was never captured.
func (s *SnapshotService) Latest(ctx context.Context, recordID string) (*snapshot.Snapshot, error) {
	dbCtx, err := s.dbContext()
	if err != nil {
		return nil, err
	}

	row, err := database.NewSnapshotRepository(dbCtx).FindLatest(ctx, recordID)
	if err != nil {
		return nil, unavailable(err)
	}
	if row == nil {
		return nil, nil
	}
	return toSnapshot(*row)
}

// Append stores a new snapshot as the next sequence of its record, creating
// the record on first capture.
func (s *SnapshotService) Append(ctx context.Context, params snapshot.AppendParams) (*snapshot.Snapshot, error) {
	capturedAt := params.CapturedAt.UTC()

	var created database.SnapshotRow
	err := s.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		dbCtx := &database.Context{Queries: q}
		records := database.NewRecordRepository(dbCtx)
		snapshots := database.NewSnapshotRepository(dbCtx)

		record, err := records.FindByID(txCtx, params.RecordID)
		if err != nil {
			return err
		}
		current, err := snapshots.GetMaxSequence(txCtx, params.RecordID)
		if err != nil {
			return err
		}
		if current != int64(params.ExpectedSequence) {
			return fmt.Errorf("%w: %s expected sequence %d, found %d", snapshot.ErrConcurrentCapture, params.RecordID, params.ExpectedSequence, current)
		}
		if current > 0 {
			latest, err := snapshots.FindBySequence(txCtx, params.RecordID, current)
			if err != nil {
				return err
			}
			if latest != nil && capturedAt.Before(latest.CapturedAt) {
				return fmt.Errorf("%w: %s at %s", snapshot.ErrOutOfOrder, params.RecordID, snapshot.FormatTime(capturedAt))
			}
		}

		switch {
		case record == nil:
			if err := records.Create(txCtx, params.RecordID, params.SourceURL, s.now()); err != nil {
				return err
			}
		case params.SourceURL != "" && params.SourceURL != record.SourceURL:
			if _, err := records.UpdateSourceURL(txCtx, params.RecordID, params.SourceURL, s.now()); err != nil {
				return err
			}
		}

		created = database.SnapshotRow{
			ID:          uuid.NewString(),
			RecordID:    params.RecordID,
			Sequence:    current + 1,
			CapturedAt:  capturedAt,
			Text:        params.Text,
			Fingerprint: params.Fingerprint.String(),
			RawRef:      params.RawRef,
		}
		return snapshots.Create(txCtx, created)
	})
	if err != nil {
		if errors.Is(err, snapshot.ErrConcurrentCapture) || errors.Is(err, snapshot.ErrOutOfOrder) {
			return nil, err
		}
		if isConflict(err) {
			return nil, fmt.Errorf("%w: %s: %v", snapshot.ErrConcurrentCapture, params.RecordID, err)
		}
		return nil, unavailable(err)
	}

	return toSnapshot(created)
}

// Get returns one snapshot by sequence.
func (s *SnapshotService) Get(ctx context.Context, recordID string, sequence int) (*snapshot.Snapshot, error) {
	dbCtx, err := s.dbContext()
	if err != nil {
		return nil, err
	}

	row, err := database.NewSnapshotRepository(dbCtx).FindBySequence(ctx, recordID, int64(sequence))
	if err != nil {
		return nil, unavailable(err)
	}
	if row == nil {
		if err := s.requireRecord(ctx, dbCtx, recordID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, snapshot.Ref{RecordID: recordID, Sequence: sequence})
	}
	return toSnapshot(*row)
}

// GetAt returns the snapshot in effect at the given time.
func (s *SnapshotService) GetAt(ctx context.Context, recordID string, at time.Time) (*snapshot.Snapshot, error) {
	dbCtx, err := s.dbContext()
	if err != nil {
		return nil, err
	}

	row, err := database.NewSnapshotRepository(dbCtx).FindAt(ctx, recordID, at)
	if err != nil {
		return nil, unavailable(err)
	}
	if row == nil {
		if err := s.requireRecord(ctx, dbCtx, recordID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s at %s", snapshot.ErrSnapshotNotFound, recordID, snapshot.FormatTime(at))
	}
	return toSnapshot(*row)
}

// History lists snapshot metadata in capture order.
func (s *SnapshotService) History(ctx context.Context, recordID string) ([]snapshot.SnapshotMeta, error) {
	dbCtx, err := s.dbContext()
	if err != nil {
		return nil, err
	}

	rows, err := database.NewSnapshotRepository(dbCtx).ListMeta(ctx, recordID)
	if err != nil {
		return nil, unavailable(err)
	}
	if len(rows) == 0 {
		if err := s.requireRecord(ctx, dbCtx, recordID); err != nil {
			return nil, err
		}
	}

	metas := make([]snapshot.SnapshotMeta, 0, len(rows))
	for _, row := range rows {
		snap, err := toSnapshot(row)
		if err != nil {
			return nil, err
		}
		metas = append(metas, snap.SnapshotMeta)
	}
	return metas, nil
}

// Records lists all tracked records ordered by id.
func (s *SnapshotService) Records(ctx context.Context) ([]snapshot.Record, error) {
	dbCtx, err := s.dbContext()
	if err != nil {
		return nil, err
	}

	rows, err := database.NewRecordRepository(dbCtx).List(ctx)
	if err != nil {
		return nil, unavailable(err)
	}

	result := make([]snapshot.Record, 0, len(rows))
	for _, row := range rows {
		result = append(result, toRecord(row))
	}
	return result, nil
}

// Record returns one tracked record.
func (s *SnapshotService) Record(ctx context.Context, recordID string) (*snapshot.Record, error) {
	dbCtx, err := s.dbContext()
	if err != nil {
		return nil, err
	}

	row, err := database.NewRecordRepository(dbCtx).FindByID(ctx, recordID)
	if err != nil {
		return nil, unavailable(err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrRecordNotFound, recordID)
	}
	record := toRecord(*row)
	return &record, nil
}

// UpdateSourceURL corrects the source URL of a record.
func (s *SnapshotService) UpdateSourceURL(ctx context.Context, recordID, sourceURL string) error {
	dbCtx, err := s.dbContext()
	if err != nil {
		return err
	}

	updated, err := database.NewRecordRepository(dbCtx).UpdateSourceURL(ctx, recordID, sourceURL, s.now())
	if err != nil {
		return unavailable(err)
	}
	if !updated {
		return fmt.Errorf("%w: %s", snapshot.ErrRecordNotFound, recordID)
	}
	return nil
}

func (s *SnapshotService) requireRecord(ctx context.Context, dbCtx *database.Context, recordID string) error {
	record, err := database.NewRecordRepository(dbCtx).FindByID(ctx, recordID)
	if err != nil {
		return unavailable(err)
	}
	if record == nil {
		return fmt.Errorf("%w: %s", snapshot.ErrRecordNotFound, recordID)
	}
	return nil
}

func (s *SnapshotService) withTx(ctx context.Context, fn func(context.Context, *sqldb.Queries) error) error {
	if s.ctx == nil || s.ctx.DB == nil {
		return fmt.Errorf("snapshot service: missing database context")
	}

	tx, err := s.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	queries := sqldb.New(tx)

	if err := fn(ctx, queries); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}

func (s *SnapshotService) dbContext() (*database.Context, error) {
	if s.ctx == nil {
		return nil, unavailable(fmt.Errorf("snapshot service: missing database context"))
	}
	if s.ctx.Queries == nil {
		if s.ctx.DB == nil {
			return nil, unavailable(fmt.Errorf("snapshot service: database handle not initialised"))
		}
		s.ctx.Queries = sqldb.New(s.ctx.DB)
	}
	return s.ctx, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", snapshot.ErrStoreUnavailable, err)
}

// isConflict reports a write rejected because another writer appended the
// same sequence first.
func isConflict(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_TRIGGER:
		return true
	}
	return false
}

func toRecord(row database.RecordRow) snapshot.Record {
	return snapshot.Record{
		RecordID:       row.RecordID,
		SourceURL:      row.SourceURL,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		Snapshots:      int(row.SnapshotCount),
		LastCapturedAt: row.LastCapturedAt,
	}
}

func toSnapshot(row database.SnapshotRow) (*snapshot.Snapshot, error) {
	fp, err := fingerprint.Parse(row.Fingerprint)
	if err != nil {
		return nil, unavailable(fmt.Errorf("snapshot %s@%d: %w", row.RecordID, row.Sequence, err))
	}
	return &snapshot.Snapshot{
		SnapshotMeta: snapshot.SnapshotMeta{
			ID:          row.ID,
			RecordID:    row.RecordID,
			Sequence:    int(row.Sequence),
			CapturedAt:  row.CapturedAt,
			Fingerprint: fp,
			RawRef:      row.RawRef,
		},
		Text: row.Text,
	}, nil
}
