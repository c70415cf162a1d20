package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/normatrack/normatrack/internal/diff"
	"github.com/normatrack/normatrack/internal/metrics"
	"github.com/normatrack/normatrack/internal/recorder"
	"github.com/normatrack/normatrack/internal/snapshot"
)

// ErrNotEnoughVersions is returned when a comparison needs more snapshots
// than the record has.
var ErrNotEnoughVersions = errors.New("usecase: not enough versions to compare")

// DefaultParallelism bounds CaptureBatch when no limit is given.
const DefaultParallelism = 4

// Comparison is a computed diff between two snapshots of one record. It is
// never stored.
type Comparison struct {
	Base     snapshot.Ref `json:"base"`
	Target   snapshot.Ref `json:"target"`
	BaseAt   time.Time    `json:"base_captured_at"`
	TargetAt time.Time    `json:"target_captured_at"`
	diff.Result
}

// BatchResult is the outcome of one input of CaptureBatch. Exactly one of
// Outcome and Err is set.
type BatchResult struct {
	Input   recorder.Input
	Outcome *recorder.Outcome
	Err     error
}

// Tracker exposes the read and capture operations over a snapshot store.
type Tracker struct {
	store    snapshot.Store
	recorder *recorder.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewTracker creates a Tracker. rec must record into store.
func NewTracker(store snapshot.Store, rec *recorder.Recorder, m *metrics.Metrics, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:    store,
		recorder: rec,
		metrics:  m,
		logger:   logger,
	}
}

// ListRecords returns every tracked record ordered by id.
func (t *Tracker) ListRecords(ctx context.Context) ([]snapshot.Record, error) {
	return t.store.Records(ctx)
}

// GetHistory returns the snapshot metadata of a record in capture order.
func (t *Tracker) GetHistory(ctx context.Context, recordID string) ([]snapshot.SnapshotMeta, error) {
	return t.store.History(ctx, recordID)
}

// GetSnapshot returns one snapshot. A sequence of zero selects the latest.
func (t *Tracker) GetSnapshot(ctx context.Context, recordID string, sequence int) (*snapshot.Snapshot, error) {
	if sequence == 0 {
		latest, err := t.store.Latest(ctx, recordID)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return nil, fmt.Errorf("%w: %s", snapshot.ErrRecordNotFound, recordID)
		}
		return latest, nil
	}
	return t.store.Get(ctx, recordID, sequence)
}

// GetSnapshotAt returns the snapshot in effect at the given time.
func (t *Tracker) GetSnapshotAt(ctx context.Context, recordID string, at time.Time) (*snapshot.Snapshot, error) {
	return t.store.GetAt(ctx, recordID, at)
}

// GetComparison diffs two snapshots of a record. Any two existing sequences
// are accepted; a base later than the target gives the reverse diff.
func (t *Tracker) GetComparison(ctx context.Context, recordID string, baseSeq, targetSeq int) (*Comparison, error) {
	base, err := t.store.Get(ctx, recordID, baseSeq)
	if err != nil {
		return nil, err
	}
	target, err := t.store.Get(ctx, recordID, targetSeq)
	if err != nil {
		return nil, err
	}
	return t.compare(base, target), nil
}

// CompareLatest diffs the previous snapshot of a record against its latest.
func (t *Tracker) CompareLatest(ctx context.Context, recordID string) (*Comparison, error) {
	latest, err := t.store.Latest(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrRecordNotFound, recordID)
	}
	if latest.Sequence < 2 {
		return nil, fmt.Errorf("%w: %s has %d snapshot", ErrNotEnoughVersions, recordID, latest.Sequence)
	}
	previous, err := t.store.Get(ctx, recordID, latest.Sequence-1)
	if err != nil {
		return nil, err
	}
	return t.compare(previous, latest), nil
}

// Compare diffs two snapshots, defaulting the target to the latest snapshot
// and the base to the one before the target.
func (t *Tracker) Compare(ctx context.Context, recordID string, baseSeq, targetSeq int) (*Comparison, error) {
	if baseSeq == 0 && targetSeq == 0 {
		return t.CompareLatest(ctx, recordID)
	}
	if targetSeq == 0 {
		latest, err := t.GetSnapshot(ctx, recordID, 0)
		if err != nil {
			return nil, err
		}
		targetSeq = latest.Sequence
	}
	if baseSeq == 0 {
		baseSeq = targetSeq - 1
	}
	if baseSeq < 1 {
		return nil, fmt.Errorf("%w: no snapshot before %s", ErrNotEnoughVersions, snapshot.Ref{RecordID: recordID, Sequence: targetSeq})
	}
	return t.GetComparison(ctx, recordID, baseSeq, targetSeq)
}

func (t *Tracker) compare(base, target *snapshot.Snapshot) *Comparison {
	result := diff.CompareText(base.Text, target.Text)
	t.metrics.ObserveComparison(result.Summary.Added, result.Summary.Removed)
	return &Comparison{
		Base:     base.Ref(),
		Target:   target.Ref(),
		BaseAt:   base.CapturedAt,
		TargetAt: target.CapturedAt,
		Result:   result,
	}
}

// Capture records one raw capture.
func (t *Tracker) Capture(ctx context.Context, in recorder.Input) (*recorder.Outcome, error) {
	return t.recorder.Capture(ctx, in)
}

// CaptureBatch records inputs with at most parallelism captures in flight.
// Results are returned in input order; a failed input does not stop the
// others. The returned error joins every per-input error.
func (t *Tracker) CaptureBatch(ctx context.Context, inputs []recorder.Input, parallelism int) ([]BatchResult, error) {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	results := make([]BatchResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, in := range inputs {
		g.Go(func() error {
			results[i].Input = in
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			out, err := t.recorder.Capture(gctx, in)
			if err != nil {
				t.logger.Warn("capture failed", "record_id", in.RecordID, "error", err)
				results[i].Err = err
				return nil
			}
			results[i].Outcome = out
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Input.RecordID, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

// UpdateSourceURL corrects the source URL of a record.
func (t *Tracker) UpdateSourceURL(ctx context.Context, recordID, sourceURL string) error {
	return t.store.UpdateSourceURL(ctx, recordID, sourceURL)
}
