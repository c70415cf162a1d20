package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	record    Record
	snapshots []Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*memoryRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Latest(_ context.Context, recordID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordID]
	if !ok || len(rec.snapshots) == 0 {
		return nil, nil
	}
	s := rec.snapshots[len(rec.snapshots)-1]
	return &s, nil
}

func (m *MemoryStore) Append(_ context.Context, params AppendParams) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	capturedAt := params.CapturedAt.UTC()
	rec, ok := m.records[params.RecordID]
	current := 0
	if ok {
		current = len(rec.snapshots)
	}
	if current != params.ExpectedSequence {
		return nil, fmt.Errorf("%w: %s expected sequence %d, found %d", ErrConcurrentCapture, params.RecordID, params.ExpectedSequence, current)
	}
	if current > 0 && capturedAt.Before(rec.snapshots[current-1].CapturedAt) {
		return nil, fmt.Errorf("%w: %s at %s", ErrOutOfOrder, params.RecordID, FormatTime(capturedAt))
	}

	if !ok {
		now := m.now()
		rec = &memoryRecord{record: Record{
			RecordID:  params.RecordID,
			SourceURL: params.SourceURL,
			CreatedAt: now,
			UpdatedAt: now,
		}}
		m.records[params.RecordID] = rec
	} else if params.SourceURL != "" && params.SourceURL != rec.record.SourceURL {
		rec.record.SourceURL = params.SourceURL
		rec.record.UpdatedAt = m.now()
	}

	s := Snapshot{
		SnapshotMeta: SnapshotMeta{
			ID:          uuid.NewString(),
			RecordID:    params.RecordID,
			Sequence:    current + 1,
			CapturedAt:  capturedAt,
			Fingerprint: params.Fingerprint,
			RawRef:      params.RawRef,
		},
		Text: params.Text,
	}
	rec.snapshots = append(rec.snapshots, s)
	return &s, nil
}

func (m *MemoryStore) Get(_ context.Context, recordID string, sequence int) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	if sequence < 1 || sequence > len(rec.snapshots) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, Ref{RecordID: recordID, Sequence: sequence})
	}
	s := rec.snapshots[sequence-1]
	return &s, nil
}

func (m *MemoryStore) GetAt(_ context.Context, recordID string, at time.Time) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	at = at.UTC()
	i := sort.Search(len(rec.snapshots), func(i int) bool {
		return rec.snapshots[i].CapturedAt.After(at)
	})
	if i == 0 {
		return nil, fmt.Errorf("%w: %s at %s", ErrSnapshotNotFound, recordID, FormatTime(at))
	}
	s := rec.snapshots[i-1]
	return &s, nil
}

func (m *MemoryStore) History(_ context.Context, recordID string) ([]SnapshotMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	metas := make([]SnapshotMeta, 0, len(rec.snapshots))
	for _, s := range rec.snapshots {
		metas = append(metas, s.SnapshotMeta)
	}
	return metas, nil
}

func (m *MemoryStore) Records(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		r := rec.record
		r.Snapshots = len(rec.snapshots)
		if r.Snapshots > 0 {
			r.LastCapturedAt = rec.snapshots[r.Snapshots-1].CapturedAt
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	return out, nil
}

func (m *MemoryStore) Record(_ context.Context, recordID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	r := rec.record
	return &r, nil
}

func (m *MemoryStore) UpdateSourceURL(_ context.Context, recordID, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	rec.record.SourceURL = sourceURL
	rec.record.UpdatedAt = m.now()
	return nil
}

var _ Store = (*MemoryStore)(nil)
