package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normatrack/normatrack/internal/filesystem"
	"github.com/normatrack/normatrack/internal/fingerprint"
	"github.com/normatrack/normatrack/internal/metrics"
	"github.com/normatrack/normatrack/internal/snapshot"
)

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

const (
	pageA = "<html><body><h1>Ley 26842</h1><p>Art. 1: Texto A</p><p>Art. 2: Texto B</p></body></html>"
	pageB = "<html><body><h1>Ley 26842</h1><p>Art. 1: Texto A</p><p>Art. 2: Texto B modificado</p></body></html>"
)

func newRecorder(store snapshot.Store) *Recorder {
	return New(store, Options{Metrics: metrics.New(prometheus.NewRegistry())})
}

func TestFirstThenUnchanged(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	r := newRecorder(store)

	first, err := r.Capture(ctx, Input{RecordID: "ley-26842", Raw: pageA, CapturedAt: t0})
	require.NoError(t, err)
	assert.Equal(t, FirstCapture, first.Kind)
	assert.Equal(t, 1, first.Snapshot.Sequence)
	assert.Nil(t, first.Previous)

	// Markup noise around identical content does not count as a change.
	noisy := "<html><head><script>track()</script></head><body><h1>Ley   26842</h1><p>Art. 1: Texto A</p>\n\n<p>Art. 2: Texto B</p></body></html>"
	second, err := r.Capture(ctx, Input{RecordID: "ley-26842", Raw: noisy, CapturedAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, second.Kind)
	assert.Equal(t, first.Snapshot.ID, second.Snapshot.ID)

	history, err := store.History(ctx, "ley-26842")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestChangeDetected(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	r := newRecorder(store)

	_, err := r.Capture(ctx, Input{RecordID: "ley-26842", Raw: pageA, CapturedAt: t0})
	require.NoError(t, err)
	out, err := r.Capture(ctx, Input{RecordID: "ley-26842", Raw: pageB, CapturedAt: t0.Add(time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, Changed, out.Kind)
	require.NotNil(t, out.Previous)
	assert.Equal(t, 1, out.Previous.Sequence)
	assert.Equal(t, 2, out.Snapshot.Sequence)
	assert.Equal(t, "Ley 26842\nArt. 1: Texto A\nArt. 2: Texto B modificado", out.Snapshot.Text)

	history, err := store.History(ctx, "ley-26842")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Fingerprint.Equal(history[1].Fingerprint))
}

func TestNoConsecutiveDuplicates(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	r := newRecorder(store)

	sequence := []string{"A", "A", "B", "B", "B", "A", "C", "C", "A", "A"}
	for i, body := range sequence {
		raw := fmt.Sprintf("<p>Art. 1: %s</p>", body)
		_, err := r.Capture(ctx, Input{RecordID: "ley-1", Raw: raw, CapturedAt: t0.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	history, err := store.History(ctx, "ley-1")
	require.NoError(t, err)
	require.Len(t, history, 5) // A B A C A
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i-1].Fingerprint.Equal(history[i].Fingerprint), "snapshots %d and %d share a fingerprint", i, i+1)
	}
}

func TestEmptyContentIsRecordable(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	r := newRecorder(store)

	_, err := r.Capture(ctx, Input{RecordID: "ley-1", Raw: pageA, CapturedAt: t0})
	require.NoError(t, err)

	out, err := r.Capture(ctx, Input{RecordID: "ley-1", Raw: "<html><body><script>x=1</script></body></html>", CapturedAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, Changed, out.Kind)
	assert.True(t, out.Degenerate)
	assert.Equal(t, "", out.Snapshot.Text)
	assert.Equal(t, fingerprint.Of(""), out.Snapshot.Fingerprint)

	again, err := r.Capture(ctx, Input{RecordID: "ley-1", Raw: "", CapturedAt: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, again.Kind)
}

func TestEmptyRecordID(t *testing.T) {
	r := newRecorder(snapshot.NewMemoryStore())
	_, err := r.Capture(context.Background(), Input{RecordID: "  ", Raw: pageA})
	assert.ErrorIs(t, err, ErrEmptyRecordID)
}

func TestZeroCaptureTimeUsesClock(t *testing.T) {
	store := snapshot.NewMemoryStore()
	r := New(store, Options{Now: func() time.Time { return t0 }})

	out, err := r.Capture(context.Background(), Input{RecordID: "ley-1", Raw: pageA})
	require.NoError(t, err)
	assert.True(t, out.Snapshot.CapturedAt.Equal(t0))
}

func TestOutOfOrderCaptureRejected(t *testing.T) {
	ctx := context.Background()
	r := newRecorder(snapshot.NewMemoryStore())

	_, err := r.Capture(ctx, Input{RecordID: "ley-1", Raw: pageA, CapturedAt: t0})
	require.NoError(t, err)
	_, err = r.Capture(ctx, Input{RecordID: "ley-1", Raw: pageB, CapturedAt: t0.Add(-time.Hour)})
	assert.ErrorIs(t, err, snapshot.ErrOutOfOrder)
}

func TestConcurrentCapturesSameRecord(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	r := newRecorder(store)

	const workers = 16
	var wg sync.WaitGroup
	outcomes := make([]*Outcome, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = r.Capture(ctx, Input{RecordID: "ley-1", Raw: pageA, CapturedAt: t0})
		}(i)
	}
	wg.Wait()

	firsts := 0
	for i := range outcomes {
		require.NoError(t, errs[i])
		if outcomes[i].Kind == FirstCapture {
			firsts++
		} else {
			assert.Equal(t, Unchanged, outcomes[i].Kind)
		}
	}
	assert.Equal(t, 1, firsts)

	history, err := store.History(ctx, "ley-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 0, r.locks.size())
}

func TestConcurrentCapturesDifferentRecords(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	r := newRecorder(store)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("ley-%d", i)
			for j, raw := range []string{pageA, pageB, pageB, pageA} {
				_, err := r.Capture(ctx, Input{RecordID: id, Raw: raw, CapturedAt: t0.Add(time.Duration(j) * time.Second)})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	records, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 10)
	for _, rec := range records {
		assert.Equal(t, 3, rec.Snapshots, rec.RecordID)
	}
}

// racingStore appends a competing snapshot the first time Append is called,
// as another process would.
type racingStore struct {
	*snapshot.MemoryStore
	once sync.Once
}

func (s *racingStore) Append(ctx context.Context, p snapshot.AppendParams) (*snapshot.Snapshot, error) {
	s.once.Do(func() {
		text := "Art. 1: escrito por otro proceso"
		_, _ = s.MemoryStore.Append(ctx, snapshot.AppendParams{
			RecordID:         p.RecordID,
			Text:             text,
			Fingerprint:      fingerprint.Of(text),
			CapturedAt:       p.CapturedAt,
			ExpectedSequence: p.ExpectedSequence,
		})
	})
	return s.MemoryStore.Append(ctx, p)
}

func TestConcurrentAppendRetried(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{MemoryStore: snapshot.NewMemoryStore()}
	r := newRecorder(store)

	out, err := r.Capture(ctx, Input{RecordID: "ley-1", Raw: pageA, CapturedAt: t0})
	require.NoError(t, err)
	assert.Equal(t, Changed, out.Kind)
	assert.Equal(t, 2, out.Snapshot.Sequence)
	assert.Equal(t, "Art. 1: escrito por otro proceso", out.Previous.Text)
}

// conflictStore always reports a concurrent append.
type conflictStore struct {
	*snapshot.MemoryStore
	appends int
}

func (s *conflictStore) Append(context.Context, snapshot.AppendParams) (*snapshot.Snapshot, error) {
	s.appends++
	return nil, snapshot.ErrConcurrentCapture
}

func TestConcurrentAppendGivesUp(t *testing.T) {
	store := &conflictStore{MemoryStore: snapshot.NewMemoryStore()}
	r := New(store, Options{MaxAttempts: 2})

	_, err := r.Capture(context.Background(), Input{RecordID: "ley-1", Raw: pageA, CapturedAt: t0})
	assert.ErrorIs(t, err, snapshot.ErrConcurrentCapture)
	assert.Equal(t, 2, store.appends)
}

// brokenStore fails every read.
type brokenStore struct {
	*snapshot.MemoryStore
	reads int
}

func (s *brokenStore) Latest(context.Context, string) (*snapshot.Snapshot, error) {
	s.reads++
	return nil, fmt.Errorf("%w: disk I/O error", snapshot.ErrStoreUnavailable)
}

func TestStoreUnavailableNotRetried(t *testing.T) {
	store := &brokenStore{MemoryStore: snapshot.NewMemoryStore()}
	r := newRecorder(store)

	_, err := r.Capture(context.Background(), Input{RecordID: "ley-1", Raw: pageA, CapturedAt: t0})
	assert.ErrorIs(t, err, snapshot.ErrStoreUnavailable)
	assert.Equal(t, 1, store.reads)

	records, rerr := store.Records(context.Background())
	require.NoError(t, rerr)
	assert.Empty(t, records)
}

func TestArchiveStoresRawOfPersistedSnapshots(t *testing.T) {
	ctx := context.Background()
	archive := filesystem.NewArchive(t.TempDir())
	r := New(snapshot.NewMemoryStore(), Options{Archive: archive})

	first, err := r.Capture(ctx, Input{RecordID: "ley-1", Raw: pageA, CapturedAt: t0})
	require.NoError(t, err)
	require.NotEmpty(t, first.Snapshot.RawRef)

	raw, err := archive.Read(first.Snapshot.RawRef)
	require.NoError(t, err)
	assert.Equal(t, pageA, raw)

	unchanged, err := r.Capture(ctx, Input{RecordID: "ley-1", Raw: pageA + "<!-- cache 2 -->", CapturedAt: t0.Add(time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, Unchanged, unchanged.Kind)
	ok, err := archive.Verify(filesystem.Ref(pageA + "<!-- cache 2 -->"))
	require.NoError(t, err)
	assert.False(t, ok, "raw content of unchanged captures is not archived")
}

func TestSourceURLFollowsLatestCapture(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	r := newRecorder(store)

	_, err := r.Capture(ctx, Input{RecordID: "ley-1", SourceURL: "https://old.example/1", Raw: pageA, CapturedAt: t0})
	require.NoError(t, err)
	_, err = r.Capture(ctx, Input{RecordID: "ley-1", SourceURL: "https://new.example/1", Raw: pageA, CapturedAt: t0.Add(time.Minute)})
	require.NoError(t, err)

	rec, err := store.Record(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example/1", rec.SourceURL)

	_, err = r.Capture(ctx, Input{RecordID: "ley-1", Raw: pageB, CapturedAt: t0.Add(2 * time.Minute)})
	require.NoError(t, err)
	rec, err = store.Record(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example/1", rec.SourceURL, "an empty url keeps the stored one")
}

func TestRejectedCaptureKeepsSourceURL(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemoryStore()
	r := newRecorder(store)

	_, err := r.Capture(ctx, Input{RecordID: "ley-1", SourceURL: "https://old.example/1", Raw: pageA, CapturedAt: t0})
	require.NoError(t, err)

	_, err = r.Capture(ctx, Input{RecordID: "ley-1", SourceURL: "https://new.example/1", Raw: pageB, CapturedAt: t0.Add(-time.Hour)})
	require.ErrorIs(t, err, snapshot.ErrOutOfOrder)
	rec, err := store.Record(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "https://old.example/1", rec.SourceURL)

	conflicts := &conflictStore{MemoryStore: store}
	_, err = newRecorder(conflicts).Capture(ctx, Input{RecordID: "ley-1", SourceURL: "https://new.example/1", Raw: pageB, CapturedAt: t0.Add(time.Hour)})
	require.ErrorIs(t, err, snapshot.ErrConcurrentCapture)
	rec, err = store.Record(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "https://old.example/1", rec.SourceURL)

	_, err = r.Capture(ctx, Input{RecordID: "ley-1", SourceURL: "https://new.example/1", Raw: pageB, CapturedAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	rec, err = store.Record(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example/1", rec.SourceURL)
}

func TestKindText(t *testing.T) {
	b, err := Changed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "changed", string(b))
	assert.True(t, errors.Is(ErrEmptyRecordID, ErrEmptyRecordID))
}
