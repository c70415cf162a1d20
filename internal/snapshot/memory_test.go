package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normatrack/normatrack/internal/fingerprint"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func appendText(t *testing.T, s Store, id, text string, expected int, at time.Time) *Snapshot {
	t.Helper()
	snap, err := s.Append(context.Background(), AppendParams{
		RecordID:         id,
		SourceURL:        "https://spij.minjus.gob.pe/" + id,
		Text:             text,
		Fingerprint:      fingerprint.Of(text),
		CapturedAt:       at,
		ExpectedSequence: expected,
	})
	require.NoError(t, err)
	return snap
}

func TestMemoryStoreAppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	latest, err := s.Latest(ctx, "ley-1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := appendText(t, s, "ley-1", "v1", 0, t0)
	second := appendText(t, s, "ley-1", "v2", 1, t0.Add(time.Hour))

	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)
	assert.NotEqual(t, first.ID, second.ID)

	latest, err = s.Latest(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", latest.Text)

	got, err := s.Get(ctx, "ley-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Text)
	assert.Equal(t, fingerprint.Of("v1"), got.Fingerprint)

	history, err := s.History(ctx, "ley-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Sequence)
	assert.Equal(t, 2, history[1].Sequence)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "nope", 1)
	assert.True(t, errors.Is(err, ErrRecordNotFound))
	_, err = s.History(ctx, "nope")
	assert.True(t, errors.Is(err, ErrRecordNotFound))
	_, err = s.Record(ctx, "nope")
	assert.True(t, errors.Is(err, ErrRecordNotFound))
	assert.True(t, errors.Is(s.UpdateSourceURL(ctx, "nope", "u"), ErrRecordNotFound))

	appendText(t, s, "ley-1", "v1", 0, t0)
	_, err = s.Get(ctx, "ley-1", 2)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
	_, err = s.Get(ctx, "ley-1", 0)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestMemoryStoreConcurrentCaptureRejected(t *testing.T) {
	s := NewMemoryStore()
	appendText(t, s, "ley-1", "v1", 0, t0)

	_, err := s.Append(context.Background(), AppendParams{RecordID: "ley-1", Text: "v2", CapturedAt: t0.Add(time.Minute)})
	assert.True(t, errors.Is(err, ErrConcurrentCapture))

	history, err := s.History(context.Background(), "ley-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMemoryStoreOutOfOrder(t *testing.T) {
	s := NewMemoryStore()
	appendText(t, s, "ley-1", "v1", 0, t0)

	_, err := s.Append(context.Background(), AppendParams{RecordID: "ley-1", Text: "v0", CapturedAt: t0.Add(-time.Second), ExpectedSequence: 1})
	assert.True(t, errors.Is(err, ErrOutOfOrder))

	// Equal timestamps are accepted.
	appendText(t, s, "ley-1", "v2", 1, t0)
}

func TestMemoryStoreAppendCarriesSourceURL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	appendText(t, s, "ley-1", "v1", 0, t0)

	_, err := s.Append(ctx, AppendParams{RecordID: "ley-1", SourceURL: "https://example.org/x", Text: "v0", CapturedAt: t0.Add(-time.Second), ExpectedSequence: 1})
	require.ErrorIs(t, err, ErrOutOfOrder)
	rec, err := s.Record(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "https://spij.minjus.gob.pe/ley-1", rec.SourceURL)

	_, err = s.Append(ctx, AppendParams{RecordID: "ley-1", SourceURL: "https://example.org/x", Text: "v2", CapturedAt: t0.Add(time.Second), ExpectedSequence: 1})
	require.NoError(t, err)
	rec, err = s.Record(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/x", rec.SourceURL)

	_, err = s.Append(ctx, AppendParams{RecordID: "ley-1", Text: "v3", CapturedAt: t0.Add(2 * time.Second), ExpectedSequence: 2})
	require.NoError(t, err)
	rec, err = s.Record(ctx, "ley-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/x", rec.SourceURL)
}

func TestMemoryStoreGetAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	appendText(t, s, "ley-1", "v1", 0, t0)
	appendText(t, s, "ley-1", "v2", 1, t0.Add(24*time.Hour))

	_, err := s.GetAt(ctx, "ley-1", t0.Add(-time.Hour))
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))

	got, err := s.GetAt(ctx, "ley-1", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Sequence)

	got, err = s.GetAt(ctx, "ley-1", t0.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Sequence)

	got, err = s.GetAt(ctx, "ley-1", t0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, got.Sequence)
}

func TestMemoryStoreRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	appendText(t, s, "ley-b", "x", 0, t0)
	appendText(t, s, "ley-a", "y", 0, t0)

	records, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ley-a", records[0].RecordID)
	assert.Equal(t, "ley-b", records[1].RecordID)

	require.NoError(t, s.UpdateSourceURL(ctx, "ley-a", "https://example.org/a"))
	rec, err := s.Record(ctx, "ley-a")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/a", rec.SourceURL)
}

func TestTimeEncodingOrdersLexically(t *testing.T) {
	a := FormatTime(t0)
	b := FormatTime(t0.Add(time.Nanosecond))
	c := FormatTime(t0.Add(time.Second))
	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.Equal(t, "2024-03-01T12:00:00.000000000Z", a)

	back, err := ParseTime(b)
	require.NoError(t, err)
	assert.True(t, back.Equal(t0.Add(time.Nanosecond)))

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
