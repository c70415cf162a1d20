// Package snapshot provides the data types of tracked legal norms and the
// Store contract shared by the SQLite and in-memory implementations.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/normatrack/normatrack/internal/fingerprint"
)

var (
	// ErrRecordNotFound indicates that no snapshot was ever captured for the record.
	ErrRecordNotFound = errors.New("snapshot: record not found")
	// ErrSnapshotNotFound indicates that the record exists but has no such snapshot.
	ErrSnapshotNotFound = errors.New("snapshot: snapshot not found")
	// ErrStoreUnavailable wraps persistence I/O failures. Nothing was written.
	ErrStoreUnavailable = errors.New("snapshot: store unavailable")
	// ErrOutOfOrder rejects a capture time earlier than the latest snapshot's.
	ErrOutOfOrder = errors.New("snapshot: capture time precedes latest snapshot")
	// ErrConcurrentCapture reports that the latest snapshot moved since the
	// caller read it.
	ErrConcurrentCapture = errors.New("snapshot: concurrent capture for record")
)

// Record is a tracked legal norm.
type Record struct {
	RecordID  string    `json:"record_id"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Snapshots and LastCapturedAt are filled by Records.
	Snapshots      int       `json:"snapshots"`
	LastCapturedAt time.Time `json:"last_captured_at"`
}

// SnapshotMeta is a snapshot without its text.
type SnapshotMeta struct {
	ID          string                  `json:"id"`
	RecordID    string                  `json:"record_id"`
	Sequence    int                     `json:"sequence"`
	CapturedAt  time.Time               `json:"captured_at"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	RawRef      string                  `json:"raw_ref,omitempty"`
}

// Snapshot is one immutable captured version of a record.
type Snapshot struct {
	SnapshotMeta
	Text string `json:"normalized_text"`
}

// Meta returns the snapshot metadata.
func (s *Snapshot) Meta() SnapshotMeta { return s.SnapshotMeta }

// Ref returns the address of the snapshot.
func (s *Snapshot) Ref() Ref { return Ref{RecordID: s.RecordID, Sequence: s.Sequence} }

// Ref addresses a snapshot of a record by sequence.
type Ref struct {
	RecordID string `json:"record_id"`
	Sequence int    `json:"sequence"`
}

func (r Ref) String() string { return fmt.Sprintf("%s@%d", r.RecordID, r.Sequence) }

// AppendParams describes a snapshot to append.
type AppendParams struct {
	RecordID string
	// SourceURL, when not empty, replaces the record's URL in the same write.
	SourceURL   string
	Text        string
	Fingerprint fingerprint.Fingerprint
	CapturedAt  time.Time
	RawRef      string
	// ExpectedSequence is the latest sequence the caller observed, 0 for none.
	ExpectedSequence int
}

// Store persists snapshots. Implementations must make Append all-or-nothing
// and must never modify or remove an appended snapshot.
type Store interface {
	// Latest returns nil, nil when the record was never captured.
	Latest(ctx context.Context, recordID string) (*Snapshot, error)
	Append(ctx context.Context, params AppendParams) (*Snapshot, error)
	Get(ctx context.Context, recordID string, sequence int) (*Snapshot, error)
	// GetAt returns the latest snapshot captured at or before at.
	GetAt(ctx context.Context, recordID string, at time.Time) (*Snapshot, error)
	History(ctx context.Context, recordID string) ([]SnapshotMeta, error)
	Records(ctx context.Context) ([]Record, error)
	Record(ctx context.Context, recordID string) (*Record, error)
	UpdateSourceURL(ctx context.Context, recordID, sourceURL string) error
}

// TimeLayout is the fixed-width UTC encoding of capture times. Lexical order
// of encoded values equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime encodes t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a TimeLayout value.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
