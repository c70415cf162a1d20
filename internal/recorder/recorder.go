// Package recorder turns raw captured content into snapshots, persisting a new
// one only when the normalized text changed since the latest snapshot.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/normatrack/normatrack/internal/fingerprint"
	"github.com/normatrack/normatrack/internal/metrics"
	"github.com/normatrack/normatrack/internal/normalize"
	"github.com/normatrack/normatrack/internal/snapshot"
)

// ErrEmptyRecordID rejects captures without a record id.
var ErrEmptyRecordID = errors.New("recorder: empty record id")

// DefaultMaxAttempts bounds read-compare-append cycles restarted by
// concurrent appends from other processes.
const DefaultMaxAttempts = 3

// Kind is the result of a capture.
type Kind int

const (
	FirstCapture Kind = iota + 1
	Unchanged
	Changed
)

func (k Kind) String() string {
	switch k {
	case FirstCapture:
		return "first_capture"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Input is one capture request.
type Input struct {
	RecordID  string
	SourceURL string
	Raw       string
	// CapturedAt defaults to the current time.
	CapturedAt time.Time
}

// Outcome describes what a capture did.
type Outcome struct {
	Kind Kind `json:"outcome"`
	// Snapshot is the new snapshot, or the existing latest one when Unchanged.
	Snapshot *snapshot.Snapshot `json:"snapshot"`
	// Previous is the snapshot that was latest before a Changed capture.
	Previous    *snapshot.Snapshot      `json:"previous,omitempty"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	Degenerate  bool                    `json:"degenerate,omitempty"`
	Fallback    bool                    `json:"fallback,omitempty"`
}

// Archiver stores raw content and returns its reference.
type Archiver interface {
	Save(raw string) (ref string, path string, err error)
}

// Options configures a Recorder.
type Options struct {
	Normalizer  *normalize.Normalizer
	Archive     Archiver
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Now         func() time.Time
	MaxAttempts int
}

// Recorder is safe for concurrent use. Captures of the same record are
// serialized; captures of different records run in parallel.
type Recorder struct {
	store       snapshot.Store
	normalizer  *normalize.Normalizer
	archive     Archiver
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
	maxAttempts int
	locks       *keyedMutex
}

// New creates a Recorder over store.
func New(store snapshot.Store, opts Options) *Recorder {
	r := &Recorder{
		store:       store,
		normalizer:  opts.Normalizer,
		archive:     opts.Archive,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         opts.Now,
		maxAttempts: opts.MaxAttempts,
		locks:       newKeyedMutex(),
	}
	if r.normalizer == nil {
		r.normalizer = normalize.New(normalize.Options{})
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = DefaultMaxAttempts
	}
	return r
}

// Capture normalizes in.Raw and records it for in.RecordID.
func (r *Recorder) Capture(ctx context.Context, in Input) (*Outcome, error) {
	if strings.TrimSpace(in.RecordID) == "" {
		return nil, ErrEmptyRecordID
	}
	start := time.Now()

	capturedAt := in.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = r.now()
	}
	capturedAt = capturedAt.UTC()

	norm := r.normalizer.Normalize(in.Raw)
	fp := fingerprint.Of(norm.Text)
	logger := r.logger.With("record_id", in.RecordID)
	if norm.Degenerate {
		r.metrics.IncDegenerate()
		logger.Warn("normalized text is empty or near-empty",
			"runes", utf8.RuneCountInString(norm.Text),
			"min_runes", r.normalizer.MinContentRunes(),
			"fallback", norm.Fallback)
	}
	if norm.Fallback {
		logger.Warn("markup could not be parsed, tags were stripped")
	}

	unlock := r.locks.lock(in.RecordID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		out, err := r.captureOnce(ctx, in, norm, fp, capturedAt)
		if err != nil {
			if errors.Is(err, snapshot.ErrConcurrentCapture) && attempt < r.maxAttempts {
				r.metrics.IncRetry()
				logger.Debug("latest snapshot moved, retrying capture", "attempt", attempt)
				continue
			}
			r.metrics.ObserveCapture("error", time.Since(start))
			return nil, err
		}

		r.metrics.ObserveCapture(out.Kind.String(), time.Since(start))
		logger.Debug("capture recorded",
			"outcome", out.Kind.String(),
			"sequence", out.Snapshot.Sequence,
			"fingerprint", fp.Short())
		return out, nil
	}
}

func (r *Recorder) captureOnce(ctx context.Context, in Input, norm normalize.Result, fp fingerprint.Fingerprint, capturedAt time.Time) (*Outcome, error) {
	latest, err := r.store.Latest(ctx, in.RecordID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Fingerprint: fp,
		Degenerate:  norm.Degenerate,
		Fallback:    norm.Fallback,
	}

	if latest != nil && latest.Fingerprint.Equal(fp) {
		if err := r.syncSourceURL(ctx, in); err != nil {
			return nil, err
		}
		out.Kind = Unchanged
		out.Snapshot = latest
		return out, nil
	}

	var rawRef string
	if r.archive != nil {
		ref, _, err := r.archive.Save(in.Raw)
		if err != nil {
			return nil, fmt.Errorf("archive raw content: %w", err)
		}
		rawRef = ref
	}

	expected := 0
	if latest != nil {
		expected = latest.Sequence
	}

	snap, err := r.store.Append(ctx, snapshot.AppendParams{
		RecordID:         in.RecordID,
		SourceURL:        in.SourceURL,
		Text:             norm.Text,
		Fingerprint:      fp,
		CapturedAt:       capturedAt,
		RawRef:           rawRef,
		ExpectedSequence: expected,
	})
	if err != nil {
		return nil, err
	}

	out.Snapshot = snap
	if latest == nil {
		out.Kind = FirstCapture
	} else {
		out.Kind = Changed
		out.Previous = latest
	}
	return out, nil
}

// syncSourceURL writes a changed non-empty source URL to an existing record
// when no snapshot is appended. Append carries the URL otherwise.
func (r *Recorder) syncSourceURL(ctx context.Context, in Input) error {
	if in.SourceURL == "" {
		return nil
	}
	rec, err := r.store.Record(ctx, in.RecordID)
	if err != nil {
		return err
	}
	if rec.SourceURL == in.SourceURL {
		return nil
	}
	r.logger.Info("source url updated", "record_id", in.RecordID, "from", rec.SourceURL, "to", in.SourceURL)
	return r.store.UpdateSourceURL(ctx, in.RecordID, in.SourceURL)
}
