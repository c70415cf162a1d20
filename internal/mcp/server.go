package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/normatrack/normatrack/internal/recorder"
	"github.com/normatrack/normatrack/internal/snapshot"
	"github.com/normatrack/normatrack/internal/usecase"
)

// Server wraps the MCP server with the tracker operations.
type Server struct {
	server  *mcp.Server
	tracker *usecase.Tracker
	logger  *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(tracker *usecase.Tracker, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "normatrack",
		Version: version,
	}, nil)

	s := &Server{
		server:  mcpServer,
		tracker: tracker,
		logger:  logger,
	}
	s.registerTools()
	return s
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "norma_capture",
		Description: "Record a captured version of a legal norm. A new snapshot is stored only when the normalized text changed.",
	}, s.handleCapture)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "norma_records",
		Description: "List tracked legal norms",
	}, s.handleRecords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "norma_history",
		Description: "List the snapshots of a legal norm in capture order",
	}, s.handleHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "norma_snapshot",
		Description: "Get the normalized text of one snapshot",
	}, s.handleSnapshot)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "norma_compare",
		Description: "Compare two snapshots of a legal norm line by line",
	}, s.handleCompare)
}

// Input/Output types for each tool

type CaptureInput struct {
	RecordID   string `json:"record_id" jsonschema:"Stable identifier of the legal norm"`
	Content    string `json:"content" jsonschema:"Raw captured content, HTML or plain text"`
	SourceURL  string `json:"source_url,omitempty" jsonschema:"URL the content was captured from"`
	CapturedAt string `json:"captured_at,omitempty" jsonschema:"Capture time in RFC 3339, now if omitted"`
}

type CaptureOutput struct {
	Outcome          string `json:"outcome"`
	RecordID         string `json:"record_id"`
	Sequence         int    `json:"sequence"`
	PreviousSequence int    `json:"previous_sequence,omitempty"`
	Fingerprint      string `json:"fingerprint"`
	CapturedAt       string `json:"captured_at"`
	Degenerate       bool   `json:"degenerate,omitempty"`
}

type RecordsInput struct{}

type RecordsOutput struct {
	Records []RecordItem `json:"records"`
}

type RecordItem struct {
	RecordID       string `json:"record_id"`
	SourceURL      string `json:"source_url,omitempty"`
	Snapshots      int    `json:"snapshots"`
	LastCapturedAt string `json:"last_captured_at,omitempty"`
}

type HistoryInput struct {
	RecordID string `json:"record_id" jsonschema:"Identifier of the legal norm"`
}

type HistoryOutput struct {
	RecordID  string         `json:"record_id"`
	Snapshots []SnapshotItem `json:"snapshots"`
}

type SnapshotItem struct {
	ID          string `json:"id"`
	Sequence    int    `json:"sequence"`
	CapturedAt  string `json:"captured_at"`
	Fingerprint string `json:"fingerprint"`
}

type SnapshotInput struct {
	RecordID string `json:"record_id" jsonschema:"Identifier of the legal norm"`
	Sequence int    `json:"sequence,omitempty" jsonschema:"Snapshot sequence, latest if omitted"`
	At       string `json:"at,omitempty" jsonschema:"Return the snapshot in effect at this RFC 3339 time instead"`
}

type SnapshotOutput struct {
	RecordID    string `json:"record_id"`
	ID          string `json:"id"`
	Sequence    int    `json:"sequence"`
	CapturedAt  string `json:"captured_at"`
	Fingerprint string `json:"fingerprint"`
	Text        string `json:"normalized_text"`
}

type CompareInput struct {
	RecordID    string `json:"record_id" jsonschema:"Identifier of the legal norm"`
	Base        int    `json:"base,omitempty" jsonschema:"Base sequence, the one before target if omitted"`
	Target      int    `json:"target,omitempty" jsonschema:"Target sequence, latest if omitted"`
	ChangesOnly bool   `json:"changes_only,omitempty" jsonschema:"Leave unchanged lines out of the edit script"`
}

type CompareOutput struct {
	Base       string   `json:"base"`
	Target     string   `json:"target"`
	Added      int      `json:"added"`
	Removed    int      `json:"removed"`
	Unchanged  int      `json:"unchanged"`
	EditScript []OpItem `json:"edit_script"`
}

type OpItem struct {
	Kind       string `json:"kind"`
	BaseLine   int    `json:"base_line,omitempty"`
	TargetLine int    `json:"target_line,omitempty"`
	Base       string `json:"base,omitempty"`
	Target     string `json:"target,omitempty"`
}

// Tool handlers

func (s *Server) handleCapture(ctx context.Context, req *mcp.CallToolRequest, input CaptureInput) (*mcp.CallToolResult, CaptureOutput, error) {
	in := recorder.Input{
		RecordID:  input.RecordID,
		SourceURL: input.SourceURL,
		Raw:       input.Content,
	}
	if input.CapturedAt != "" {
		at, err := parseTime(input.CapturedAt)
		if err != nil {
			return nil, CaptureOutput{}, err
		}
		in.CapturedAt = at
	}

	out, err := s.tracker.Capture(ctx, in)
	if err != nil {
		return nil, CaptureOutput{}, fmt.Errorf("failed to capture %s: %w", input.RecordID, err)
	}

	result := CaptureOutput{
		Outcome:     out.Kind.String(),
		RecordID:    out.Snapshot.RecordID,
		Sequence:    out.Snapshot.Sequence,
		Fingerprint: out.Fingerprint.String(),
		CapturedAt:  formatTime(out.Snapshot.CapturedAt),
		Degenerate:  out.Degenerate,
	}
	if out.Previous != nil {
		result.PreviousSequence = out.Previous.Sequence
	}
	s.logger.Info("capture recorded", "record_id", result.RecordID, "outcome", result.Outcome, "sequence", result.Sequence)
	return nil, result, nil
}

func (s *Server) handleRecords(ctx context.Context, req *mcp.CallToolRequest, _ RecordsInput) (*mcp.CallToolResult, RecordsOutput, error) {
	records, err := s.tracker.ListRecords(ctx)
	if err != nil {
		return nil, RecordsOutput{}, fmt.Errorf("failed to list records: %w", err)
	}

	items := make([]RecordItem, 0, len(records))
	for _, r := range records {
		item := RecordItem{
			RecordID:  r.RecordID,
			SourceURL: r.SourceURL,
			Snapshots: r.Snapshots,
		}
		if !r.LastCapturedAt.IsZero() {
			item.LastCapturedAt = formatTime(r.LastCapturedAt)
		}
		items = append(items, item)
	}
	return nil, RecordsOutput{Records: items}, nil
}

func (s *Server) handleHistory(ctx context.Context, req *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	metas, err := s.tracker.GetHistory(ctx, input.RecordID)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to get history: %w", err)
	}

	items := make([]SnapshotItem, 0, len(metas))
	for _, m := range metas {
		items = append(items, SnapshotItem{
			ID:          m.ID,
			Sequence:    m.Sequence,
			CapturedAt:  formatTime(m.CapturedAt),
			Fingerprint: m.Fingerprint.String(),
		})
	}
	return nil, HistoryOutput{RecordID: input.RecordID, Snapshots: items}, nil
}

func (s *Server) handleSnapshot(ctx context.Context, req *mcp.CallToolRequest, input SnapshotInput) (*mcp.CallToolResult, SnapshotOutput, error) {
	var (
		snap *snapshot.Snapshot
		err  error
	)
	if input.At != "" {
		at, perr := parseTime(input.At)
		if perr != nil {
			return nil, SnapshotOutput{}, perr
		}
		snap, err = s.tracker.GetSnapshotAt(ctx, input.RecordID, at)
	} else {
		snap, err = s.tracker.GetSnapshot(ctx, input.RecordID, input.Sequence)
	}
	if err != nil {
		return nil, SnapshotOutput{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return nil, SnapshotOutput{
		RecordID:    snap.RecordID,
		ID:          snap.ID,
		Sequence:    snap.Sequence,
		CapturedAt:  formatTime(snap.CapturedAt),
		Fingerprint: snap.Fingerprint.String(),
		Text:        snap.Text,
	}, nil
}

func (s *Server) handleCompare(ctx context.Context, req *mcp.CallToolRequest, input CompareInput) (*mcp.CallToolResult, CompareOutput, error) {
	cmp, err := s.tracker.Compare(ctx, input.RecordID, input.Base, input.Target)
	if err != nil {
		return nil, CompareOutput{}, fmt.Errorf("failed to compare: %w", err)
	}

	script := cmp.Script
	if input.ChangesOnly {
		script = cmp.Changes()
	}
	ops := make([]OpItem, 0, len(script))
	for _, op := range script {
		ops = append(ops, OpItem{
			Kind:       op.Kind.String(),
			BaseLine:   op.BaseLine,
			TargetLine: op.TargetLine,
			Base:       op.Base,
			Target:     op.Target,
		})
	}

	return nil, CompareOutput{
		Base:       cmp.Base.String(),
		Target:     cmp.Target.String(),
		Added:      cmp.Summary.Added,
		Removed:    cmp.Summary.Removed,
		Unchanged:  cmp.Summary.Unchanged,
		EditScript: ops,
	}, nil
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339", value)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
