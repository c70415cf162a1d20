package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/normatrack/normatrack/internal/recorder"
	"github.com/normatrack/normatrack/internal/render"
	"github.com/normatrack/normatrack/internal/usecase"
)

var batchExtensions = map[string]bool{".html": true, ".htm": true, ".txt": true}

func newCaptureBatchCmd(opts *globalOptions) *cobra.Command {
	var (
		parallel int
		at       string
		archive  bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "capture-batch <dir>",
		Short: "Record every <record-id>.html, .htm or .txt file of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, "table", "json"); err != nil {
				return err
			}
			capturedAt, err := parseTimeFlag(at)
			if err != nil {
				return err
			}

			inputs, err := batchInputs(args[0])
			if err != nil {
				return err
			}
			for i := range inputs {
				inputs[i].CapturedAt = capturedAt
				inputs[i].SourceURL, _ = opts.cfg.SourceURL(inputs[i].RecordID)
			}

			e, err := openEnv(opts.cfg, archive)
			if err != nil {
				return err
			}
			defer e.Close()

			results, batchErr := e.tracker.CaptureBatch(context.Background(), inputs, parallel)
			if format == "json" {
				if err := render.JSON(cmd.OutOrStdout(), batchJSON(results)); err != nil {
					return err
				}
			} else {
				printBatch(cmd, results)
			}
			return batchErr
		},
	}

	cmd.Flags().IntVarP(&parallel, "parallel", "p", usecase.DefaultParallelism, "Maximum captures in flight")
	cmd.Flags().StringVar(&at, "at", "", "Capture time for every file (RFC 3339 or YYYY-MM-DD), now if omitted")
	cmd.Flags().BoolVar(&archive, "archive", false, "Archive the raw content of new snapshots")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

// batchInputs reads the capture files of dir sorted by name. The record id
// is the file name without extension.
func batchInputs(dir string) ([]recorder.Input, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var inputs []recorder.Input
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !batchExtensions[ext] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, recorder.Input{
			RecordID: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Raw:      string(data),
		})
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no .html, .htm or .txt files in %s", dir)
	}
	return inputs, nil
}

func printBatch(cmd *cobra.Command, results []usecase.BatchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Record", "Outcome", "Seq", "Fingerprint"})

	for _, r := range results {
		if r.Err != nil {
			t.AppendRow(table.Row{r.Input.RecordID, "error: " + r.Err.Error(), "", ""})
			continue
		}
		t.AppendRow(table.Row{
			r.Input.RecordID,
			r.Outcome.Kind.String(),
			r.Outcome.Snapshot.Sequence,
			r.Outcome.Fingerprint.Short(),
		})
	}
	t.Render()
}

type batchOutputEntry struct {
	RecordID    string `json:"record_id"`
	Outcome     string `json:"outcome,omitempty"`
	Sequence    int    `json:"sequence,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

func batchJSON(results []usecase.BatchResult) []batchOutputEntry {
	out := make([]batchOutputEntry, 0, len(results))
	for _, r := range results {
		entry := batchOutputEntry{RecordID: r.Input.RecordID}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		} else {
			entry.Outcome = r.Outcome.Kind.String()
			entry.Sequence = r.Outcome.Snapshot.Sequence
			entry.Fingerprint = r.Outcome.Fingerprint.String()
		}
		out = append(out, entry)
	}
	return out
}
