package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/normatrack/normatrack/internal/recorder"
	"github.com/normatrack/normatrack/internal/render"
)

func newCaptureCmd(opts *globalOptions) *cobra.Command {
	var (
		sourceURL string
		filePath  string
		at        string
		archive   bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "capture <record-id>",
		Short: "Record a captured version of a legal norm",
		Long: `Record raw content captured for a legal norm, read from --file or stdin.
A new snapshot is stored only when the normalized text differs from the latest one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID := args[0]
			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}

			capturedAt, err := parseTimeFlag(at)
			if err != nil {
				return err
			}

			raw, err := readContent(cmd.InOrStdin(), filePath)
			if err != nil {
				return err
			}

			if sourceURL == "" {
				sourceURL, _ = opts.cfg.SourceURL(recordID)
			}

			e, err := openEnv(opts.cfg, archive)
			if err != nil {
				return err
			}
			defer e.Close()

			out, err := e.tracker.Capture(context.Background(), recorder.Input{
				RecordID:   recordID,
				SourceURL:  sourceURL,
				Raw:        raw,
				CapturedAt: capturedAt,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				return render.JSON(cmd.OutOrStdout(), out)
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "Source URL of the captured content")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read content from file instead of stdin")
	cmd.Flags().StringVar(&at, "at", "", "Capture time (RFC 3339 or YYYY-MM-DD), now if omitted")
	cmd.Flags().BoolVar(&archive, "archive", false, "Archive the raw content of new snapshots")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func printOutcome(w io.Writer, out *recorder.Outcome) {
	ref := out.Snapshot.Ref()
	switch out.Kind {
	case recorder.Changed:
		fmt.Fprintf(w, "%s: changed (%s -> %s) %s\n", ref.RecordID, out.Previous.Ref(), ref, out.Fingerprint.Short())
	default:
		fmt.Fprintf(w, "%s: %s (%s) %s\n", ref.RecordID, strings.ReplaceAll(out.Kind.String(), "_", " "), ref, out.Fingerprint.Short())
	}
	if out.Degenerate {
		fmt.Fprintf(w, "warning: normalized text of %s is empty or near-empty\n", ref.RecordID)
	}
}

func readContent(stdin io.Reader, path string) (string, error) {
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// parseTimeFlag accepts RFC 3339 or a bare date. Empty means zero.
func parseTimeFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time: %s (expected RFC 3339 or YYYY-MM-DD)", value)
}
