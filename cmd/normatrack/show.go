package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/normatrack/normatrack/internal/render"
	"github.com/normatrack/normatrack/internal/snapshot"
)

func newShowCmd(opts *globalOptions) *cobra.Command {
	var (
		sequence int
		at       string
		raw      bool
		format   string
	)

	cmd := &cobra.Command{
		Use:   "show <record-id>",
		Short: "Print the normalized text of a snapshot",
		Long:  "Print the normalized text of the latest snapshot, of --seq N, or of the snapshot in effect --at a time.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID := args[0]
			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}
			if cmd.Flags().Changed("seq") && at != "" {
				return fmt.Errorf("--seq and --at are mutually exclusive")
			}
			when, err := parseTimeFlag(at)
			if err != nil {
				return err
			}

			e, err := openEnv(opts.cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := context.Background()
			var snap *snapshot.Snapshot
			if at != "" {
				snap, err = e.tracker.GetSnapshotAt(ctx, recordID, when)
			} else {
				snap, err = e.tracker.GetSnapshot(ctx, recordID, sequence)
			}
			if err != nil {
				return err
			}

			if raw {
				return writeRaw(cmd.OutOrStdout(), e, snap)
			}
			if format == "json" {
				return render.JSON(cmd.OutOrStdout(), snap)
			}
			if _, err := io.WriteString(cmd.OutOrStdout(), snap.Text); err != nil {
				return err
			}
			if snap.Text != "" {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&sequence, "seq", 0, "Snapshot sequence (latest if omitted)")
	cmd.Flags().StringVar(&at, "at", "", "Show the snapshot in effect at this time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the archived raw content instead of the normalized text")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func writeRaw(w io.Writer, e *env, snap *snapshot.Snapshot) error {
	if snap.RawRef == "" {
		return fmt.Errorf("snapshot %s has no archived raw content", snap.Ref())
	}
	ok, err := e.archive.Verify(snap.RawRef)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("archived raw content of %s is missing or corrupted", snap.Ref())
	}
	content, err := e.archive.Read(snap.RawRef)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}
