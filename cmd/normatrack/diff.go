package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/normatrack/normatrack/internal/render"
)

func newDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		base         int
		target       int
		format       string
		contextLines int
		width        int
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "diff <record-id>",
		Short: "Show what changed between two snapshots",
		Long: `Compare two snapshots of a legal norm. Without --base and --target the
latest snapshot is compared with the one before it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID := args[0]
			if err := validateFormat(format, "side", "unified", "changes", "summary", "json"); err != nil {
				return err
			}
			if !cmd.Flags().Changed("context") {
				contextLines = opts.cfg.Render.Context
			}
			if !cmd.Flags().Changed("width") {
				width = opts.cfg.Render.Width
			}
			if !cmd.Flags().Changed("limit") {
				limit = opts.cfg.Render.ChangesLimit
			}

			e, err := openEnv(opts.cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			cmp, err := e.tracker.Compare(context.Background(), recordID, base, target)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				return render.JSON(w, cmp)
			case "summary":
				return render.Summary(w, cmp)
			case "changes":
				return render.Changes(w, cmp, limit)
			case "unified":
				return render.Unified(w, cmp, contextLines)
			default:
				render.SideBySide(w, cmp, render.SideBySideOptions{Width: width, Context: contextLines})
				return nil
			}
		},
	}

	cmd.Flags().IntVar(&base, "base", 0, "Base sequence (the one before target if omitted)")
	cmd.Flags().IntVar(&target, "target", 0, "Target sequence (latest if omitted)")
	cmd.Flags().StringVar(&format, "format", "side", "Output format: side, unified, changes, summary, or json")
	cmd.Flags().IntVarP(&contextLines, "context", "C", 4, "Unchanged lines shown around changes (side and unified)")
	cmd.Flags().IntVar(&width, "width", 0, "Table width (terminal width if omitted)")
	cmd.Flags().IntVar(&limit, "limit", render.DefaultChangesLimit, "Maximum changed lines printed by --format changes")

	return cmd
}
