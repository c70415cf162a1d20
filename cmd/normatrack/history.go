package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/normatrack/normatrack/internal/render"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history <record-id>",
		Short: "List the snapshots of a legal norm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, "table", "json"); err != nil {
				return err
			}

			e, err := openEnv(opts.cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			metas, err := e.tracker.GetHistory(context.Background(), args[0])
			if err != nil {
				return err
			}

			if format == "json" {
				return render.JSON(cmd.OutOrStdout(), metas)
			}
			render.History(cmd.OutOrStdout(), metas)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}
