package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/normatrack/normatrack/internal/render"
)

func newRecordsCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List tracked legal norms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format, "table", "json"); err != nil {
				return err
			}

			e, err := openEnv(opts.cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			records, err := e.tracker.ListRecords(context.Background())
			if err != nil {
				return err
			}

			if format == "json" {
				return render.JSON(cmd.OutOrStdout(), records)
			}
			render.Records(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}
