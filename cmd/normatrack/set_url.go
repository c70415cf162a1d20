package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSetURLCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-url <record-id> <url>",
		Short: "Correct the source URL of a tracked legal norm",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts.cfg, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.tracker.UpdateSourceURL(context.Background(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated source URL of %s\n", args[0])
			return nil
		},
	}

	return cmd
}
