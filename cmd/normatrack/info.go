package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/normatrack/normatrack/internal/config"
	"github.com/normatrack/normatrack/internal/database"
	"github.com/normatrack/normatrack/internal/render"
)

func newInfoCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show storage locations and database status",
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

			ctx := context.Background()
			version, dirty, err := database.SchemaVersion(ctx, e.db)
			if err != nil {
				return err
			}
			count, err := database.NewRecordRepository(e.db).Count(ctx)
			if err != nil {
				return err
			}

			objects := 0
			if err := e.archive.Walk(func(string, string) error {
				objects++
				return nil
			}); err != nil {
				return fmt.Errorf("failed to scan archive: %w", err)
			}

			output := infoOutput{
				DataDir:       config.GetDataDir(),
				ConfigPath:    opts.configPathOrDefault(),
				DBPath:        e.cfg.DBPath(),
				SchemaVersion: version,
				SchemaDirty:   dirty,
				Records:       count,
				ArchiveDir:    e.archive.Root(),
				ArchiveOn:     e.cfg.Archive.Enabled,
				Objects:       objects,
			}

			if format == "json" {
				return render.JSON(cmd.OutOrStdout(), output)
			}
			outputInfoTable(cmd, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

type infoOutput struct {
	DataDir       string `json:"dataDir"`
	ConfigPath    string `json:"configPath"`
	DBPath        string `json:"dbPath"`
	SchemaVersion int64  `json:"schemaVersion"`
	SchemaDirty   bool   `json:"schemaDirty"`
	Records       int64  `json:"records"`
	ArchiveDir    string `json:"archiveDir"`
	ArchiveOn     bool   `json:"archiveEnabled"`
	Objects       int    `json:"archivedObjects"`
}

func outputInfoTable(cmd *cobra.Command, info infoOutput) {
	// Key-value pair format
	fmt.Fprintf(cmd.OutOrStdout(), "Data Dir:       %s\n", info.DataDir)
	fmt.Fprintf(cmd.OutOrStdout(), "Config:         %s\n", info.ConfigPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Database:       %s\n", info.DBPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Schema Version: %d\n", info.SchemaVersion)
	if info.SchemaDirty {
		fmt.Fprintf(cmd.OutOrStdout(), "Schema Dirty:   %t\n", info.SchemaDirty)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Records:        %d\n", info.Records)
	fmt.Fprintf(cmd.OutOrStdout(), "Archive Dir:    %s\n", info.ArchiveDir)
	fmt.Fprintf(cmd.OutOrStdout(), "Archive:        %t\n", info.ArchiveOn)
	fmt.Fprintf(cmd.OutOrStdout(), "Objects:        %d\n", info.Objects)
}
