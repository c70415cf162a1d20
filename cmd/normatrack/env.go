package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/normatrack/normatrack/internal/config"
	"github.com/normatrack/normatrack/internal/database"
	"github.com/normatrack/normatrack/internal/filesystem"
	"github.com/normatrack/normatrack/internal/metrics"
	"github.com/normatrack/normatrack/internal/normalize"
	"github.com/normatrack/normatrack/internal/recorder"
	"github.com/normatrack/normatrack/internal/services"
	"github.com/normatrack/normatrack/internal/usecase"
)

// env is the wired engine shared by the subcommands.
type env struct {
	cfg      *config.Config
	db       *database.Context
	store    *services.SnapshotService
	archive  *filesystem.Archive
	registry *prometheus.Registry
	tracker  *usecase.Tracker
}

// openEnv opens the database and builds the tracker. withArchive enables
// the raw archive regardless of the config file.
func openEnv(cfg *config.Config, withArchive bool) (*env, error) {
	dbCtx, err := database.CreateDatabase(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	store := services.NewSnapshotService(dbCtx)
	archive := filesystem.NewArchive(cfg.ObjectsDir())

	opts := recorder.Options{
		Normalizer: normalize.New(normalize.Options{MinContentRunes: cfg.Normalize.MinContentRunes}),
		Metrics:    m,
		Logger:     slog.Default(),
	}
	if withArchive || cfg.Archive.Enabled {
		opts.Archive = archive
	}
	rec := recorder.New(store, opts)

	return &env{
		cfg:      cfg,
		db:       dbCtx,
		store:    store,
		archive:  archive,
		registry: registry,
		tracker:  usecase.NewTracker(store, rec, m, slog.Default()),
	}, nil
}

func (e *env) Close() {
	if err := database.CloseDatabase(e.db); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

func validateFormat(format string, valid ...string) error {
	for _, v := range valid {
		if format == v {
			return nil
		}
	}
	return fmt.Errorf("invalid format: %s (valid values: %s)", format, strings.Join(valid, ", "))
}
