package database

import (
	"database/sql"
	"time"

	sqldb "github.com/normatrack/normatrack/internal/database/sqlc"
	"github.com/normatrack/normatrack/internal/snapshot"
)

func formatTime(t time.Time) string {
	return snapshot.FormatTime(t)
}

func parseTime(value string) (time.Time, error) {
	return snapshot.ParseTime(value)
}

func optionalTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}

func queriesFromContext(ctx *Context) *sqldb.Queries {
	if ctx == nil {
		return nil
	}
	if ctx.Queries != nil {
		return ctx.Queries
	}
	if ctx.DB == nil {
		return nil
	}
	return sqldb.New(ctx.DB)
}
