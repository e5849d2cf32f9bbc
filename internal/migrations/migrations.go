package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/openswap-labs/swapsync/internal/db"
	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/openswap-labs/swapsync/pkg/config"
)

//go:embed 001_swapsync_schema.sql
var mig001 string

func migrations() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_swapsync_schema.sql",
			SQL: mig001,
		},
	}
}

// RunMigrations applies the swapsync schema to the configured database.
func RunMigrations(cfg config.DatabaseConfig) error {
	return db.RunMigrations(cfg.Path, migrations())
}

// RunMigrationsDB applies the swapsync schema to an already-open database.
func RunMigrationsDB(log *logger.Logger, database *sql.DB) error {
	return db.RunMigrationsDB(log, database, migrations())
}
