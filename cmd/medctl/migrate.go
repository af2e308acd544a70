package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kirillkom/medical-doc-extractor/internal/bootstrap"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/repository/sqlstore"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Create the reference tables for the configured DB_DRIVER",
	Action: func(c *cli.Context) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		db, dialect, err := bootstrap.OpenDatabase(c.Context, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := sqlstore.EnsureSchema(c.Context, db, dialect); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("schema_ready", "driver", string(dialect))
		return nil
	},
}
