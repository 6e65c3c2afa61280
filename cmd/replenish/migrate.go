package main

import (
	"database/sql"
	"fmt"

	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/internal/repository/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the inventory and run ledger tables",
		Flags: []cli.Flag{newDBURLFlag()},
		Action: func(c *cli.Context) error {
			db, err := openDB(c)
			if err != nil {
				return err
			}
			defer db.Close()

			return postgres.Migrate(c.Context, db)
		},
	}
}

// openDB opens a pgx connection from --db-url or the configured database.
func openDB(c *cli.Context) (*sql.DB, error) {
	dbURL := c.String("db-url")
	if dbURL == "" {
		dbURL = config.Load().Database.URLString()
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
