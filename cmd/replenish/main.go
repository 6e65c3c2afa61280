package main

import (
	"os"

	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/pkg/logger"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the configured database)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func main() {
	app := &cli.App{
		Name:  "replenish",
		Usage: "Forecast-driven reorder threshold maintenance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			level := cfg.Log.Level
			if c.IsSet("log-level") {
				level = c.String("log-level")
			}
			logger.Setup(level, cfg.Log.Format)
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			runCommand(),
			simulateCommand(),
			migrateCommand(),
			seedCommand(),
			reportsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("replenish failed")
	}
}
