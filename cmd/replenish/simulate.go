package main

import (
	"fmt"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/internal/dataset"
	"github.com/andresuchdata/smart-replenishment/internal/forecast"
	"github.com/andresuchdata/smart-replenishment/internal/replenishment"
	"github.com/andresuchdata/smart-replenishment/internal/repository/memory"
	"github.com/urfave/cli/v2"
)

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run the job against CSV files in memory; nothing is written to a database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "movements",
				Usage:    "CSV of completed outbound movements (product_id,date,quantity)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "orderpoints",
				Usage: "CSV of orderpoints (id,product_id,min_qty,max_qty)",
			},
			&cli.TimestampFlag{
				Name:   "reference-time",
				Usage:  "Upper bound of the history window (default: now)",
				Layout: "2006-01-02T15:04:05",
			},
			&cli.StringFlag{
				Name:  "oracle",
				Usage: "Forecast oracle override (moving_average, ses, http)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the full run summary as JSON",
			},
		},
		Action: simulate,
	}
}

func simulate(c *cli.Context) error {
	cfg := config.Load()
	forecastCfg := cfg.Forecast
	if c.IsSet("oracle") {
		forecastCfg.Oracle = c.String("oracle")
	}

	oracle, err := forecast.NewFromConfig(forecastCfg)
	if err != nil {
		return err
	}

	data, err := dataset.LoadFiles(c.String("movements"), c.String("orderpoints"))
	if err != nil {
		return err
	}
	store := memory.NewInventoryStore()
	data.Into(store)

	now := time.Now()
	if ts := c.Timestamp("reference-time"); ts != nil {
		now = *ts
	}

	summary, err := replenishment.NewJob(store, oracle).Run(c.Context, replenishment.ParamsFromConfig(cfg.Replenishment, now))
	if summary != nil {
		if perr := printSummary(summary, c.Bool("json")); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}

	if !c.Bool("json") {
		fmt.Println("resulting orderpoints:")
		for _, op := range store.Orderpoints() {
			fmt.Printf("  #%d product %d: min %.4f max %.4f\n", op.ID, op.ProductID, op.MinQty, op.MaxQty)
		}
	}
	return nil
}
