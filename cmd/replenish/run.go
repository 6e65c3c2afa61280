package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/urfave/cli/v2"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one replenishment pass against the database and exit",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the full run summary as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			comps, err := buildComponents(cfg)
			if err != nil {
				return err
			}
			defer comps.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := comps.runner.Trigger(ctx, "cli")
			if summary != nil {
				if perr := printSummary(summary, c.Bool("json")); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}

func printSummary(summary *domain.RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	c := summary.Counts
	fmt.Printf("run %s: %s (stage %s, %s)\n", summary.RunID, summary.Status, summary.Stage, summary.Duration())
	fmt.Printf("  window            %s .. %s\n", summary.WindowStart.Format("2006-01-02 15:04"), summary.ReferenceTime.Format("2006-01-02 15:04"))
	fmt.Printf("  considered        %d\n", c.Considered)
	fmt.Printf("  updated           %d\n", c.Updated)
	fmt.Printf("  unchanged         %d\n", c.Unchanged)
	fmt.Printf("  insufficient      %d\n", c.InsufficientHistory)
	fmt.Printf("  policy skipped    %d\n", c.PolicySkipped)
	fmt.Printf("  no orderpoint     %d\n", c.NotFound)
	fmt.Printf("  failed            %d\n", c.Failed)
	if c.Cancelled > 0 {
		fmt.Printf("  not processed     %d\n", c.Cancelled)
	}
	for _, r := range summary.Results {
		if r.Outcome != domain.OutcomeFailed {
			continue
		}
		fmt.Printf("    product %d (%s): %s\n", r.ProductID, domain.OutcomeLabel(r.Outcome), r.Error)
	}
	if summary.Error != "" {
		fmt.Printf("  error             %s\n", summary.Error)
	}
	return nil
}
