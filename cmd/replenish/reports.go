package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/internal/storage"
	"github.com/urfave/cli/v2"
)

func reportsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "List archived run summaries in the report bucket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "day",
				Usage: "Only list reports of one day (YYYY/MM/DD)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if !cfg.Storage.Enabled {
				return fmt.Errorf("report storage is disabled (STORAGE_ENABLED=false)")
			}

			objects, err := storage.NewMinioClient(cfg.Storage)
			if err != nil {
				return err
			}

			prefix := strings.Trim(cfg.Storage.Prefix, "/")
			if day := c.String("day"); day != "" {
				prefix = path.Join(prefix, day)
			}

			items, err := objects.ListObjects(c.Context, prefix)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Printf("%s\t%d\n", item.Key, item.Size)
			}
			fmt.Printf("%d report(s)\n", len(items))
			return nil
		},
	}
}
