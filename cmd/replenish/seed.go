package main

import (
	"fmt"

	"github.com/andresuchdata/smart-replenishment/internal/cache"
	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/internal/dataset"
	"github.com/andresuchdata/smart-replenishment/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load movement and orderpoint CSV files into the database",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{
				Name:     "movements",
				Usage:    "CSV of completed outbound movements (product_id,date,quantity)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "orderpoints",
				Usage: "CSV of orderpoints (id,product_id,min_qty,max_qty)",
			},
		},
		Action: seed,
	}
}

func seed(c *cli.Context) error {
	data, err := dataset.LoadFiles(c.String("movements"), c.String("orderpoints"))
	if err != nil {
		return err
	}

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(c.Context, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	moveStmt, err := tx.PrepareContext(c.Context, `
		INSERT INTO stock_moves (product_id, date, product_uom_qty, state, picking_type_code)
		VALUES ($1, $2, $3, 'done', 'outgoing')`)
	if err != nil {
		return fmt.Errorf("prepare movement insert: %w", err)
	}
	defer moveStmt.Close()

	for _, m := range data.Movements {
		if _, err := moveStmt.ExecContext(c.Context, m.ProductID, m.Timestamp, decimal.NewFromFloat(m.Quantity)); err != nil {
			return fmt.Errorf("insert movement for product %d: %w", m.ProductID, err)
		}
	}

	opStmt, err := tx.PrepareContext(c.Context, `
		INSERT INTO stock_warehouse_orderpoints (id, product_id, product_min_qty, product_max_qty)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET product_id = EXCLUDED.product_id,
		    product_min_qty = EXCLUDED.product_min_qty,
		    product_max_qty = EXCLUDED.product_max_qty,
		    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("prepare orderpoint insert: %w", err)
	}
	defer opStmt.Close()

	for _, op := range data.Orderpoints {
		if _, err := opStmt.ExecContext(c.Context, op.ID, op.ProductID,
			decimal.NewFromFloat(op.MinQty), decimal.NewFromFloat(op.MaxQty)); err != nil {
			return fmt.Errorf("insert orderpoint %d: %w", op.ID, err)
		}
	}

	if len(data.Orderpoints) > 0 {
		// keep BIGSERIAL ahead of explicit ids
		if _, err := tx.ExecContext(c.Context, `
			SELECT setval(pg_get_serial_sequence('stock_warehouse_orderpoints', 'id'),
			              (SELECT MAX(id) FROM stock_warehouse_orderpoints))`); err != nil {
			return fmt.Errorf("reset orderpoint sequence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	invalidateSummaries(c)

	logger.Log.Info().
		Int("movements", len(data.Movements)).
		Int("orderpoints", len(data.Orderpoints)).
		Msg("seed completed")
	return nil
}

// invalidateSummaries drops cached run summaries, which describe the data
// before the seed.
func invalidateSummaries(c *cli.Context) {
	cfg := config.Load()
	if !cfg.Cache.Enabled {
		return
	}

	client, err := cache.NewRedisClient(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("redis unavailable, cached summaries left in place")
		return
	}
	defer client.Close()

	if err := cache.NewSummaryCache(client, cache.SummaryTTL(cfg.Cache)).InvalidateAll(c.Context); err != nil {
		logger.Log.Warn().Err(err).Msg("failed to invalidate cached summaries")
	}
}
