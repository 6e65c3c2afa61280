package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	moveStateDone       = "done"
	pickingTypeOutgoing = "outgoing"

	// quantityScale matches the NUMERIC(18, 4) orderpoint columns.
	quantityScale = 4
)

type inventoryRepository struct {
	db *DB
}

// NewInventoryRepository returns the postgres-backed inventory store.
func NewInventoryRepository(db *DB) repository.InventoryStore {
	return &inventoryRepository{db: db}
}

type movementRow struct {
	ID        int64           `db:"id"`
	ProductID int64           `db:"product_id"`
	Date      time.Time       `db:"date"`
	Quantity  decimal.Decimal `db:"product_uom_qty"`
}

type orderpointRow struct {
	ID        int64           `db:"id"`
	ProductID int64           `db:"product_id"`
	MinQty    decimal.Decimal `db:"product_min_qty"`
	MaxQty    decimal.Decimal `db:"product_max_qty"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (r *inventoryRepository) QueryMovements(ctx context.Context, from, to time.Time) ([]domain.MovementRecord, error) {
	query := `
		SELECT id, product_id, date, product_uom_qty
		FROM stock_moves
		WHERE state = $1
		  AND picking_type_code = $2
		  AND date >= $3
		  AND date <= $4
		ORDER BY date, id
	`

	var rows []movementRow
	if err := r.db.SelectContext(ctx, &rows, query, moveStateDone, pickingTypeOutgoing, from, to); err != nil {
		return nil, fmt.Errorf("error querying stock moves: %w", err)
	}

	records := make([]domain.MovementRecord, len(rows))
	for i, row := range rows {
		records[i] = domain.MovementRecord{
			ID:        row.ID,
			ProductID: row.ProductID,
			Timestamp: row.Date,
			Quantity:  row.Quantity.InexactFloat64(),
		}
	}

	return records, nil
}

func (r *inventoryRepository) FindOrderpoint(ctx context.Context, productID int64) (*domain.Orderpoint, error) {
	// Lowest id wins when a product has several orderpoints.
	query := `
		SELECT id, product_id, product_min_qty, product_max_qty, updated_at
		FROM stock_warehouse_orderpoints
		WHERE product_id = $1
		  AND active
		ORDER BY id
		LIMIT 1
	`

	var row orderpointRow
	err := r.db.GetContext(ctx, &row, query, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding orderpoint for product %d: %w", productID, err)
	}

	return &domain.Orderpoint{
		ID:        row.ID,
		ProductID: row.ProductID,
		MinQty:    row.MinQty.InexactFloat64(),
		MaxQty:    row.MaxQty.InexactFloat64(),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// QuantityScale reports the decimals orderpoint quantities are stored with.
func (r *inventoryRepository) QuantityScale() int32 {
	return quantityScale
}

func (r *inventoryRepository) WriteOrderpoint(ctx context.Context, orderpointID int64, minQty, maxQty float64) error {
	query := `
		UPDATE stock_warehouse_orderpoints
		SET product_min_qty = $1, product_max_qty = $2, updated_at = NOW()
		WHERE id = $3
	`

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			decimal.NewFromFloat(minQty).Round(quantityScale),
			decimal.NewFromFloat(maxQty).Round(quantityScale),
			orderpointID)
		if err != nil {
			return fmt.Errorf("error updating orderpoint %d: %w", orderpointID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading affected rows for orderpoint %d: %w", orderpointID, err)
		}
		if affected != 1 {
			return fmt.Errorf("orderpoint %d: expected 1 row updated, got %d", orderpointID, affected)
		}

		return nil
	})
}
