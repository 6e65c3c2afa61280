package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMovements(t *testing.T) {
	in := "product_id,date,quantity\n" +
		"1,2024-06-01T10:00:00Z,3.5\n" +
		"2, 2024-06-02 08:30:00 ,1\n" +
		"1,2024-06-03,0\n"

	got, err := ReadMovements(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(1), got[0].ProductID)
	assert.Equal(t, 3.5, got[0].Quantity)
	assert.Equal(t, time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC), got[1].Timestamp)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), got[2].Timestamp)
}

func TestReadMovementsColumnOrder(t *testing.T) {
	in := "Quantity,Product_ID,Date\n2,7,2024-01-01\n"

	got, err := ReadMovements(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ProductID)
	assert.Equal(t, 2.0, got[0].Quantity)
}

func TestReadMovementsErrors(t *testing.T) {
	tests := map[string]string{
		"empty":             "",
		"missing column":    "product_id,date\n1,2024-01-01\n",
		"bad product":       "product_id,date,quantity\nx,2024-01-01,1\n",
		"bad date":          "product_id,date,quantity\n1,yesterday,1\n",
		"negative":          "product_id,date,quantity\n1,2024-01-01,-2\n",
		"not a number":      "product_id,date,quantity\n1,2024-01-01,lots\n",
		"wrong field count": "product_id,date,quantity\n1,2024-01-01\n",
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadMovements(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestReadOrderpoints(t *testing.T) {
	in := "id,product_id,min_qty,max_qty\n10,1,2.5,5\n11,2,0,0\n"

	got, err := ReadOrderpoints(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].ID)
	assert.Equal(t, 2.5, got[0].MinQty)
	assert.Equal(t, 5.0, got[0].MaxQty)
}

func TestLoadFilesInto(t *testing.T) {
	dir := t.TempDir()
	moves := filepath.Join(dir, "moves.csv")
	ops := filepath.Join(dir, "orderpoints.csv")
	require.NoError(t, os.WriteFile(moves, []byte("product_id,date,quantity\n1,2024-06-01,4\n"), 0o600))
	require.NoError(t, os.WriteFile(ops, []byte("id,product_id,min_qty,max_qty\n3,1,0,0\n"), 0o600))

	d, err := LoadFiles(moves, ops)
	require.NoError(t, err)

	store := memory.NewInventoryStore()
	d.Into(store)

	op, err := store.FindOrderpoint(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, int64(3), op.ID)

	records, err := store.QueryMovements(context.Background(), time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = LoadFiles(filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)
}
