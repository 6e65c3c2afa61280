// Package dataset reads movement and orderpoint CSV exports used to seed a
// database or to drive a dry run against the in-memory store.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository/memory"
	"github.com/shopspring/decimal"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Dataset is the content of a movements file and an orderpoints file.
type Dataset struct {
	Movements   []domain.MovementRecord
	Orderpoints []domain.Orderpoint
}

// LoadFiles reads both CSV files. orderpointsPath may be empty.
func LoadFiles(movementsPath, orderpointsPath string) (*Dataset, error) {
	d := &Dataset{}

	f, err := os.Open(movementsPath)
	if err != nil {
		return nil, fmt.Errorf("open movements: %w", err)
	}
	defer f.Close()

	if d.Movements, err = ReadMovements(f); err != nil {
		return nil, fmt.Errorf("%s: %w", movementsPath, err)
	}

	if orderpointsPath == "" {
		return d, nil
	}

	g, err := os.Open(orderpointsPath)
	if err != nil {
		return nil, fmt.Errorf("open orderpoints: %w", err)
	}
	defer g.Close()

	if d.Orderpoints, err = ReadOrderpoints(g); err != nil {
		return nil, fmt.Errorf("%s: %w", orderpointsPath, err)
	}

	return d, nil
}

// Into loads the dataset into an in-memory store.
func (d *Dataset) Into(store *memory.InventoryStore) {
	for _, m := range d.Movements {
		store.AddMovement(m)
	}
	for _, op := range d.Orderpoints {
		store.AddOrderpoint(op)
	}
}

// ReadMovements parses a CSV with the columns product_id, date and quantity.
// Only completed outbound movements belong in the file.
func ReadMovements(r io.Reader) ([]domain.MovementRecord, error) {
	var out []domain.MovementRecord
	err := readRows(r, []string{"product_id", "date", "quantity"}, func(line int, get func(string) string) error {
		productID, err := strconv.ParseInt(get("product_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid product_id: %w", line, err)
		}
		ts, err := parseTime(get("date"))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		qty, err := parseQuantity(get("quantity"))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		out = append(out, domain.MovementRecord{ProductID: productID, Timestamp: ts, Quantity: qty})
		return nil
	})
	return out, err
}

// ReadOrderpoints parses a CSV with the columns id, product_id, min_qty and max_qty.
func ReadOrderpoints(r io.Reader) ([]domain.Orderpoint, error) {
	var out []domain.Orderpoint
	err := readRows(r, []string{"id", "product_id", "min_qty", "max_qty"}, func(line int, get func(string) string) error {
		id, err := strconv.ParseInt(get("id"), 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid id: %w", line, err)
		}
		productID, err := strconv.ParseInt(get("product_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid product_id: %w", line, err)
		}
		minQty, err := parseQuantity(get("min_qty"))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		maxQty, err := parseQuantity(get("max_qty"))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		out = append(out, domain.Orderpoint{ID: id, ProductID: productID, MinQty: minQty, MaxQty: maxQty})
		return nil
	})
	return out, err
}

func readRows(r io.Reader, required []string, fn func(line int, get func(string) string) error) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("empty file")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) string {
			return strings.TrimSpace(record[index[name]])
		}
		if err := fn(line, get); err != nil {
			return err
		}
	}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parseQuantity(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative quantity %q", s)
	}
	return d.InexactFloat64(), nil
}
