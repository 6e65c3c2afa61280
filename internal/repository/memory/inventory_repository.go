package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
)

// InventoryStore provides in-memory movements and orderpoints
type InventoryStore struct {
	mu          sync.Mutex
	movements   []domain.MovementRecord
	orderpoints []domain.Orderpoint
	writes      map[int64]int

	// QueryErr, when set, is returned by QueryMovements.
	QueryErr error
	// WriteErrs maps orderpoint IDs to the error WriteOrderpoint returns for them.
	WriteErrs map[int64]error
}

// NewInventoryStore creates a new in-memory inventory store
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{
		writes:    make(map[int64]int),
		WriteErrs: make(map[int64]error),
	}
}

// Verify interface compliance
var _ repository.InventoryStore = (*InventoryStore)(nil)

// AddMovement appends a completed outbound movement
func (s *InventoryStore) AddMovement(m domain.MovementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = int64(len(s.movements) + 1)
	}
	s.movements = append(s.movements, m)
}

// AddOrderpoint registers an orderpoint; an ID is assigned when zero
func (s *InventoryStore) AddOrderpoint(op domain.Orderpoint) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op.ID == 0 {
		op.ID = int64(len(s.orderpoints) + 1)
	}
	s.orderpoints = append(s.orderpoints, op)
	return op.ID
}

// QueryMovements returns movements within [from, to]
func (s *InventoryStore) QueryMovements(ctx context.Context, from, to time.Time) ([]domain.MovementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.QueryErr != nil {
		return nil, s.QueryErr
	}

	var out []domain.MovementRecord
	for _, m := range s.movements {
		if m.Timestamp.Before(from) || m.Timestamp.After(to) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// FindOrderpoint returns the lowest-ID orderpoint of the product
func (s *InventoryStore) FindOrderpoint(ctx context.Context, productID int64) (*domain.Orderpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *domain.Orderpoint
	for i := range s.orderpoints {
		op := s.orderpoints[i]
		if op.ProductID != productID {
			continue
		}
		if found == nil || op.ID < found.ID {
			found = &op
		}
	}
	return found, nil
}

// WriteOrderpoint updates min and max of an orderpoint
func (s *InventoryStore) WriteOrderpoint(ctx context.Context, orderpointID int64, minQty, maxQty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.WriteErrs[orderpointID]; ok && err != nil {
		return err
	}

	for i := range s.orderpoints {
		if s.orderpoints[i].ID == orderpointID {
			s.orderpoints[i].MinQty = minQty
			s.orderpoints[i].MaxQty = maxQty
			s.orderpoints[i].UpdatedAt = time.Now()
			s.writes[orderpointID]++
			return nil
		}
	}
	return fmt.Errorf("orderpoint %d does not exist", orderpointID)
}

// Orderpoints returns a snapshot of all orderpoints sorted by ID
func (s *InventoryStore) Orderpoints() []domain.Orderpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]domain.Orderpoint(nil), s.orderpoints...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Writes returns how many times an orderpoint was written
func (s *InventoryStore) Writes(orderpointID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[orderpointID]
}

// TotalWrites returns the number of successful writes across all orderpoints
func (s *InventoryStore) TotalWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.writes {
		total += n
	}
	return total
}
