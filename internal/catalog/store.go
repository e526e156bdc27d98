package catalog

import (
	"sync"

	"github.com/shopspring/decimal"

	"procure/internal"
)

// Store owns the in-memory seller catalog. All mutation goes through Append;
// readers get copies, so search and ranking never observe a half-applied
// import. Nothing is persisted: the catalog lives and dies with the process.
type Store struct {
	mu      sync.RWMutex
	records []internal.ProductRecord
}

func NewStore() *Store {
	return &Store{}
}

// NewSeededStore returns a store pre-populated with the demo seller list.
func NewSeededStore() *Store {
	s := NewStore()
	s.Append(Seed()...)
	return s
}

func (s *Store) Append(records ...internal.ProductRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// All returns the catalog in insertion order. The slice is a copy; callers may
// not mutate store state through it.
func (s *Store) All() []internal.ProductRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]internal.ProductRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Names returns the distinct item names in first-seen order. Order matters:
// the fuzzy matcher breaks score ties by it.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		if _, ok := seen[r.ItemName]; ok {
			continue
		}
		seen[r.ItemName] = struct{}{}
		out = append(out, r.ItemName)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Seed is the static demo catalog: two sellers, three items, flattened to one
// record per seller/item pair.
func Seed() []internal.ProductRecord {
	return []internal.ProductRecord{
		{SellerName: "Acme Computers", ItemName: "Laptop i7 16GB", SKU: "laptop-i7-16gb", UnitPrice: decimal.NewFromInt(1200), Stock: 50, DeliveryDays: 5},
		{SellerName: "Acme Computers", ItemName: "Desktop i5 8GB", SKU: "desktop-i5-8gb", UnitPrice: decimal.NewFromInt(900), Stock: 30, DeliveryDays: 3},
		{SellerName: "Global Tech", ItemName: "Laptop i7 16GB", SKU: "laptop-i7-16gb", UnitPrice: decimal.NewFromInt(1150), Stock: 10, DeliveryDays: 2},
		{SellerName: "Global Tech", ItemName: "4K Monitor", SKU: "monitor-4k", UnitPrice: decimal.NewFromInt(300), Stock: 100, DeliveryDays: 7},
	}
}
