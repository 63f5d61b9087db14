// Package source adapts catalog and sales collaborators: a static in-memory
// slice and an uploaded Excel workbook. The Postgres-backed source lives in
// repository/postgres.
package source

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// CatalogSource returns the current inventory snapshot for a catalog slice.
type CatalogSource interface {
	CatalogSnapshot(ctx context.Context) ([]domain.ProductSnapshot, error)
}

// SalesSource returns a SKU's daily sales since a date, oldest first.
type SalesSource interface {
	DailySales(ctx context.Context, sku string, since time.Time) ([]domain.SalesRecord, error)
}

// Static serves fixed data. It is safe for concurrent reads.
type Static struct {
	mu      sync.RWMutex
	catalog []domain.ProductSnapshot
	sales   map[string][]domain.SalesRecord
}

func NewStatic(catalog []domain.ProductSnapshot, sales []domain.SalesRecord) *Static {
	s := &Static{}
	s.Replace(catalog, sales)
	return s
}

// Replace swaps in a new catalog and sales ledger.
func (s *Static) Replace(catalog []domain.ProductSnapshot, sales []domain.SalesRecord) {
	bySKU := make(map[string][]domain.SalesRecord)
	for _, r := range sales {
		bySKU[r.SKU] = append(bySKU[r.SKU], r)
	}
	for sku := range bySKU {
		recs := bySKU[sku]
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append([]domain.ProductSnapshot(nil), catalog...)
	s.sales = bySKU
}

func (s *Static) CatalogSnapshot(ctx context.Context) ([]domain.ProductSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ProductSnapshot(nil), s.catalog...), nil
}

func (s *Static) DailySales(ctx context.Context, sku string, since time.Time) ([]domain.SalesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SalesRecord
	for _, r := range s.sales[sku] {
		if !r.Date.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Ledger returns every sales record, ordered by SKU then date.
func (s *Static) Ledger() []domain.SalesRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skus := make([]string, 0, len(s.sales))
	for sku := range s.sales {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	var out []domain.SalesRecord
	for _, sku := range skus {
		out = append(out, s.sales[sku]...)
	}
	return out
}
