package sequence

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Allocator hands out PO sequence numbers. Numbers are unique and strictly
// increasing per (vendorID, day) across every caller sharing the backend.
type Allocator interface {
	Next(ctx context.Context, vendorID string, day time.Time) (int, error)
}

// DayKey renders the UTC calendar day used for numbering.
func DayKey(day time.Time) string {
	return day.UTC().Format("20060102")
}

// Key is the counter key for a vendor and day.
func Key(vendorID string, day time.Time) string {
	return fmt.Sprintf("po_seq:%s:%s", vendorID, DayKey(day))
}

// MemoryAllocator is a single-process allocator backed by atomic counters.
type MemoryAllocator struct {
	counters sync.Map // key -> *atomic.Int64
}

func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{}
}

func (m *MemoryAllocator) Next(ctx context.Context, vendorID string, day time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, _ := m.counters.LoadOrStore(Key(vendorID, day), new(atomic.Int64))
	counter := v.(*atomic.Int64)

	for {
		cur := counter.Load()
		if counter.CompareAndSwap(cur, cur+1) {
			return int(cur + 1), nil
		}
	}
}

// Seed moves a counter forward so the next allocation is at least last+1.
// It never moves a counter backwards.
func (m *MemoryAllocator) Seed(vendorID string, day time.Time, last int) {
	v, _ := m.counters.LoadOrStore(Key(vendorID, day), new(atomic.Int64))
	counter := v.(*atomic.Int64)
	for {
		cur := counter.Load()
		if int64(last) <= cur || counter.CompareAndSwap(cur, int64(last)) {
			return
		}
	}
}
