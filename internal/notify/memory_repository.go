package notify

import (
	"context"
	"sort"
	"sync"
)

type memoryRecordRepository struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryRecordRepository builds an in-memory delivery record store for testing.
func NewMemoryRecordRepository() RecordRepository {
	return &memoryRecordRepository{}
}

func (r *memoryRecordRepository) Create(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *memoryRecordRepository) ListByClient(_ context.Context, clientID string) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, rec := range r.records {
		if rec.ClientID == clientID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
