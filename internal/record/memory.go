package record

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepository implements Repository in memory.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]GenerationRecord
	nextID  int64
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]GenerationRecord),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Get(_ context.Context, simplified string) (*GenerationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[simplified]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryRepository) List(_ context.Context, order Order) ([]GenerationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]GenerationRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b GenerationRecord) int {
		if order == OrderReverse {
			return cmp.Compare(b.ID, a.ID)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return records, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, rec *GenerationRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	stored := *rec
	if existing, ok := r.records[rec.Word.Simplified]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		r.nextID++
		stored.ID = r.nextID
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.records[rec.Word.Simplified] = stored
	*rec = stored
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, simplified string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[simplified]; !ok {
		return false, nil
	}
	delete(r.records, simplified)
	return true, nil
}
