package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/qcheck-dev/qcheck/internal/domain/record"
)

// RecordsRepo is an in-memory stand-in for the postgres repo. It keeps the
// same semantics (derived rpn, updatedAt stamping, local descending sort) so
// handler tests and local development do not need a database.
type RecordsRepo struct {
	mu    sync.RWMutex
	items map[string]record.FMEARecord
}

func NewRecordsRepo() *RecordsRepo {
	return &RecordsRepo{
		items: make(map[string]record.FMEARecord),
	}
}

func (r *RecordsRepo) Create(ctx context.Context, req record.CreateRecordRequest) (record.FMEARecord, error) {
	rec := record.NewFromCreateRequest(req)

	r.mu.Lock()
	r.items[rec.ID] = rec
	r.mu.Unlock()

	return rec, nil
}

func (r *RecordsRepo) Update(ctx context.Context, id string, req record.UpdateRecordRequest) (record.FMEARecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[id]

	if !ok {
		return record.FMEARecord{}, record.ErrNotFound
	}

	merged := req.ApplyTo(cur)
	merged.UpdatedAt = time.Now().UTC()

	r.items[id] = merged

	return merged, nil
}

func (r *RecordsRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.items[id]

	if !ok {
		return false, nil
	}

	delete(r.items, id)

	return true, nil
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (record.FMEARecord, error) {
	r.mu.RLock()
	rec, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return record.FMEARecord{}, record.ErrNotFound
	}

	return rec, nil
}

func (r *RecordsRepo) ListByUser(ctx context.Context, userID string) ([]record.FMEARecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]record.FMEARecord, 0)

	for _, rec := range r.items {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}

	sortNewestFirst(out)

	return out, nil
}

func (r *RecordsRepo) ListAll(ctx context.Context) ([]record.FMEARecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]record.FMEARecord, 0, len(r.items))

	for _, rec := range r.items {
		out = append(out, rec)
	}

	sortNewestFirst(out)

	return out, nil
}

func sortNewestFirst(recs []record.FMEARecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
}
