package database

import (
	"context"
	"sort"
	"sync"

	"github.com/programbi/crm-leads/internal/entity"
)

// MemoryLeadRepository guarda leads em processo. Usado sem DATABASE_URL e nos testes.
// Callbacks rodam de forma síncrona, fora do lock, então podem mutar o próprio repositório.
type MemoryLeadRepository struct {
	mu      sync.Mutex
	leads   map[string]entity.Lead
	subs    map[int]func([]entity.Lead)
	nextSub int
}

func NewMemoryLeadRepository(seed ...entity.Lead) *MemoryLeadRepository {
	r := &MemoryLeadRepository{
		leads: make(map[string]entity.Lead),
		subs:  make(map[int]func([]entity.Lead)),
	}
	for _, l := range seed {
		r.leads[l.ID] = cloneLead(l)
	}
	return r
}

func (r *MemoryLeadRepository) Subscribe(ctx context.Context, onChange func([]entity.Lead)) (func(), error) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = onChange
	initial := r.snapshotLocked()
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
	stop := context.AfterFunc(ctx, unsubscribe)

	onChange(initial)

	return func() {
		stop()
		unsubscribe()
	}, nil
}

func (r *MemoryLeadRepository) List(ctx context.Context) ([]entity.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, &entity.StoreError{Op: "list", Err: err}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(), nil
}

func (r *MemoryLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return nil, &entity.StoreError{Op: "find", ID: id, Err: entity.ErrLeadNotFound}
	}
	out := cloneLead(lead)
	return &out, nil
}

func (r *MemoryLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	r.leads[lead.ID] = cloneLead(*lead)
	r.mu.Unlock()
	r.notify()
	return nil
}

func (r *MemoryLeadRepository) Update(ctx context.Context, id string, patch entity.LeadPatch) error {
	r.mu.Lock()
	lead, ok := r.leads[id]
	if !ok {
		r.mu.Unlock()
		return &entity.StoreError{Op: "update", ID: id, Err: entity.ErrLeadNotFound}
	}
	patch.Apply(&lead)
	r.leads[id] = cloneLead(lead)
	r.mu.Unlock()
	r.notify()
	return nil
}

func (r *MemoryLeadRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.leads[id]; !ok {
		r.mu.Unlock()
		return &entity.StoreError{Op: "delete", ID: id, Err: entity.ErrLeadNotFound}
	}
	delete(r.leads, id)
	r.mu.Unlock()
	r.notify()
	return nil
}

func (r *MemoryLeadRepository) notify() {
	r.mu.Lock()
	callbacks := make([]func([]entity.Lead), 0, len(r.subs))
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		callbacks = append(callbacks, r.subs[id])
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	for _, cb := range callbacks {
		own := make([]entity.Lead, len(snap))
		for i, l := range snap {
			own[i] = cloneLead(l)
		}
		cb(own)
	}
}

func (r *MemoryLeadRepository) snapshotLocked() []entity.Lead {
	out := make([]entity.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, cloneLead(l))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func cloneLead(l entity.Lead) entity.Lead {
	if l.Interests != nil {
		l.Interests = append([]string(nil), l.Interests...)
	}
	return l
}
