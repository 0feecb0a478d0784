package database

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/programbi/crm-leads/internal/entity"
)

type MemoryTemplateRepository struct {
	mu        sync.Mutex
	templates map[string]entity.Template
}

func NewMemoryTemplateRepository(seed ...entity.Template) *MemoryTemplateRepository {
	r := &MemoryTemplateRepository{templates: make(map[string]entity.Template)}
	for _, t := range seed {
		r.templates[t.ID] = t
	}
	return r
}

func (r *MemoryTemplateRepository) List(ctx context.Context) ([]entity.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseName < out[j].CourseName })
	return out, nil
}

func (r *MemoryTemplateRepository) FindByID(ctx context.Context, id string) (*entity.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, entity.ErrTemplateNotFound
	}
	return &t, nil
}

func (r *MemoryTemplateRepository) Create(ctx context.Context, t *entity.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.courseTakenLocked(t.CourseName, t.ID) {
		return entity.ErrTemplateExists
	}
	r.templates[t.ID] = *t
	return nil
}

func (r *MemoryTemplateRepository) Update(ctx context.Context, t *entity.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; !ok {
		return entity.ErrTemplateNotFound
	}
	if r.courseTakenLocked(t.CourseName, t.ID) {
		return entity.ErrTemplateExists
	}
	r.templates[t.ID] = *t
	return nil
}

func (r *MemoryTemplateRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return entity.ErrTemplateNotFound
	}
	delete(r.templates, id)
	return nil
}

func (r *MemoryTemplateRepository) courseTakenLocked(course, exceptID string) bool {
	for id, t := range r.templates {
		if id != exceptID && strings.EqualFold(t.CourseName, course) {
			return true
		}
	}
	return false
}
