package store

import (
	"context"
	"sync"

	"github.com/dgallion1/tourgest/internal/tour"
)

// Memory is an in-process Store used in tests and when no database is configured.
type Memory struct {
	mu              sync.RWMutex
	tours           []*Tour // insertion order
	bySlug          map[string]*Tour
	maxSlugAttempts int
}

func NewMemory(opts Options) *Memory {
	return &Memory{
		bySlug:          make(map[string]*Tour),
		maxSlugAttempts: opts.maxSlugAttempts(),
	}
}

func (m *Memory) CreateTour(ctx context.Context, t *Tour) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepare(t)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cur := range m.tours {
		if cur.ID == t.ID {
			t.Slug = cur.Slug
			return nil
		}
	}

	base := t.Slug
	for attempt := 1; attempt <= m.maxSlugAttempts; attempt++ {
		slug := tour.UniqueSlug(base, attempt)
		if _, taken := m.bySlug[slug]; taken {
			continue
		}
		t.Slug = slug
		stored := cloneTour(t)
		m.bySlug[slug] = stored
		m.tours = append(m.tours, stored)
		return nil
	}
	return slugExhausted(base, m.maxSlugAttempts)
}

func (m *Memory) GetTour(ctx context.Context, slug string) (*Tour, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTour(t), nil
}

func (m *Memory) ListTours(ctx context.Context, limit, offset int) ([]*Tour, error) {
	limit, offset = NormalizePage(limit, offset)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Tour, 0, limit)
	for i := len(m.tours) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneTour(m.tours[i]))
	}
	return out, nil
}

func (m *Memory) DeleteTour(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.bySlug[slug]
	if !ok {
		return ErrNotFound
	}
	delete(m.bySlug, slug)
	for i, cur := range m.tours {
		if cur == t {
			m.tours = append(m.tours[:i], m.tours[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) FindByContentHash(ctx context.Context, hash string) (*Tour, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tours {
		if t.ContentHash == hash {
			return cloneTour(t), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }
