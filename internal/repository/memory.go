package repository

import (
	"context"
	"sort"
	"sync"

	"steelcraft-site/internal/domain"
)

// MemorySessions is a process-local session store for tests and single-instance
// deployments.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[int64]domain.Session)}
}

func (m *MemorySessions) Get(_ context.Context, operatorID int64) (domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operatorID]
	return s, ok, nil
}

func (m *MemorySessions) Set(_ context.Context, operatorID int64, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.OperatorID = operatorID
	m.sessions[operatorID] = s
	return nil
}

func (m *MemorySessions) Delete(_ context.Context, operatorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, operatorID)
	return nil
}

// MemoryArticles is a process-local article store keyed by slug.
type MemoryArticles struct {
	mu       sync.RWMutex
	articles map[string]domain.Article
}

// NewMemoryArticles creates a store holding seed. Later duplicates of a slug
// are ignored.
func NewMemoryArticles(seed []domain.Article) *MemoryArticles {
	m := &MemoryArticles{articles: make(map[string]domain.Article, len(seed))}
	for _, a := range seed {
		if _, ok := m.articles[a.Slug]; !ok && a.Slug != "" {
			m.articles[a.Slug] = a
		}
	}
	return m
}

func (m *MemoryArticles) FindBySlug(_ context.Context, slug string) (domain.Article, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.articles[slug]
	return a, ok, nil
}

func (m *MemoryArticles) Create(_ context.Context, a domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.articles[a.Slug]; ok {
		return domain.ErrSlugTaken
	}
	m.articles[a.Slug] = a
	return nil
}

func (m *MemoryArticles) ListRecent(_ context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		return nil, nil
	}
	all := m.sorted(func(domain.Article) bool { return true }, func(a domain.Article) int64 {
		return a.CreatedAt.UnixNano()
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryArticles) ListPublished(_ context.Context) ([]domain.Article, error) {
	return m.sorted(func(a domain.Article) bool { return a.Published }, func(a domain.Article) int64 {
		return a.PublishedAt.UnixNano()
	}), nil
}

// sorted returns the articles matching keep ordered by key descending, ties
// broken by slug.
func (m *MemoryArticles) sorted(keep func(domain.Article) bool, key func(domain.Article) int64) []domain.Article {
	m.mu.RLock()
	out := make([]domain.Article, 0, len(m.articles))
	for _, a := range m.articles {
		if keep(a) {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ki, kj := key(out[i]), key(out[j])
		if ki != kj {
			return ki > kj
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}
