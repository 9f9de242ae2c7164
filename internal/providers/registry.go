package providers

import (
	"sync"

	"github.com/streamdex/streamdex/internal/catalog"
)

// Registry publishes the current provider set. Reloads build fresh Provider
// graphs elsewhere and swap them in here; readers always see a consistent
// snapshot.
type Registry struct {
	mu     sync.RWMutex
	list   []*catalog.Provider
	bySlug map[string]*catalog.Provider
}

func NewRegistry() *Registry {
	return &Registry{bySlug: make(map[string]*catalog.Provider)}
}

// Set replaces the published provider set.
func (r *Registry) Set(list []*catalog.Provider) {
	bySlug := make(map[string]*catalog.Provider, len(list))
	for _, p := range list {
		if _, dup := bySlug[p.Slug]; !dup {
			bySlug[p.Slug] = p
		}
	}
	r.mu.Lock()
	r.list = list
	r.bySlug = bySlug
	r.mu.Unlock()
}

// Publish swaps a freshly assembled provider graph into the published set,
// replacing the entry with the same slug. The list is copied on write so
// slices handed out by List stay immutable snapshots. A provider that has
// been removed from the configured set in the meantime is dropped silently.
func (r *Registry) Publish(p *catalog.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySlug[p.Slug]; !ok {
		return
	}
	r.bySlug[p.Slug] = p
	list := make([]*catalog.Provider, len(r.list))
	copy(list, r.list)
	for i, have := range list {
		if have.Slug == p.Slug {
			list[i] = p
			break
		}
	}
	r.list = list
}

// List returns the published providers in configuration order.
func (r *Registry) List() []*catalog.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list
}

// BySlug resolves a provider by its slug.
func (r *Registry) BySlug(slug string) (*catalog.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.bySlug[slug]
	return p, ok
}
