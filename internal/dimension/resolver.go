package dimension

import (
	"context"
	"fmt"
	"strings"
)

// DimensionStore creates or finds reference rows. *store.Store satisfies it.
type DimensionStore interface {
	EnsureConference(ctx context.Context, year int, season string) (int64, error)
	EnsureOrganization(ctx context.Context, name string, rank int) (int64, error)
	EnsureCalling(ctx context.Context, name string, organizationID int64, rank int) (int64, error)
	EnsureSpeaker(ctx context.Context, name string) (int64, error)
}

// Resolver turns natural keys into ids through the cache.
type Resolver struct {
	store DimensionStore
	cache *Cache
}

// NewResolver wires a resolver over store. A nil cache gets a fresh one.
func NewResolver(store DimensionStore, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{store: store, cache: cache}
}

// Cache exposes the resolver's cache so the run owner can reset it.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Conference resolves the (year, season) period.
func (r *Resolver) Conference(ctx context.Context, year int, season string) (int64, error) {
	key := conferenceKey(year, season)
	return r.resolve(KindConference, key, func() (int64, error) {
		return r.store.EnsureConference(ctx, year, season)
	})
}

// Organization resolves an organization by name. rank is only used when the
// row is created.
func (r *Resolver) Organization(ctx context.Context, name string, rank int) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("resolve organization: name required")
	}
	return r.resolve(KindOrganization, name, func() (int64, error) {
		return r.store.EnsureOrganization(ctx, name, rank)
	})
}

// Calling resolves a calling within an organization.
func (r *Resolver) Calling(ctx context.Context, name string, organizationID int64, rank int) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("resolve calling: name required")
	}
	if organizationID == 0 {
		return 0, fmt.Errorf("resolve calling %q: organization required", name)
	}
	return r.resolve(KindCalling, callingKey(name, organizationID), func() (int64, error) {
		return r.store.EnsureCalling(ctx, name, organizationID, rank)
	})
}

// Speaker resolves a speaker by normalized name.
func (r *Resolver) Speaker(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("resolve speaker: name required")
	}
	return r.resolve(KindSpeaker, name, func() (int64, error) {
		return r.store.EnsureSpeaker(ctx, name)
	})
}

func (r *Resolver) resolve(kind Kind, key string, ensure func() (int64, error)) (int64, error) {
	if id, ok := r.cache.Lookup(kind, key); ok {
		return id, nil
	}
	id, err := ensure()
	if err != nil {
		return 0, fmt.Errorf("resolve %s %q: %w", kind, key, err)
	}
	r.cache.Store(kind, key, id)
	return id, nil
}
