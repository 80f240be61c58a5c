package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bajeti/internal/core"
)

// Overviews caches budget overviews per user, budget and month.
//
// Every user has a generation counter bumped by InvalidateUser. A load that
// started before an invalidation never stores its result, so a hit always
// matches what a fresh computation would return.
type Overviews struct {
	lru    *LRUCache[core.BudgetOverview]
	group  singleflight.Group
	shared Shared
	ttl    time.Duration

	mu   sync.Mutex
	gens map[int64]uint64
}

func NewOverviews(maxSize int, ttl time.Duration) *Overviews {
	return &Overviews{
		lru:  NewLRUCache[core.BudgetOverview](maxSize, ttl),
		ttl:  ttl,
		gens: make(map[int64]uint64),
	}
}

// Shared is a cache visible to every API process. Generations are per user
// and only ever grow; bumping one makes every key built with an older
// generation unreachable.
type Shared interface {
	Generation(ctx context.Context, userID int64) (uint64, error)
	Bump(ctx context.Context, userID int64) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const sharedTimeout = 500 * time.Millisecond

// WithShared stores overviews in s instead of the in-process LRU. Errors
// from s are logged and the overview is computed directly.
func (o *Overviews) WithShared(s Shared) *Overviews {
	o.shared = s
	return o
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("overview:%d:", userID)
}

func overviewKey(userID, budgetID int64, month string) string {
	return fmt.Sprintf("%s%d:%s", userPrefix(userID), budgetID, month)
}

func (o *Overviews) generation(userID int64) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gens[userID]
}

// Get returns the cached overview or computes it with load. Concurrent misses
// for the same key share one load. hit reports whether the value came from
// the cache.
func (o *Overviews) Get(userID, budgetID int64, month string, load func() (core.BudgetOverview, error)) (ov core.BudgetOverview, hit bool, err error) {
	if o.shared != nil {
		return o.getShared(userID, budgetID, month, load)
	}

	key := overviewKey(userID, budgetID, month)
	if cached, ok := o.lru.Get(key); ok {
		return clone(cached), true, nil
	}

	gen := o.generation(userID)
	v, err, _ := o.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (any, error) {
		fresh, err := load()
		if err != nil {
			return nil, err
		}
		o.mu.Lock()
		if o.gens[userID] == gen {
			o.lru.Set(key, fresh)
		}
		o.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return core.BudgetOverview{}, false, err
	}
	return clone(v.(core.BudgetOverview)), false, nil
}

func (o *Overviews) getShared(userID, budgetID int64, month string, load func() (core.BudgetOverview, error)) (core.BudgetOverview, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sharedTimeout)
	defer cancel()

	gen, err := o.shared.Generation(ctx, userID)
	if err != nil {
		slog.Warn("Shared cache unavailable", "error", err, "user_id", userID)
		ov, err := load()
		return ov, false, err
	}
	key := fmt.Sprintf("%sg%d:%d:%s", userPrefix(userID), gen, budgetID, month)
	if data, ok, err := o.shared.Get(ctx, key); err != nil {
		slog.Warn("Shared cache read failed", "error", err, "key", key)
	} else if ok {
		var ov core.BudgetOverview
		if err := json.Unmarshal(data, &ov); err == nil {
			return clone(ov), true, nil
		}
		slog.Warn("Discarding undecodable shared cache entry", "key", key)
	}

	v, err, _ := o.group.Do(key, func() (any, error) {
		fresh, err := load()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(fresh)
		if err == nil {
			setCtx, cancel := context.WithTimeout(context.Background(), sharedTimeout)
			err = o.shared.Set(setCtx, key, data, o.ttl)
			cancel()
		}
		if err != nil {
			slog.Warn("Shared cache write failed", "error", err, "key", key)
		}
		return fresh, nil
	})
	if err != nil {
		return core.BudgetOverview{}, false, err
	}
	return clone(v.(core.BudgetOverview)), false, nil
}

// InvalidateUser drops every cached overview of the user.
func (o *Overviews) InvalidateUser(userID int64) {
	o.mu.Lock()
	o.gens[userID]++
	o.lru.DeletePrefix(userPrefix(userID))
	o.mu.Unlock()

	if o.shared == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sharedTimeout)
	defer cancel()
	if err := o.shared.Bump(ctx, userID); err != nil {
		slog.Warn("Shared cache invalidation failed", "error", err, "user_id", userID)
	}
}

func (o *Overviews) CleanExpired() int { return o.lru.CleanExpired() }

func (o *Overviews) Size() int { return o.lru.Size() }

func clone(ov core.BudgetOverview) core.BudgetOverview {
	ov.Allocations = slices.Clone(ov.Allocations)
	if ov.Allocations == nil {
		ov.Allocations = []core.AllocationUsage{}
	}
	return ov
}
