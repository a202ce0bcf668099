// Package purchase caches the content the signed-in user owns.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/event"
	"golang.org/x/sync/singleflight"
)

// Change is published whenever the owned set changes
type Change struct {
	UserID string
	Added  []domain.ContentKey // keys new to the set; nil on a full reload
	Count  int                 // size of the set after the change
}

// Registry is the session-wide source of truth for ownership. Ownership is
// monotonic: only Load (full replace) and MarkPurchased (merge) mutate it.
type Registry struct {
	repo   domain.PurchaseRepository
	creds  domain.Credentials
	logger *slog.Logger

	mu     sync.RWMutex
	userID string
	owned  map[domain.ContentKey]struct{}
	loaded bool
	epoch  uint64 // bumped by Reset; loads started earlier are discarded

	loads   singleflight.Group
	changes event.Bus[Change]
}

// NewRegistry creates an empty registry
func NewRegistry(repo domain.PurchaseRepository, creds domain.Credentials, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		repo:   repo,
		creds:  creds,
		logger: logger,
		owned:  make(map[domain.ContentKey]struct{}),
	}
}

// Load replaces the owned set with the server's view for userID. On failure the
// previous set is retained. Concurrent loads for the same user share one request.
// A load still in flight when Reset runs is dropped.
func (r *Registry) Load(ctx context.Context, userID string) error {
	if userID == "" || r.creds == nil || r.creds.Token() == "" {
		return domain.ErrUnauthenticated
	}

	r.mu.RLock()
	epoch := r.epoch
	r.mu.RUnlock()

	v, err, _ := r.loads.Do(fmt.Sprintf("%d:%s", epoch, userID), func() (interface{}, error) {
		keys, err := r.repo.GetPurchases(ctx, userID)
		if err != nil {
			return nil, err
		}

		owned := make(map[domain.ContentKey]struct{}, len(keys))
		for _, k := range keys {
			owned[k] = struct{}{}
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.epoch != epoch {
			return false, nil
		}
		r.userID = userID
		r.owned = owned
		r.loaded = true
		return true, nil
	})
	if err != nil {
		r.logger.Error("failed to load purchases", "error", err, "userID", userID)
		if errors.Is(err, domain.ErrUnauthenticated) {
			return err
		}
		if errors.Is(err, domain.ErrNetworkFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	if applied, _ := v.(bool); !applied {
		r.logger.Debug("dropping purchases loaded before reset", "userID", userID)
		return nil
	}

	count := r.Len()
	r.logger.Info("loaded purchases", "count", count, "userID", userID)
	r.changes.Publish(Change{UserID: userID, Count: count})
	return nil
}

// Has reports whether the key is owned
func (r *Registry) Has(id string, t domain.ContentType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.owned[domain.Key(id, t)]
	return ok
}

// MarkPurchased merges keys confirmed by a completed checkout
func (r *Registry) MarkPurchased(keys []domain.ContentKey) {
	r.mu.Lock()
	var added []domain.ContentKey
	for _, k := range keys {
		if _, ok := r.owned[k]; ok {
			continue
		}
		r.owned[k] = struct{}{}
		added = append(added, k)
	}
	count := len(r.owned)
	userID := r.userID
	r.mu.Unlock()

	if len(added) == 0 {
		return
	}
	r.logger.Info("marked purchased", "added", len(added), "userID", userID)
	r.changes.Publish(Change{UserID: userID, Added: added, Count: count})
}

// Keys returns the owned set sorted by type then id
func (r *Registry) Keys() []domain.ContentKey {
	r.mu.RLock()
	keys := make([]domain.ContentKey, 0, len(r.owned))
	for k := range r.owned {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// Len returns the number of owned keys
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owned)
}

// Loaded reports whether a Load has succeeded since the last Reset
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Reset forgets all ownership. Only used on sign-out.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.epoch++
	r.userID = ""
	r.owned = make(map[domain.ContentKey]struct{})
	r.loaded = false
	r.mu.Unlock()
	r.changes.Publish(Change{})
}

// Subscribe registers fn for ownership changes
func (r *Registry) Subscribe(fn func(Change)) (unsubscribe func()) {
	return r.changes.Subscribe(fn)
}
