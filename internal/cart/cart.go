// Package cart holds the pending-purchase list and enforces the rules for what
// may enter it.
package cart

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/event"
)

// Ownership answers whether content is already purchased
type Ownership interface {
	Has(id string, t domain.ContentType) bool
}

// ChangeKind names a cart mutation
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeQuantity ChangeKind = "quantity"
	ChangeCleared  ChangeKind = "cleared"
	ChangeLoaded   ChangeKind = "loaded"
)

// Change is published after every mutation
type Change struct {
	Kind ChangeKind
	Key  domain.ContentKey // zero for cleared/loaded
	Len  int
}

// Store is the cart for one owner. Mutations are applied in call order and
// persisted after each one.
type Store struct {
	storage domain.CartStorage
	owned   Ownership
	logger  *slog.Logger

	mu    sync.Mutex
	owner string
	items []domain.CartItem
	index map[domain.ContentKey]int

	changes event.Bus[Change]
}

// NewStore creates an empty cart that checks ownership against owned and
// persists to storage (may be nil for a throwaway cart).
func NewStore(storage domain.CartStorage, owned Ownership, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: storage,
		owned:   owned,
		logger:  logger,
		index:   make(map[domain.ContentKey]int),
	}
}

// Open switches the store to owner and reads back its persisted cart.
// Items that fail validation on the way in (free, malformed) are dropped.
func (s *Store) Open(owner string) error {
	var items []domain.CartItem
	if s.storage != nil {
		loaded, ok, err := s.storage.LoadCart(owner)
		if err != nil {
			s.logger.Error("failed to load cart", "error", err, "owner", owner)
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if ok {
			items = loaded
		}
	}

	s.mu.Lock()
	s.owner = owner
	s.items = s.items[:0]
	s.index = make(map[domain.ContentKey]int, len(items))
	for _, it := range items {
		key := it.Key()
		if it.UnitPrice <= 0 || it.Quantity < 1 || !key.Type.Valid() {
			s.logger.Warn("dropping invalid persisted cart item", "key", key.String())
			continue
		}
		if _, dup := s.index[key]; dup {
			continue
		}
		s.index[key] = len(s.items)
		s.items = append(s.items, it)
	}
	n := len(s.items)
	s.mu.Unlock()

	s.logger.Debug("opened cart", "owner", owner, "items", n)
	s.changes.Publish(Change{Kind: ChangeLoaded, Len: n})
	return nil
}

// Owner returns the identity the cart is persisted under
func (s *Store) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Add appends item with quantity 1. Owned content, free content and keys
// already in the cart are rejected.
func (s *Store) Add(item domain.CartItem) error {
	key := item.Key()
	if s.owned != nil && s.owned.Has(item.ContentID, item.ContentType) {
		return domain.ErrAlreadyOwned
	}
	if item.UnitPrice == 0 {
		return domain.ErrFreeContentNotCartable
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("invalid unit price %d for %s", item.UnitPrice, key)
	}
	if !key.Type.Valid() {
		return fmt.Errorf("invalid content type %q", item.ContentType)
	}

	s.mu.Lock()
	if _, ok := s.index[key]; ok {
		s.mu.Unlock()
		return domain.ErrAlreadyInCart
	}
	item.Quantity = 1
	item.Metadata = cloneMetadata(item.Metadata)
	s.index[key] = len(s.items)
	s.items = append(s.items, item)
	n := len(s.items)
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("added to cart", "key", key.String(), "price", item.UnitPrice)
	s.changes.Publish(Change{Kind: ChangeAdded, Key: key, Len: n})
	return nil
}

// Remove deletes the item with the given key. Removing an absent key succeeds.
func (s *Store) Remove(id string, t domain.ContentType) error {
	key := domain.Key(id, t)

	s.mu.Lock()
	if !s.removeLocked(key) {
		s.mu.Unlock()
		return nil
	}
	n := len(s.items)
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("removed from cart", "key", key.String())
	s.changes.Publish(Change{Kind: ChangeRemoved, Key: key, Len: n})
	return nil
}

// SetQuantity changes the quantity of an item already in the cart
func (s *Store) SetQuantity(key domain.ContentKey, n int) error {
	if n < 1 {
		return domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	i, ok := s.index[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s is not in the cart", key)
	}
	if s.items[i].Quantity == n {
		s.mu.Unlock()
		return nil
	}
	s.items[i].Quantity = n
	l := len(s.items)
	s.persistLocked()
	s.mu.Unlock()

	s.changes.Publish(Change{Kind: ChangeQuantity, Key: key, Len: l})
	return nil
}

// Contains reports whether the key is in the cart
func (s *Store) Contains(id string, t domain.ContentType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[domain.Key(id, t)]
	return ok
}

// Total sums unit price times quantity. It is recomputed on every call.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, it := range s.items {
		total += it.Subtotal()
	}
	return total
}

// Items returns a copy of the cart in insertion order
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartItem, len(s.items))
	for i, it := range s.items {
		it.Metadata = cloneMetadata(it.Metadata)
		out[i] = it
	}
	return out
}

// Len returns the number of distinct items
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear empties the cart
func (s *Store) Clear() {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	s.items = s.items[:0]
	s.index = make(map[domain.ContentKey]int)
	s.persistLocked()
	s.mu.Unlock()

	s.changes.Publish(Change{Kind: ChangeCleared})
}

// RemoveKeys drops every listed key, e.g. after a completed checkout
func (s *Store) RemoveKeys(keys []domain.ContentKey) int {
	s.mu.Lock()
	var removed []domain.ContentKey
	for _, k := range keys {
		if s.removeLocked(k) {
			removed = append(removed, k)
		}
	}
	if len(removed) > 0 {
		s.persistLocked()
	}
	n := len(s.items)
	s.mu.Unlock()

	for _, k := range removed {
		s.changes.Publish(Change{Kind: ChangeRemoved, Key: k, Len: n})
	}
	return len(removed)
}

// PruneOwned drops items that became owned since they were added
func (s *Store) PruneOwned() int {
	if s.owned == nil {
		return 0
	}
	var owned []domain.ContentKey
	for _, it := range s.Items() {
		if s.owned.Has(it.ContentID, it.ContentType) {
			owned = append(owned, it.Key())
		}
	}
	n := s.RemoveKeys(owned)
	if n > 0 {
		s.logger.Info("pruned owned items from cart", "count", n)
	}
	return n
}

// Subscribe registers fn for cart changes
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

func (s *Store) removeLocked(key domain.ContentKey) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].Key()] = j
	}
	return true
}

// persistLocked writes the cart. A failed write keeps the in-memory cart and
// is logged; the next mutation retries with the full cart.
func (s *Store) persistLocked() {
	if s.storage == nil {
		return
	}
	snapshot := make([]domain.CartItem, len(s.items))
	copy(snapshot, s.items)
	if err := s.storage.SaveCart(s.owner, snapshot); err != nil {
		s.logger.Error("failed to persist cart", "error", err, "owner", s.owner)
	}
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
