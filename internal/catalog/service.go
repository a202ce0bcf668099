// Package catalog loads and caches the marketplace's sounds and events.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"golang.org/x/sync/singleflight"
)

const defaultChunkSize = 50

// Service pages content in from the marketplace and keeps it in memory
type Service struct {
	repo      domain.CatalogRepository
	chunkSize int
	logger    *slog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	items map[domain.ContentType][]*domain.Content
	index map[domain.ContentKey]*domain.Content
}

// NewService creates a catalog service. chunkSize <= 0 uses the default page size.
func NewService(repo domain.CatalogRepository, chunkSize int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		chunkSize: chunkSize,
		logger:    logger,
		items:     make(map[domain.ContentType][]*domain.Content),
		index:     make(map[domain.ContentKey]*domain.Content),
	}
}

// Sync loads every item of type t unless it is already cached
func (s *Service) Sync(ctx context.Context, t domain.ContentType, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
	if items, ok := s.Cached(t); ok {
		s.logger.Debug("catalog cache fresh", "type", t, "count", len(items))
		return domain.SyncResult{Type: t, FromCache: true, Count: len(items)}, nil
	}
	return s.Refresh(ctx, t, onProgress)
}

// Refresh reloads every item of type t. Concurrent refreshes of one type share
// a single fetch.
func (s *Service) Refresh(ctx context.Context, t domain.ContentType, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
	v, err, _ := s.group.Do(string(t), func() (any, error) {
		items, err := s.fetch(ctx, t, onProgress)
		if err != nil {
			return nil, err
		}
		s.store(t, items)
		return items, nil
	})
	if err != nil {
		s.logger.Error("failed to fetch catalog", "error", err, "type", t)
		return domain.SyncResult{}, err
	}

	count := len(v.([]*domain.Content))
	s.logger.Debug("fetched catalog", "type", t, "count", count)
	return domain.SyncResult{Type: t, Count: count}, nil
}

// fetch pages through type t until the reported total is loaded. A short or
// empty page also ends the walk.
func (s *Service) fetch(ctx context.Context, t domain.ContentType, onProgress domain.ProgressFunc) ([]*domain.Content, error) {
	limit := s.chunkSize
	if limit <= 0 {
		limit = defaultChunkSize
	}

	var all []*domain.Content
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, total, err := s.repo.ListContent(ctx, t, len(all), limit)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if onProgress != nil {
			onProgress(int64(len(all)), int64(total))
		}
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

func (s *Service) store(t domain.ContentType, items []*domain.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, c := range s.index {
		if c.Type == t {
			delete(s.index, k)
		}
	}
	kept := make([]*domain.Content, 0, len(items))
	for _, c := range items {
		// Pages can overlap when the catalog changes mid-fetch
		if _, dup := s.index[c.Key()]; dup {
			continue
		}
		s.index[c.Key()] = c
		kept = append(kept, c)
	}
	s.items[t] = kept
}

// Cached returns the cached items of type t
func (s *Service) Cached(t domain.ContentType) ([]*domain.Content, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.items[t]
	return items, ok
}

// All returns every cached sound followed by every cached event
func (s *Service) All() []*domain.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Content, 0, len(s.index))
	all = append(all, s.items[domain.ContentTypeSound]...)
	all = append(all, s.items[domain.ContentTypeEvent]...)
	return all
}

// Find returns a cached item by key
func (s *Service) Find(key domain.ContentKey) (*domain.Content, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.index[key]
	return c, ok
}

// Lookup returns a cached item by key, loading its type when it is not cached yet
func (s *Service) Lookup(ctx context.Context, key domain.ContentKey) (*domain.Content, error) {
	if c, ok := s.Find(key); ok {
		return c, nil
	}
	if _, err := s.Sync(ctx, key.Type, nil); err != nil {
		return nil, err
	}
	if c, ok := s.Find(key); ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}
