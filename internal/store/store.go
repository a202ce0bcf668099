package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketCarts = []byte("carts")
)

// cartSchemaVersion is bumped when the persisted cart layout changes
const cartSchemaVersion = 1

// cartRecord is the persisted form of a cart
type cartRecord struct {
	Version int               `json:"version"`
	SavedAt int64             `json:"saved_at"`
	Items   []domain.CartItem `json:"items"`
}

// CartStorage implements domain.CartStorage using BoltDB.
type CartStorage struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory copy of every cart read or written (promoted on access)
	cache map[string][]byte
}

// NewCartStorage opens the cart database. An empty baseCacheDir selects
// memory-only mode, which keeps carts for the lifetime of the process.
func NewCartStorage(baseCacheDir, serverURL string) (*CartStorage, error) {
	if baseCacheDir == "" {
		return &CartStorage{cache: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "reveil.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCarts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CartStorage{db: db, cache: make(map[string][]byte)}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CartStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func cartKey(owner string) string {
	return "cart:" + owner
}

// LoadCart returns the persisted cart for owner. ok is false when nothing has
// been saved for that owner yet.
func (s *CartStorage) LoadCart(owner string) ([]domain.CartItem, bool, error) {
	data, err := s.get(bucketCarts, cartKey(owner))
	if err != nil || data == nil {
		return nil, false, err
	}

	var rec cartRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode cart: %w", err)
	}
	if rec.Version > cartSchemaVersion {
		return nil, false, fmt.Errorf("cart schema version %d is newer than supported %d", rec.Version, cartSchemaVersion)
	}
	return rec.Items, true, nil
}

// SaveCart replaces the persisted cart for owner
func (s *CartStorage) SaveCart(owner string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	return s.set(bucketCarts, cartKey(owner), cartRecord{
		Version: cartSchemaVersion,
		SavedAt: time.Now().Unix(),
		Items:   items,
	})
}

// DeleteCart removes the persisted cart for owner
func (s *CartStorage) DeleteCart(owner string) error {
	return s.delete(bucketCarts, cartKey(owner))
}

// === Generic helpers ===

func (s *CartStorage) get(bucket []byte, key string) ([]byte, error) {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return data, nil
}

func (s *CartStorage) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucket)
			return b.Put([]byte(key), data)
		})
		if err != nil {
			return err
		}
	}

	// Memory is only updated once the write is durable
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()
	return nil
}

func (s *CartStorage) delete(bucket []byte, key string) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			return b.Delete([]byte(key))
		}
		return nil
	})
}
