// Package session wires the commerce and access stores for one identity.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/eliote-geeks/reveilartist/internal/cart"
	"github.com/eliote-geeks/reveilartist/internal/catalog"
	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/download"
	"github.com/eliote-geeks/reveilartist/internal/like"
	"github.com/eliote-geeks/reveilartist/internal/playback"
	"github.com/eliote-geeks/reveilartist/internal/purchase"
	"golang.org/x/sync/errgroup"
)

// API is everything the session needs from the marketplace
type API interface {
	domain.CatalogRepository
	domain.PurchaseRepository
	domain.LikeRepository
	domain.ContentRepository
	domain.RecommendationRepository
	domain.Credentials
	SetToken(token string)
}

// Identity is who the session acts for
type Identity struct {
	UserID      string // empty when signed out
	Username    string
	AnonymousID string
}

// SignedIn reports whether the identity is an account
func (i Identity) SignedIn() bool { return i.UserID != "" }

// Owner returns the key carts are stored under
func (i Identity) Owner() string {
	if i.SignedIn() {
		return i.UserID
	}
	return i.AnonymousID
}

// Config carries the collaborators a session is built from
type Config struct {
	API      API
	Storage  domain.CartStorage
	Player   domain.MediaPlayer
	Saver    domain.FileSaver
	PageSize int
	Logger   *slog.Logger
}

// Session owns one instance of each store for the life of the process
type Session struct {
	Catalog   *catalog.Service
	Purchases *purchase.Registry
	Likes     *like.Registry
	Cart      *cart.Store
	Playback  *playback.Session
	Downloads *download.Gate

	api    API
	logger *slog.Logger

	mu       sync.RWMutex
	identity Identity

	unsubscribe []func()
}

// New builds the stores. Nothing touches the network until Start.
func New(cfg Config, id Identity) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	purchases := purchase.NewRegistry(cfg.API, cfg.API, logger.With("component", "purchases"))
	s := &Session{
		Catalog:   catalog.NewService(cfg.API, cfg.PageSize, logger.With("component", "catalog")),
		Purchases: purchases,
		Likes:     like.NewRegistry(cfg.API, logger.With("component", "likes")),
		Cart:      cart.NewStore(cfg.Storage, purchases, logger.With("component", "cart")),
		Playback:  playback.NewSession(cfg.Player, cfg.API, purchases, cfg.API, logger.With("component", "playback")),
		Downloads: download.NewGate(cfg.API, purchases, cfg.Saver, logger.With("component", "downloads")),
		api:       cfg.API,
		logger:    logger,
		identity:  id,
	}

	// Content bought elsewhere leaves the cart as soon as ownership is known
	s.unsubscribe = append(s.unsubscribe, purchases.Subscribe(func(c purchase.Change) {
		if c.Count > 0 {
			s.Cart.PruneOwned()
		}
	}))
	return s
}

// Identity returns who the session acts for
func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Start opens the identity's cart, then loads purchases and both catalog
// types concurrently. A signed-out session skips purchases. The first
// failure is returned; whatever loaded stays usable.
func (s *Session) Start(ctx context.Context, onProgress func(domain.ContentType, int64, int64)) error {
	id := s.Identity()
	if err := s.Cart.Open(id.Owner()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if id.SignedIn() {
		g.Go(func() error {
			return s.Purchases.Load(gctx, id.UserID)
		})
	}
	for _, t := range []domain.ContentType{domain.ContentTypeSound, domain.ContentTypeEvent} {
		g.Go(func() error {
			_, err := s.Catalog.Sync(gctx, t, func(loaded, total int64) {
				if onProgress != nil {
					onProgress(t, loaded, total)
				}
			})
			return err
		})
	}

	err := g.Wait()
	if err != nil {
		s.logger.Error("session bootstrap incomplete", "error", err, "owner", id.Owner())
		return err
	}

	// Seed like counts from the listing so rows render before the batch status arrives
	for _, c := range s.Catalog.All() {
		s.Likes.Seed(c.ID, c.LikeCount)
	}
	s.logger.Info("session started", "owner", id.Owner(), "signedIn", id.SignedIn(), "owned", s.Purchases.Len())
	return nil
}

// RefreshPurchases reloads ownership, e.g. after returning from checkout
func (s *Session) RefreshPurchases(ctx context.Context) error {
	id := s.Identity()
	if !id.SignedIn() {
		return domain.ErrUnauthenticated
	}
	return s.Purchases.Load(ctx, id.UserID)
}

// AddToCart adds content as a cart item
func (s *Session) AddToCart(c domain.Content) error {
	return s.Cart.Add(domain.CartItemFromContent(c))
}

// CompleteCheckout records keys confirmed by the checkout flow as owned and
// removes them from the cart
func (s *Session) CompleteCheckout(keys []domain.ContentKey) {
	if len(keys) == 0 {
		return
	}
	s.Purchases.MarkPurchased(keys)
	removed := s.Cart.RemoveKeys(keys)
	s.logger.Info("checkout completed", "purchased", len(keys), "removedFromCart", removed)
}

// SignOut drops the account: playback stops, likes and ownership are
// forgotten, and the cart switches to the anonymous identity.
func (s *Session) SignOut() error {
	s.mu.Lock()
	anon := s.identity.AnonymousID
	s.identity = Identity{AnonymousID: anon}
	s.mu.Unlock()

	s.Playback.Shutdown()
	s.api.SetToken("")
	s.Likes.Reset()
	s.Purchases.Reset()

	if err := s.Cart.Open(anon); err != nil {
		return err
	}
	s.logger.Info("signed out")
	return nil
}

// Close releases subscriptions and stops playback
func (s *Session) Close() error {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
	s.Playback.Shutdown()
	return nil
}
