package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/eliote-geeks/reveilartist/internal/adapter"
	"github.com/eliote-geeks/reveilartist/internal/marketplace"
	"github.com/eliote-geeks/reveilartist/internal/session"
	"github.com/eliote-geeks/reveilartist/internal/store"
)

type commandContext struct {
	configOnce sync.Once
	config     *adapter.Config
	configErr  error

	logger    *slog.Logger
	logCloser io.Closer
	storage   *store.CartStorage
}

func newCommandContext() *commandContext {
	return &commandContext{logger: adapter.NullLogger()}
}

func (c *commandContext) ensureConfig() (*adapter.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := adapter.LoadConfig()
		if err != nil {
			c.configErr = fmt.Errorf("failed to load config: %w", err)
			return
		}
		c.config = cfg

		logger, closer, err := adapter.SetupLogger(&cfg.Logging)
		if err != nil {
			// Fall back to null logger if file logging fails
			logger = adapter.NullLogger()
		}
		c.logger = logger
		c.logCloser = closer
		slog.SetDefault(logger)
		logger.Info("starting reveil", "version", Version)
	})
	return c.config, c.configErr
}

// newSession builds the marketplace client and every store for the
// configured identity. Nothing touches the network yet.
func (c *commandContext) newSession() (*session.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	anonID, err := adapter.EnsureAnonymousID(cfg)
	if err != nil {
		return nil, err
	}

	if c.storage == nil {
		c.storage, err = store.NewCartStorage(adapter.GetCachePath(), cfg.Server.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cart storage: %w", err)
		}
	}

	id := session.Identity{AnonymousID: anonID}
	token := ""
	if cfg.IsSignedIn() {
		id.UserID = cfg.Server.UserID
		id.Username = cfg.Server.Username
		token = cfg.Server.Token
	}

	client := marketplace.NewClient(cfg.Server.URL, token, c.logger.With("component", "marketplace"))
	return session.New(session.Config{
		API:      client,
		Storage:  c.storage,
		Player:   adapter.NewProcessPlayer(cfg.Player.Command, cfg.Player.Args, c.logger.With("component", "player")),
		Saver:    adapter.NewDiskSaver(cfg.Downloads.Dir, c.logger.With("component", "saver")),
		PageSize: cfg.UI.PageSize,
		Logger:   c.logger,
	}, id), nil
}

func (c *commandContext) close() {
	if c.storage != nil {
		c.storage.Close()
		c.storage = nil
	}
	if c.logCloser != nil {
		c.logCloser.Close()
		c.logCloser = nil
	}
}
