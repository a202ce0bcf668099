// Package playback governs the single active audio stream and enforces the
// preview cap on paid tracks the user does not own.
package playback

import (
	"context"
	"errors"
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

// streamResolver finds a playable URL for a track (consumer-defined interface)
type streamResolver interface {
	ResolveStreamURL(ctx context.Context, trackID string) (string, error)
}

// ErrNotPlayable is returned for content that has no audio
var ErrNotPlayable = errors.New("content is not playable")

// ErrInvalidTransition is returned when a control is used in the wrong state
var ErrInvalidTransition = errors.New("invalid playback transition")

// Snapshot is the observable playback record
type Snapshot struct {
	TrackID         string
	Title           string
	PositionSeconds float64
	CapSeconds      *float64 // nil when playback is unlimited
	State           domain.PlaybackState
	Err             error // set when the media layer failed
}

// Capped reports whether a preview cap applies
func (s Snapshot) Capped() bool { return s.CapSeconds != nil }

// Session holds the one playback record for the process
type Session struct {
	player   domain.MediaPlayer
	streams  streamResolver
	owned    Ownership
	recs     domain.RecommendationRepository
	logger   *slog.Logger
	recsCtx  context.Context
	stopRecs context.CancelFunc

	mu     sync.Mutex
	gen    uint64
	cur    Snapshot
	track  domain.Content
	handle domain.MediaHandle

	recsOnce sync.Once
	recsMu   sync.RWMutex
	recsList []*domain.Content
	recsErr  error
	recsDone chan struct{}

	changes event.Bus[Snapshot]
}

// NewSession creates an idle session. recs may be nil to disable
// recommendations.
func NewSession(
	player domain.MediaPlayer,
	streams streamResolver,
	owned Ownership,
	recs domain.RecommendationRepository,
	logger *slog.Logger,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		player:   player,
		streams:  streams,
		owned:    owned,
		recs:     recs,
		logger:   logger,
		recsCtx:  ctx,
		stopRecs: cancel,
		cur:      Snapshot{State: domain.PlaybackIdle},
		recsDone: make(chan struct{}),
	}
}

// Play starts track from position 0. Any active track is stopped and forced
// idle first, so two tracks are never audible together.
func (s *Session) Play(ctx context.Context, track domain.Content) error {
	if !track.IsPlayable() {
		return ErrNotPlayable
	}

	s.mu.Lock()
	stopped, wasActive := s.stopLocked()
	s.gen++
	gen := s.gen
	s.track = track
	s.cur = Snapshot{TrackID: track.ID, Title: track.Title, State: domain.PlaybackLoading}
	loading := s.cur
	s.mu.Unlock()

	if wasActive {
		s.changes.Publish(stopped)
	}
	s.changes.Publish(loading)

	s.logger.Info("starting playback", "trackID", track.ID, "title", track.Title)

	url, err := s.streams.ResolveStreamURL(ctx, track.ID)
	if err != nil {
		s.logger.Error("failed to resolve stream url", "error", err, "trackID", track.ID)
		s.fail(gen, err)
		return err
	}

	handle, err := s.player.Start(ctx, url, &sink{s: s, gen: gen})
	if err != nil {
		s.logger.Error("failed to start media", "error", err, "trackID", track.ID)
		s.fail(gen, err)
		return err
	}

	s.mu.Lock()
	if s.gen != gen || s.cur.State == domain.PlaybackEnded || s.cur.State == domain.PlaybackCapped {
		// Superseded (or already finished) while starting
		s.mu.Unlock()
		if err := handle.Stop(); err != nil {
			s.logger.Debug("failed to stop superseded media", "error", err)
		}
		return nil
	}
	s.handle = handle
	s.mu.Unlock()
	return nil
}

// Pause suspends a playing track
func (s *Session) Pause() error {
	s.mu.Lock()
	if s.cur.State != domain.PlaybackPlaying {
		s.mu.Unlock()
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.cur.State)
	}
	if s.handle != nil {
		if err := s.handle.Pause(); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to pause: %w", err)
		}
	}
	s.cur.State = domain.PlaybackPaused
	snap := s.cur
	s.mu.Unlock()

	s.changes.Publish(snap)
	return nil
}

// Resume continues a paused track. The cap keeps counting from total elapsed.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.cur.State != domain.PlaybackPaused {
		s.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, s.cur.State)
	}
	if s.handle != nil {
		if err := s.handle.Resume(); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to resume: %w", err)
		}
	}
	s.cur.State = domain.PlaybackPlaying
	snap := s.cur
	s.mu.Unlock()

	s.changes.Publish(snap)
	return nil
}

// Close ends the current track explicitly
func (s *Session) Close() error {
	s.mu.Lock()
	switch s.cur.State {
	case domain.PlaybackPlaying, domain.PlaybackPaused, domain.PlaybackCapped, domain.PlaybackLoading:
	default:
		s.mu.Unlock()
		return nil
	}
	s.releaseLocked()
	s.cur.State = domain.PlaybackEnded
	snap := s.cur
	s.mu.Unlock()

	s.changes.Publish(snap)
	return nil
}

// Shutdown stops playback and any recommendation fetch in flight
func (s *Session) Shutdown() {
	s.mu.Lock()
	stopped, wasActive := s.stopLocked()
	s.mu.Unlock()
	if wasActive {
		s.changes.Publish(stopped)
	}
	s.stopRecs()
}

// State returns the current record
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// StateOf returns the state of trackID; any track other than the current one
// is idle.
func (s *Session) StateOf(trackID string) domain.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur.TrackID != trackID {
		return domain.PlaybackIdle
	}
	return s.cur.State
}

// Subscribe registers fn for playback changes
func (s *Session) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// Recommendations returns what the one-shot fetch produced. ok is false until
// the fetch has finished.
func (s *Session) Recommendations() ([]*domain.Content, bool) {
	select {
	case <-s.recsDone:
	default:
		return nil, false
	}
	s.recsMu.RLock()
	defer s.recsMu.RUnlock()
	return s.recsList, s.recsErr == nil
}

// RecommendationsDone is closed when the one-shot fetch finishes
func (s *Session) RecommendationsDone() <-chan struct{} { return s.recsDone }

// stopLocked force-stops an active track and marks it idle. Finished tracks
// (capped, ended) keep their state. The returned snapshot is published by the
// caller once the lock is released.
func (s *Session) stopLocked() (Snapshot, bool) {
	s.releaseLocked()
	switch s.cur.State {
	case domain.PlaybackLoading, domain.PlaybackPlaying, domain.PlaybackPaused:
	default:
		return Snapshot{}, false
	}
	s.cur.State = domain.PlaybackIdle
	s.logger.Debug("stopped previous track", "trackID", s.cur.TrackID)
	return s.cur, true
}

func (s *Session) releaseLocked() {
	if s.handle == nil {
		return
	}
	if err := s.handle.Stop(); err != nil {
		s.logger.Debug("failed to stop media", "error", err, "trackID", s.cur.TrackID)
	}
	s.handle = nil
}

func (s *Session) capFor(track domain.Content) *float64 {
	if track.UnitPrice > 0 && (s.owned == nil || !s.owned.Has(track.ID, track.Type)) {
		c := domain.PreviewCapSeconds
		return &c
	}
	return nil
}

// === Media events ===

func (s *Session) started(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.cur.State != domain.PlaybackLoading {
		s.mu.Unlock()
		return
	}
	s.cur.State = domain.PlaybackPlaying
	s.cur.CapSeconds = s.capFor(s.track)
	snap := s.cur
	s.mu.Unlock()

	s.logger.Debug("playback started", "trackID", snap.TrackID, "capped", snap.Capped())
	s.changes.Publish(snap)
	s.recsOnce.Do(s.fetchRecommendations)
}

func (s *Session) position(gen uint64, seconds float64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.cur.State != domain.PlaybackPlaying && s.cur.State != domain.PlaybackPaused {
		s.mu.Unlock()
		return
	}
	if seconds < s.cur.PositionSeconds {
		seconds = s.cur.PositionSeconds
	}
	s.cur.PositionSeconds = seconds

	if c := s.cur.CapSeconds; c != nil && seconds >= *c {
		s.cur.PositionSeconds = *c
		s.releaseLocked()
		s.cur.State = domain.PlaybackCapped
		snap := s.cur
		s.mu.Unlock()

		s.logger.Info("preview cap reached", "trackID", snap.TrackID, "cap", *c)
		s.changes.Publish(snap)
		return
	}
	snap := s.cur
	s.mu.Unlock()
	s.changes.Publish(snap)
}

func (s *Session) ended(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	switch s.cur.State {
	case domain.PlaybackPlaying, domain.PlaybackPaused, domain.PlaybackLoading:
	default:
		s.mu.Unlock()
		return
	}
	s.handle = nil
	if d := s.track.Duration.Seconds(); d > 0 && s.cur.State != domain.PlaybackLoading {
		s.cur.PositionSeconds = d
	}
	s.cur.State = domain.PlaybackEnded
	snap := s.cur
	s.mu.Unlock()

	s.logger.Debug("playback ended", "trackID", snap.TrackID)
	s.changes.Publish(snap)
}

func (s *Session) fail(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.releaseLocked()
	s.cur.State = domain.PlaybackIdle
	s.cur.Err = err
	snap := s.cur
	s.mu.Unlock()
	s.changes.Publish(snap)
}

// fetchRecommendations runs once per session, in the background. Its outcome
// never touches playback state.
func (s *Session) fetchRecommendations() {
	if s.recs == nil {
		close(s.recsDone)
		return
	}
	go func() {
		defer close(s.recsDone)
		items, err := s.recs.GetRecommendations(s.recsCtx)
		s.recsMu.Lock()
		s.recsList, s.recsErr = items, err
		s.recsMu.Unlock()
		if err != nil {
			s.logger.Warn("failed to fetch recommendations", "error", err)
			return
		}
		s.logger.Info("fetched recommendations", "count", len(items))
	}()
}

// sink binds media events to the generation that started them
type sink struct {
	s   *Session
	gen uint64
}

func (k *sink) Started()                 { k.s.started(k.gen) }
func (k *sink) Position(seconds float64) { k.s.position(k.gen, seconds) }
func (k *sink) Ended()                   { k.s.ended(k.gen) }
func (k *sink) Failed(err error)         { k.s.fail(k.gen, err) }
