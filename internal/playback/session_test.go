package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownedSet map[domain.ContentKey]bool

func (o ownedSet) Has(id string, t domain.ContentType) bool { return o[domain.Key(id, t)] }

type fakeStreams struct{ err error }

func (f fakeStreams) ResolveStreamURL(ctx context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/" + id + ".mp3", nil
}

type fakeHandle struct {
	mu      sync.Mutex
	stopped bool
	paused  bool
}

func (h *fakeHandle) Pause() error  { h.mu.Lock(); h.paused = true; h.mu.Unlock(); return nil }
func (h *fakeHandle) Resume() error { h.mu.Lock(); h.paused = false; h.mu.Unlock(); return nil }
func (h *fakeHandle) Stop() error   { h.mu.Lock(); h.stopped = true; h.mu.Unlock(); return nil }

func (h *fakeHandle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// fakePlayer records every started stream; tests drive the sinks by hand
type fakePlayer struct {
	mu      sync.Mutex
	sinks   []domain.MediaSink
	handles []*fakeHandle
}

func (p *fakePlayer) Start(ctx context.Context, url string, sink domain.MediaSink) (domain.MediaHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := &fakeHandle{}
	p.sinks = append(p.sinks, sink)
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakePlayer) last() (domain.MediaSink, *fakeHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.sinks)
	return p.sinks[n-1], p.handles[n-1]
}

type fakeRecs struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRecs) GetRecommendations(ctx context.Context) ([]*domain.Content, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []*domain.Content{{ID: "r1", Type: domain.ContentTypeSound, Title: "Next up"}}, nil
}

func track(id string, price int64, dur time.Duration) domain.Content {
	return domain.Content{ID: id, Type: domain.ContentTypeSound, Title: "Track " + id, UnitPrice: price, Duration: dur}
}

func newTestSession(owned ownedSet, recs domain.RecommendationRepository) (*Session, *fakePlayer) {
	p := &fakePlayer{}
	return NewSession(p, fakeStreams{}, owned, recs, nil), p
}

func TestPaidUnownedTrackIsCappedAtTwentySeconds(t *testing.T) {
	s, p := newTestSession(nil, nil)
	tr := track("a", 300, 180*time.Second)

	require.NoError(t, s.Play(context.Background(), tr))
	assert.Equal(t, domain.PlaybackLoading, s.State().State)

	sink, h := p.last()
	sink.Started()
	snap := s.State()
	require.Equal(t, domain.PlaybackPlaying, snap.State)
	require.NotNil(t, snap.CapSeconds)
	assert.Equal(t, 20.0, *snap.CapSeconds)

	for _, pos := range []float64{0.25, 5, 10, 19.75} {
		sink.Position(pos)
		assert.Equal(t, domain.PlaybackPlaying, s.State().State)
	}

	sink.Position(20.0)
	snap = s.State()
	assert.Equal(t, domain.PlaybackCapped, snap.State, "exactly 20.0s is capped at the boundary")
	assert.Equal(t, 20.0, snap.PositionSeconds)
	assert.True(t, h.isStopped())

	// Late samples never move past the cap
	sink.Position(20.5)
	assert.Equal(t, 20.0, s.State().PositionSeconds)
	assert.Error(t, s.Resume(), "cannot resume past the cap")
}

func TestCapClampsOvershootingSample(t *testing.T) {
	s, p := newTestSession(nil, nil)
	require.NoError(t, s.Play(context.Background(), track("a", 300, 180*time.Second)))
	sink, _ := p.last()
	sink.Started()

	sink.Position(20.4)
	snap := s.State()
	assert.Equal(t, domain.PlaybackCapped, snap.State)
	assert.Equal(t, 20.0, snap.PositionSeconds)
}

func TestReplayAfterCapRestartsFromZero(t *testing.T) {
	s, p := newTestSession(nil, nil)
	tr := track("a", 300, 180*time.Second)

	require.NoError(t, s.Play(context.Background(), tr))
	sink, _ := p.last()
	sink.Started()
	sink.Position(20)
	require.Equal(t, domain.PlaybackCapped, s.State().State)

	require.NoError(t, s.Play(context.Background(), tr))
	snap := s.State()
	assert.Equal(t, domain.PlaybackLoading, snap.State)
	assert.Zero(t, snap.PositionSeconds)

	sink2, _ := p.last()
	sink2.Started()
	sink2.Position(1)
	assert.Equal(t, 1.0, s.State().PositionSeconds)

	// Samples from the capped stream are ignored
	sink.Position(19)
	assert.Equal(t, 1.0, s.State().PositionSeconds)
}

func TestPurchasedTrackPlaysToNaturalEnd(t *testing.T) {
	owned := ownedSet{domain.Key("a", domain.ContentTypeSound): true}
	s, p := newTestSession(owned, nil)
	tr := track("a", 300, 180*time.Second)

	require.NoError(t, s.Play(context.Background(), tr))
	sink, _ := p.last()
	sink.Started()
	assert.Nil(t, s.State().CapSeconds)

	for pos := 1.0; pos <= 180; pos++ {
		sink.Position(pos)
		require.Equal(t, domain.PlaybackPlaying, s.State().State)
	}
	sink.Ended()

	snap := s.State()
	assert.Equal(t, domain.PlaybackEnded, snap.State)
	assert.Equal(t, 180.0, snap.PositionSeconds)
}

func TestFreeTrackIsUncapped(t *testing.T) {
	s, p := newTestSession(nil, nil)
	require.NoError(t, s.Play(context.Background(), track("f", 0, 60*time.Second)))
	sink, _ := p.last()
	sink.Started()
	sink.Position(45)

	snap := s.State()
	assert.Nil(t, snap.CapSeconds)
	assert.Equal(t, domain.PlaybackPlaying, snap.State)
}

func TestCapIsComputedWhenPlaybackStarts(t *testing.T) {
	owned := ownedSet{}
	s, p := newTestSession(owned, nil)
	require.NoError(t, s.Play(context.Background(), track("a", 300, 180*time.Second)))

	// Purchase lands while loading
	owned[domain.Key("a", domain.ContentTypeSound)] = true
	sink, _ := p.last()
	sink.Started()
	assert.Nil(t, s.State().CapSeconds)
}

func TestPauseResumeKeepsCapClock(t *testing.T) {
	s, p := newTestSession(nil, nil)
	require.NoError(t, s.Play(context.Background(), track("a", 300, 180*time.Second)))
	sink, h := p.last()
	sink.Started()
	sink.Position(12)

	require.NoError(t, s.Pause())
	assert.Equal(t, domain.PlaybackPaused, s.State().State)
	assert.True(t, h.paused)
	assert.ErrorIs(t, s.Pause(), ErrInvalidTransition)

	require.NoError(t, s.Resume())
	assert.Equal(t, domain.PlaybackPlaying, s.State().State)
	assert.Equal(t, 12.0, s.State().PositionSeconds)

	sink.Position(20)
	assert.Equal(t, domain.PlaybackCapped, s.State().State)
}

func TestStartingBStopsA(t *testing.T) {
	s, p := newTestSession(nil, nil)
	a := track("a", 0, 60*time.Second)
	b := track("b", 0, 60*time.Second)

	var mu sync.Mutex
	var seen []Snapshot
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	require.NoError(t, s.Play(context.Background(), a))
	sinkA, handleA := p.last()
	sinkA.Started()
	require.Equal(t, domain.PlaybackPlaying, s.StateOf("a"))

	require.NoError(t, s.Play(context.Background(), b))
	sinkB, _ := p.last()
	sinkB.Started()

	assert.True(t, handleA.isStopped())
	assert.Equal(t, domain.PlaybackIdle, s.StateOf("a"))
	assert.Equal(t, domain.PlaybackPlaying, s.StateOf("b"))

	// A's late events cannot revive it
	sinkA.Position(3)
	sinkA.Ended()
	assert.Equal(t, domain.PlaybackPlaying, s.StateOf("b"))

	mu.Lock()
	defer mu.Unlock()
	var states []string
	for _, snap := range seen {
		states = append(states, snap.TrackID+":"+string(snap.State))
	}
	assert.Equal(t, []string{"a:loading", "a:playing", "a:idle", "b:loading", "b:playing"}, states)
}

func TestRecommendationsFetchedOncePerSession(t *testing.T) {
	recs := &fakeRecs{}
	s, p := newTestSession(nil, recs)

	for _, id := range []string{"a", "b", "a"} {
		require.NoError(t, s.Play(context.Background(), track(id, 0, time.Minute)))
		sink, _ := p.last()
		sink.Started()
	}

	select {
	case <-s.RecommendationsDone():
	case <-time.After(time.Second):
		t.Fatal("recommendations never fetched")
	}
	assert.Equal(t, int32(1), recs.calls.Load())
	items, ok := s.Recommendations()
	assert.True(t, ok)
	assert.Len(t, items, 1)
}

func TestRecommendationsNotFetchedBeforeFirstPlay(t *testing.T) {
	recs := &fakeRecs{}
	s, _ := newTestSession(nil, recs)
	require.NoError(t, s.Play(context.Background(), track("a", 0, time.Minute)))

	_, ok := s.Recommendations()
	assert.False(t, ok)
	assert.Zero(t, recs.calls.Load())
}

func TestRecommendationFailureDoesNotAffectPlayback(t *testing.T) {
	recs := &fakeRecs{err: errors.New("503")}
	s, p := newTestSession(nil, recs)
	require.NoError(t, s.Play(context.Background(), track("a", 0, time.Minute)))
	sink, _ := p.last()
	sink.Started()

	<-s.RecommendationsDone()
	_, ok := s.Recommendations()
	assert.False(t, ok)
	assert.Equal(t, domain.PlaybackPlaying, s.State().State)
}

func TestCloseEndsPlayback(t *testing.T) {
	s, p := newTestSession(nil, nil)
	require.NoError(t, s.Play(context.Background(), track("a", 300, time.Minute)))
	sink, h := p.last()
	sink.Started()

	require.NoError(t, s.Close())
	assert.Equal(t, domain.PlaybackEnded, s.State().State)
	assert.True(t, h.isStopped())

	// Closing an idle session is a no-op
	s2, _ := newTestSession(nil, nil)
	require.NoError(t, s2.Close())
	assert.Equal(t, domain.PlaybackIdle, s2.State().State)
}

func TestCappedTrackCanBeClosed(t *testing.T) {
	s, p := newTestSession(nil, nil)
	require.NoError(t, s.Play(context.Background(), track("a", 300, time.Minute)))
	sink, _ := p.last()
	sink.Started()
	sink.Position(20)

	require.NoError(t, s.Close())
	assert.Equal(t, domain.PlaybackEnded, s.State().State)
}

func TestStreamResolutionFailureLeavesSessionIdle(t *testing.T) {
	p := &fakePlayer{}
	s := NewSession(p, fakeStreams{err: domain.ErrNetworkFailure}, nil, nil, nil)

	err := s.Play(context.Background(), track("a", 0, time.Minute))
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
	snap := s.State()
	assert.Equal(t, domain.PlaybackIdle, snap.State)
	assert.ErrorIs(t, snap.Err, domain.ErrNetworkFailure)
}

func TestEventsAreNotPlayable(t *testing.T) {
	s, _ := newTestSession(nil, nil)
	err := s.Play(context.Background(), domain.Content{ID: "e", Type: domain.ContentTypeEvent})
	assert.ErrorIs(t, err, ErrNotPlayable)
}
