package like

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer keeps authoritative like state. Each toggle can be held until
// released so tests control response ordering.
type fakeServer struct {
	mu         sync.Mutex
	liked      map[string]bool
	counts     map[string]int
	batchCalls [][]string
	failToggle error
	failBatch  error
	hold       chan struct{} // when set, ToggleLike waits for a receive
	batchHold  chan struct{}
}

func newFakeServer() *fakeServer {
	return &fakeServer{liked: map[string]bool{}, counts: map[string]int{}}
}

func (f *fakeServer) GetLikeStatuses(ctx context.Context, ids []string) ([]domain.LikeStatus, error) {
	f.mu.Lock()
	f.batchCalls = append(f.batchCalls, ids)
	hold := f.batchHold
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBatch != nil {
		return nil, f.failBatch
	}
	out := make([]domain.LikeStatus, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.LikeStatus{ContentID: id, Liked: f.liked[id], LikeCount: f.counts[id]})
	}
	return out, nil
}

func (f *fakeServer) ToggleLike(ctx context.Context, id string) (domain.LikeStatus, error) {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failToggle != nil {
		return domain.LikeStatus{}, f.failToggle
	}
	f.liked[id] = !f.liked[id]
	if f.liked[id] {
		f.counts[id]++
	} else {
		f.counts[id]--
	}
	return domain.LikeStatus{ContentID: id, Liked: f.liked[id], LikeCount: f.counts[id]}, nil
}

func TestLoadBatchStatusIsOneRoundTrip(t *testing.T) {
	srv := newFakeServer()
	srv.liked["a"] = true
	srv.counts["a"] = 10
	srv.counts["b"] = 3
	r := NewRegistry(srv, nil)
	v := r.Open()

	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a", "b", "a", ""}))

	require.Len(t, srv.batchCalls, 1)
	assert.Equal(t, []string{"a", "b"}, srv.batchCalls[0])

	st, ok := r.Status("a")
	require.True(t, ok)
	assert.Equal(t, Status{Liked: true, LikeCount: 10}, st)
	st, _ = r.Status("b")
	assert.Equal(t, Status{LikeCount: 3}, st)
}

func TestLoadBatchFailureKeepsState(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 4
	r := NewRegistry(srv, nil)
	v := r.Open()
	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a"}))

	srv.failBatch = errors.New("502 bad gateway")
	err := r.LoadBatchStatus(context.Background(), v, []string{"a"})
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)

	st, _ := r.Status("a")
	assert.Equal(t, 4, st.LikeCount)
}

func TestToggleIsOptimisticThenReconciled(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 5
	r := NewRegistry(srv, nil)
	v := r.Open()
	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a"}))

	// Another session likes "a" while our toggle is in flight
	srv.counts["a"] = 7

	tentative, p := r.Toggle(context.Background(), v, "a")
	assert.True(t, tentative.Liked)
	assert.Equal(t, 6, tentative.LikeCount)
	assert.True(t, tentative.Pending)

	st, err := p.Wait()
	require.NoError(t, err)
	assert.True(t, st.Liked)
	assert.Equal(t, 8, st.LikeCount, "server count wins over optimistic arithmetic")
	assert.False(t, st.Pending)
}

func TestToggleTwiceRestoresOriginal(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 5
	r := NewRegistry(srv, nil)
	v := r.Open()
	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a"}))
	before, _ := r.Status("a")

	_, p1 := r.Toggle(context.Background(), v, "a")
	_, err := p1.Wait()
	require.NoError(t, err)
	_, p2 := r.Toggle(context.Background(), v, "a")
	_, err = p2.Wait()
	require.NoError(t, err)

	after, _ := r.Status("a")
	assert.Equal(t, before, after)
}

func TestConcurrentDoubleToggleConverges(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 5
	r := NewRegistry(srv, nil)
	v := r.Open()
	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a"}))

	_, p1 := r.Toggle(context.Background(), v, "a")
	_, p2 := r.Toggle(context.Background(), v, "a")
	_, err1 := p1.Wait()
	_, err2 := p2.Wait()
	require.NoError(t, err1)
	require.NoError(t, err2)

	st, _ := r.Status("a")
	assert.False(t, st.Liked)
	assert.Equal(t, 5, st.LikeCount)
	assert.False(t, st.Pending)
}

func TestToggleFailureRollsBack(t *testing.T) {
	srv := newFakeServer()
	srv.liked["a"] = true
	srv.counts["a"] = 9
	r := NewRegistry(srv, nil)
	v := r.Open()
	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a"}))

	var phases []Phase
	var mu sync.Mutex
	r.Subscribe(func(c Change) {
		mu.Lock()
		phases = append(phases, c.Phase)
		mu.Unlock()
	})

	srv.failToggle = errors.New("500 internal")
	tentative, p := r.Toggle(context.Background(), v, "a")
	assert.False(t, tentative.Liked)
	assert.Equal(t, 8, tentative.LikeCount)

	st, err := p.Wait()
	assert.ErrorIs(t, err, domain.ErrLikeFailed)
	assert.Equal(t, Status{Liked: true, LikeCount: 9}, st)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhaseTentative, PhaseRolledBack}, phases)
}

func TestStaleBatchDoesNotOverwriteToggle(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 5
	r := NewRegistry(srv, nil)
	v := r.Open()
	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a"}))

	// Issue a batch load, hold its response, toggle, then let the batch land
	srv.batchHold = make(chan struct{})
	batchDone := make(chan error, 1)
	go func() { batchDone <- r.LoadBatchStatus(context.Background(), v, []string{"a"}) }()

	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.batchCalls) == 2
	}, time.Second, 5*time.Millisecond)

	_, p := r.Toggle(context.Background(), v, "a")
	_, err := p.Wait()
	require.NoError(t, err)

	// Server now says liked=true,count=6; the held batch was computed earlier
	// in spirit but resolves later. Make it report the pre-toggle view.
	srv.mu.Lock()
	srv.liked["a"] = false
	srv.counts["a"] = 6
	srv.mu.Unlock()
	close(srv.batchHold)
	require.NoError(t, <-batchDone)

	st, _ := r.Status("a")
	assert.True(t, st.Liked, "batch issued before the toggle must not clobber liked")
	assert.Equal(t, 6, st.LikeCount, "count is last-writer-wins")
}

func TestResponsesForClosedViewAreDropped(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 5
	r := NewRegistry(srv, nil)
	v := r.Open()

	srv.batchHold = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- r.LoadBatchStatus(context.Background(), v, []string{"a"}) }()

	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.batchCalls) == 1
	}, time.Second, 5*time.Millisecond)

	v.Close()
	close(srv.batchHold)
	require.NoError(t, <-done)

	_, ok := r.Status("a")
	assert.False(t, ok, "no state written for a dead view")
}

func TestResetInvalidatesOpenViews(t *testing.T) {
	srv := newFakeServer()
	srv.hold = make(chan struct{})
	r := NewRegistry(srv, nil)
	v := r.Open()

	_, p := r.Toggle(context.Background(), v, "a")
	r.Reset()
	close(srv.hold)

	_, err := p.Wait()
	assert.ErrorIs(t, err, ErrStale)
	_, ok := r.Status("a")
	assert.False(t, ok)
}

func TestSeedDoesNotOverrideHydratedState(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 2
	r := NewRegistry(srv, nil)

	r.Seed("b", 40)
	_, ok := r.Status("b")
	assert.False(t, ok, "seeded counts are not a known status")

	require.NoError(t, r.LoadBatchStatus(context.Background(), r.Open(), []string{"a"}))
	r.Seed("a", 99)
	st, _ := r.Status("a")
	assert.Equal(t, 2, st.LikeCount)
}

func TestTwoFailedTogglesSettleOnServerState(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 5
	r := NewRegistry(srv, nil)
	v := r.Open()
	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a"}))

	srv.hold = make(chan struct{})
	srv.failToggle = errors.New("503 unavailable")
	_, p1 := r.Toggle(context.Background(), v, "a")
	_, p2 := r.Toggle(context.Background(), v, "a")
	close(srv.hold)

	_, err1 := p1.Wait()
	_, err2 := p2.Wait()
	assert.ErrorIs(t, err1, domain.ErrLikeFailed)
	assert.ErrorIs(t, err2, domain.ErrLikeFailed)

	st, _ := r.Status("a")
	assert.Equal(t, Status{Liked: false, LikeCount: 5}, st)
}

func TestFailureAfterSuccessKeepsServerCount(t *testing.T) {
	srv := newFakeServer()
	srv.counts["a"] = 5
	r := NewRegistry(srv, nil)
	v := r.Open()
	require.NoError(t, r.LoadBatchStatus(context.Background(), v, []string{"a"}))

	srv.hold = make(chan struct{})
	_, p1 := r.Toggle(context.Background(), v, "a")
	_, p2 := r.Toggle(context.Background(), v, "a")

	// First request succeeds: server is now liked with 6
	srv.hold <- struct{}{}
	_, err := p1.Wait()
	require.NoError(t, err)

	srv.mu.Lock()
	srv.failToggle = errors.New("500 internal")
	srv.mu.Unlock()
	srv.hold <- struct{}{}
	_, err = p2.Wait()
	assert.ErrorIs(t, err, domain.ErrLikeFailed)

	st, _ := r.Status("a")
	assert.Equal(t, Status{Liked: true, LikeCount: 6}, st)
}

func TestResetDropsUnscopedToggle(t *testing.T) {
	srv := newFakeServer()
	srv.hold = make(chan struct{})
	r := NewRegistry(srv, nil)

	_, before := r.Toggle(context.Background(), nil, "a")
	r.Reset()
	_, after := r.Toggle(context.Background(), nil, "a")
	close(srv.hold)

	_, err := before.Wait()
	assert.ErrorIs(t, err, ErrStale)
	_, err = after.Wait()
	require.NoError(t, err)

	st, ok := r.Status("a")
	require.True(t, ok)
	assert.False(t, st.Pending)
}
