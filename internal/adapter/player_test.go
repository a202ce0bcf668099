//go:build unix

package adapter

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
	last   float64
	done   chan struct{}
	once   sync.Once
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (r *recordingSink) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingSink) Started() { r.add("started") }

func (r *recordingSink) Position(s float64) {
	r.mu.Lock()
	r.last = s
	r.mu.Unlock()
}

func (r *recordingSink) Ended() {
	r.add("ended")
	r.once.Do(func() { close(r.done) })
}

func (r *recordingSink) Failed(err error) {
	r.add("failed")
	r.once.Do(func() { close(r.done) })
}

func (r *recordingSink) position() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.events...)
}

func sleepPlayer(t *testing.T) *ProcessPlayer {
	t.Helper()
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	p := NewProcessPlayer("sleep", []string{}, nil)
	p.interval = 10 * time.Millisecond
	return p
}

func TestProcessPlayerNaturalEnd(t *testing.T) {
	p := sleepPlayer(t)
	sink := newRecordingSink()

	_, err := p.Start(context.Background(), "0.2", sink)
	require.NoError(t, err)

	select {
	case <-sink.done:
	case <-time.After(5 * time.Second):
		t.Fatal("player never ended")
	}
	assert.Equal(t, []string{"started", "ended"}, sink.snapshot())
	assert.Greater(t, sink.position(), 0.0)
}

func TestProcessPlayerStopIsSilent(t *testing.T) {
	p := sleepPlayer(t)
	sink := newRecordingSink()

	h, err := p.Start(context.Background(), "30", sink)
	require.NoError(t, err)
	require.NoError(t, h.Stop())
	require.NoError(t, h.Stop())

	time.Sleep(100 * time.Millisecond)
	assert.NotContains(t, sink.snapshot(), "ended")
	assert.NotContains(t, sink.snapshot(), "failed")
}

func TestProcessPlayerPauseFreezesPosition(t *testing.T) {
	p := sleepPlayer(t)
	sink := newRecordingSink()

	h, err := p.Start(context.Background(), "30", sink)
	require.NoError(t, err)
	defer h.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, h.Pause())
	time.Sleep(30 * time.Millisecond)
	frozen := sink.position()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, frozen, sink.position())

	require.NoError(t, h.Resume())
	time.Sleep(100 * time.Millisecond)
	assert.Greater(t, sink.position(), frozen)
}

func TestProcessPlayerRejectsCanceledContext(t *testing.T) {
	p := sleepPlayer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Start(ctx, "1", newRecordingSink())
	assert.ErrorIs(t, err, context.Canceled)
}
