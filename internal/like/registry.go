// Package like caches like state per content id with optimistic toggles that
// are confirmed or rolled back against the server.
package like

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/event"
)

// ErrStale is returned by Pending.Wait when the response was discarded
// because its view closed first.
var ErrStale = errors.New("like response arrived after its view closed")

// Status is the locally known like state
type Status struct {
	Liked     bool
	LikeCount int
	Pending   bool // a toggle is awaiting the server
}

// Phase tells observers which half of a two-phase update happened
type Phase string

const (
	PhaseHydrated   Phase = "hydrated"    // batch status applied
	PhaseTentative  Phase = "tentative"   // optimistic local flip
	PhaseConfirmed  Phase = "confirmed"   // server accepted the toggle
	PhaseRolledBack Phase = "rolled_back" // server rejected the toggle
)

// Change is published for every state change of one content id
type Change struct {
	ContentID string
	Status    Status
	Phase     Phase
	Err       error // set for PhaseRolledBack
}

type entry struct {
	liked   bool
	count   int
	known   bool
	seq     uint64        // incremented on every local toggle
	pending int           // toggles awaiting a response
	tail    chan struct{} // closed when the latest toggle's request resolves

	// Last state the server reported; failed toggles settle back to it
	serverLiked bool
	serverCount int
}

// Registry is the session-wide like cache
type Registry struct {
	repo   domain.LikeRepository
	logger *slog.Logger

	mu      sync.Mutex
	epoch   uint64
	entries map[string]*entry

	changes event.Bus[Change]
}

// NewRegistry creates an empty registry
func NewRegistry(repo domain.LikeRepository, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		repo:    repo,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// View scopes asynchronous calls to the page that issued them. Responses that
// arrive after the view is closed, or after the registry was reset, are dropped.
type View struct {
	reg    *Registry
	epoch  uint64
	mu     sync.Mutex
	closed bool
}

// Open returns a new live view bound to the current epoch
func (r *Registry) Open() *View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &View{reg: r, epoch: r.epoch}
}

// Close marks the view dead. Safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// live must be called with the registry lock held
func (v *View) live() bool {
	if v == nil {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed && v.epoch == v.reg.epoch
}

// Reset drops all cached state and invalidates every open view
func (r *Registry) Reset() {
	r.mu.Lock()
	r.epoch++
	r.entries = make(map[string]*entry)
	r.mu.Unlock()
}

// Status returns the cached state for id
func (r *Registry) Status(id string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || !e.known {
		return Status{}, false
	}
	return e.status(), true
}

// Seed records a like count from a catalog listing without touching the liked
// flag. Ignored once the id has been hydrated.
func (r *Registry) Seed(id string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return
	}
	r.entries[id] = &entry{count: count, serverCount: count}
}

// LoadBatchStatus hydrates the given ids in a single request. A response never
// overwrites the liked flag of an id toggled after the request was issued; the
// like count is last-writer-wins.
func (r *Registry) LoadBatchStatus(ctx context.Context, v *View, ids []string) error {
	ids = distinct(ids)
	if len(ids) == 0 {
		return nil
	}

	r.mu.Lock()
	issuedAt := make(map[string]uint64, len(ids))
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			issuedAt[id] = e.seq
		}
	}
	r.mu.Unlock()

	statuses, err := r.repo.GetLikeStatuses(ctx, ids)
	if err != nil {
		r.logger.Error("failed to load like statuses", "error", err, "count", len(ids))
		if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrNetworkFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}

	r.mu.Lock()
	if !v.live() {
		r.mu.Unlock()
		r.logger.Debug("dropping like statuses for closed view", "count", len(statuses))
		return nil
	}
	applied := make([]Change, 0, len(statuses))
	for _, st := range statuses {
		e, ok := r.entries[st.ContentID]
		if !ok {
			e = &entry{}
			r.entries[st.ContentID] = e
		}
		if e.seq == issuedAt[st.ContentID] && e.pending == 0 {
			e.liked = st.Liked
			e.serverLiked = st.Liked
		}
		e.count = st.LikeCount
		e.serverCount = st.LikeCount
		e.known = true
		applied = append(applied, Change{ContentID: st.ContentID, Status: e.status(), Phase: PhaseHydrated})
	}
	r.mu.Unlock()

	for _, c := range applied {
		r.changes.Publish(c)
	}
	return nil
}

// Pending is the second phase of a toggle
type Pending struct {
	done chan struct{}
	st   Status
	err  error
}

// Wait blocks until the server responded (or the context given to Toggle was
// cancelled) and returns the resulting status.
func (p *Pending) Wait() (Status, error) {
	<-p.done
	return p.st, p.err
}

// Done is closed once the toggle is resolved
func (p *Pending) Done() <-chan struct{} { return p.done }

// Toggle flips the liked flag and adjusts the count by one immediately, then
// confirms with the server in the background.
func (r *Registry) Toggle(ctx context.Context, v *View, id string) (Status, *Pending) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		e = &entry{}
		r.entries[id] = e
	}
	e.liked = !e.liked
	if e.liked {
		e.count++
	} else if e.count > 0 {
		e.count--
	}
	e.known = true
	e.seq++
	e.pending++
	seq := e.seq
	prev := e.tail
	mine := make(chan struct{})
	e.tail = mine
	tentative := e.status()
	r.mu.Unlock()

	r.changes.Publish(Change{ContentID: id, Status: tentative, Phase: PhaseTentative})

	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		defer close(mine)
		// Requests for one id go out in toggle order so the last response
		// carries the final server state.
		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
			}
		}
		p.st, p.err = r.confirm(ctx, v, id, e, seq)
	}()
	return tentative, p
}

// confirm sends one toggle. e is the entry the toggle was applied to; after a
// Reset it is no longer in the map and the response is dropped.
func (r *Registry) confirm(ctx context.Context, v *View, id string, e *entry, seq uint64) (Status, error) {
	st, err := r.repo.ToggleLike(ctx, id)

	r.mu.Lock()
	if e.pending > 0 {
		e.pending--
	}
	if r.entries[id] != e || !v.live() {
		r.mu.Unlock()
		r.logger.Debug("dropping like response for closed view", "contentID", id)
		return Status{}, ErrStale
	}

	if err != nil {
		// Toggles still in flight reconcile on their own response. The last
		// one to settle falls back to what the server last confirmed.
		if e.pending == 0 {
			e.liked, e.count = e.serverLiked, e.serverCount
		}
		cur := e.status()
		r.mu.Unlock()

		r.logger.Warn("like toggle rolled back", "error", err, "contentID", id)
		wrapped := fmt.Errorf("%w: %v", domain.ErrLikeFailed, err)
		r.changes.Publish(Change{ContentID: id, Status: cur, Phase: PhaseRolledBack, Err: wrapped})
		return cur, wrapped
	}

	e.serverLiked, e.serverCount = st.Liked, st.LikeCount
	e.count = st.LikeCount
	if e.seq == seq {
		e.liked = st.Liked
	}
	cur := e.status()
	r.mu.Unlock()

	r.changes.Publish(Change{ContentID: id, Status: cur, Phase: PhaseConfirmed})
	return cur, nil
}

// Subscribe registers fn for like changes
func (r *Registry) Subscribe(fn func(Change)) (unsubscribe func()) {
	return r.changes.Subscribe(fn)
}

func (e *entry) status() Status {
	return Status{Liked: e.liked, LikeCount: e.count, Pending: e.pending > 0}
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
