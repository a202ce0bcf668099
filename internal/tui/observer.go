package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/eliote-geeks/reveilartist/internal/cart"
	"github.com/eliote-geeks/reveilartist/internal/event"
	"github.com/eliote-geeks/reveilartist/internal/like"
	"github.com/eliote-geeks/reveilartist/internal/playback"
	"github.com/eliote-geeks/reveilartist/internal/purchase"
	"github.com/eliote-geeks/reveilartist/internal/session"
)

const eventBuffer = 256

// ChannelObserver funnels store notifications into one channel that the
// Bubble Tea loop drains. Sends never block the publishing store; a dropped
// notification only delays a redraw since views read the stores directly.
type ChannelObserver struct {
	ch          chan tea.Msg
	send        func(tea.Msg)
	unsubscribe []func()
}

// NewChannelObserver subscribes to every store in sess
func NewChannelObserver(sess *session.Session) *ChannelObserver {
	o := &ChannelObserver{ch: make(chan tea.Msg, eventBuffer)}
	o.send = event.Forward[tea.Msg](o.ch)
	send := o.send

	o.unsubscribe = append(o.unsubscribe,
		sess.Cart.Subscribe(func(c cart.Change) { send(CartChangedMsg{Change: c}) }),
		sess.Purchases.Subscribe(func(c purchase.Change) { send(PurchasesChangedMsg{Change: c}) }),
		sess.Likes.Subscribe(func(c like.Change) { send(LikeChangedMsg{Change: c}) }),
		sess.Playback.Subscribe(func(s playback.Snapshot) { send(PlaybackMsg{Snapshot: s}) }),
	)
	return o
}

// Send delivers msg without blocking (dropped if the buffer is full)
func (o *ChannelObserver) Send(msg tea.Msg) {
	o.send(msg)
}

// Wait returns a command that yields the next notification
func (o *ChannelObserver) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-o.ch
	}
}

// Close unsubscribes from every store
func (o *ChannelObserver) Close() {
	for _, fn := range o.unsubscribe {
		fn()
	}
	o.unsubscribe = nil
}
