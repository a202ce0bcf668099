package tui

import (
	"github.com/eliote-geeks/reveilartist/internal/cart"
	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/like"
	"github.com/eliote-geeks/reveilartist/internal/playback"
	"github.com/eliote-geeks/reveilartist/internal/purchase"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SessionStartedMsg signals the bootstrap finished. Err is set when part of
// it failed; whatever loaded is still shown.
type SessionStartedMsg struct {
	Err error
}

// SyncProgressMsg reports catalog paging progress
type SyncProgressMsg struct {
	Type   domain.ContentType
	Loaded int64
	Total  int64
}

// CartChangedMsg mirrors a cart store change
type CartChangedMsg struct {
	Change cart.Change
}

// PurchasesChangedMsg mirrors a purchase registry change
type PurchasesChangedMsg struct {
	Change purchase.Change
}

// LikeChangedMsg mirrors a like registry change
type LikeChangedMsg struct {
	Change like.Change
}

// PlaybackMsg mirrors a playback session change
type PlaybackMsg struct {
	Snapshot playback.Snapshot
}

// LikesLoadedMsg signals a batch like status finished
type LikesLoadedMsg struct {
	Err error
}

// LikeSettledMsg signals the server answered a like toggle
type LikeSettledMsg struct {
	Title string
	Err   error
}

// DownloadProgressMsg reports bytes received for the active download
type DownloadProgressMsg struct {
	Key    domain.ContentKey
	Loaded int64
	Total  int64
}

// DownloadDoneMsg signals a download finished
type DownloadDoneMsg struct {
	Title string
	Path  string
	Err   error
}

// RecommendationsMsg signals the one-shot recommendations fetch finished
type RecommendationsMsg struct {
	Items []*domain.Content
}

// SignedOutMsg signals the session switched to the anonymous identity
type SignedOutMsg struct {
	Err error
}
