package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/like"
	"github.com/eliote-geeks/reveilartist/internal/session"
)

// Command factories for async operations

// StartSessionCmd bootstraps the session, streaming catalog progress
func StartSessionCmd(sess *session.Session, obs *ChannelObserver) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		err := sess.Start(ctx, func(t domain.ContentType, loaded, total int64) {
			obs.Send(SyncProgressMsg{Type: t, Loaded: loaded, Total: total})
		})
		return SessionStartedMsg{Err: err}
	}
}

// LoadLikesCmd hydrates like state for the visible listing in one request
func LoadLikesCmd(reg *like.Registry, view *like.View, ids []string) tea.Cmd {
	if len(ids) == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return LikesLoadedMsg{Err: reg.LoadBatchStatus(ctx, view, ids)}
	}
}

// WaitLikeCmd waits for the server to settle a toggle
func WaitLikeCmd(p *like.Pending, title string) tea.Cmd {
	return func() tea.Msg {
		_, err := p.Wait()
		return LikeSettledMsg{Title: title, Err: err}
	}
}

// PlayCmd starts playback of a sound
func PlayCmd(sess *session.Session, c domain.Content) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sess.Playback.Play(ctx, c); err != nil {
			return ErrMsg{Err: err, Context: "starting playback"}
		}
		return nil
	}
}

// DownloadCmd downloads content through the entitlement gate
func DownloadCmd(sess *session.Session, obs *ChannelObserver, c domain.Content) tea.Cmd {
	return func() tea.Msg {
		path, err := sess.Downloads.Download(context.Background(), c, func(loaded, total int64) {
			obs.Send(DownloadProgressMsg{Key: c.Key(), Loaded: loaded, Total: total})
		})
		return DownloadDoneMsg{Title: c.Title, Path: path, Err: err}
	}
}

// RefreshCmd reloads the catalog and, when signed in, ownership
func RefreshCmd(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		for _, t := range []domain.ContentType{domain.ContentTypeSound, domain.ContentTypeEvent} {
			if _, err := sess.Catalog.Refresh(ctx, t, nil); err != nil {
				return SessionStartedMsg{Err: err}
			}
		}
		if sess.Identity().SignedIn() {
			if err := sess.RefreshPurchases(ctx); err != nil {
				return SessionStartedMsg{Err: err}
			}
		}
		return SessionStartedMsg{}
	}
}

// WaitRecommendationsCmd yields once the one-shot recommendations fetch is done
func WaitRecommendationsCmd(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		<-sess.Playback.RecommendationsDone()
		items, _ := sess.Playback.Recommendations()
		return RecommendationsMsg{Items: items}
	}
}

// SignOutCmd drops the account for this session
func SignOutCmd(sess *session.Session, signOut func() error) tea.Cmd {
	return func() tea.Msg {
		if signOut != nil {
			if err := signOut(); err != nil {
				return SignedOutMsg{Err: err}
			}
		}
		return SignedOutMsg{Err: sess.SignOut()}
	}
}
