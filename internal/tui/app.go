package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/like"
	"github.com/eliote-geeks/reveilartist/internal/playback"
	"github.com/eliote-geeks/reveilartist/internal/search"
	"github.com/eliote-geeks/reveilartist/internal/session"
	"github.com/eliote-geeks/reveilartist/internal/tui/styles"
)

// Tab is one of the top-level pages
type Tab int

const (
	TabSounds Tab = iota
	TabEvents
	TabCart
	tabCount
)

func (t Tab) contentType() domain.ContentType {
	if t == TabEvents {
		return domain.ContentTypeEvent
	}
	return domain.ContentTypeSound
}

// Vertical chrome: tabs, blank, player bar (2), status, help
const ChromeHeight = 6

// Model is the main Bubble Tea model for the application
type Model struct {
	sess    *session.Session
	obs     *ChannelObserver
	signOut func() error // clears persisted credentials

	// Listing state
	tab     Tab
	cursor  [tabCount]int
	offset  [tabCount]int
	indexes map[domain.ContentType]*search.Index
	results []search.Result
	view    *like.View

	// Filter
	filter    textinput.Model
	filtering bool

	// UI components
	spinner  spinner.Model
	help     help.Model
	showHelp bool

	// Async state
	loading      bool
	syncProgress map[domain.ContentType][2]int64
	download     *DownloadProgressMsg
	recs         []*domain.Content
	waitingRecs  bool

	// Status line
	status      string
	statusIsErr bool

	confirmLogout bool

	Width  int
	Height int
}

// NewModel creates the application model. signOut, when set, runs before
// the session drops its account.
func NewModel(sess *session.Session, obs *ChannelObserver, signOut func() error) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.Placeholder = "filter by title or artist"
	ti.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	return Model{
		sess:         sess,
		obs:          obs,
		signOut:      signOut,
		indexes:      make(map[domain.ContentType]*search.Index),
		filter:       ti,
		spinner:      sp,
		help:         help.New(),
		loading:      true,
		syncProgress: make(map[domain.ContentType][2]int64),
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		StartSessionCmd(m.sess, m.obs),
		m.obs.Wait(),
		m.spinner.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		m.ensureVisible()
		return m, m.hydrateVisible()

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SessionStartedMsg:
		m.loading = false
		m.rebuildIndexes()
		m.refreshRows()
		if msg.Err != nil {
			m.setError(msg.Err)
		}
		return m, m.reopenLikes()

	case SyncProgressMsg:
		m.syncProgress[msg.Type] = [2]int64{msg.Loaded, msg.Total}
		return m, m.obs.Wait()

	case CartChangedMsg:
		m.clampCursor()
		return m, m.obs.Wait()

	case PurchasesChangedMsg:
		return m, m.obs.Wait()

	case LikeChangedMsg:
		if msg.Change.Phase == like.PhaseRolledBack {
			m.setError(msg.Change.Err)
		}
		return m, m.obs.Wait()

	case PlaybackMsg:
		return m.handlePlayback(msg.Snapshot)

	case LikesLoadedMsg:
		if msg.Err != nil && !errors.Is(msg.Err, like.ErrStale) {
			m.setError(msg.Err)
		}
		return m, nil

	case LikeSettledMsg:
		if msg.Err != nil && !errors.Is(msg.Err, like.ErrStale) {
			m.setError(msg.Err)
		}
		return m, nil

	case DownloadProgressMsg:
		p := msg
		m.download = &p
		return m, m.obs.Wait()

	case DownloadDoneMsg:
		m.download = nil
		if msg.Err != nil {
			m.setError(msg.Err)
		} else {
			m.setStatus(fmt.Sprintf("Saved %s to %s", msg.Title, msg.Path))
		}
		return m, nil

	case RecommendationsMsg:
		m.recs = msg.Items
		return m, nil

	case SignedOutMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		m.setStatus("Signed out")
		return m, m.reopenLikes()

	case ErrMsg:
		m.setError(msg.Err)
		return m, nil
	}

	return m, nil
}

func (m Model) handlePlayback(snap playback.Snapshot) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.obs.Wait()}

	switch snap.State {
	case domain.PlaybackCapped:
		m.setStatus(fmt.Sprintf("Preview of %s ended. Buy it to hear the full track.", snap.Title))
	case domain.PlaybackIdle:
		if snap.Err != nil {
			m.setError(snap.Err)
		}
	case domain.PlaybackPlaying:
		if !m.waitingRecs {
			m.waitingRecs = true
			cmds = append(cmds, WaitRecommendationsCmd(m.sess))
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmLogout {
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.confirmLogout = false
			return m, SignOutCmd(m.sess, m.signOut)
		case key.Matches(msg, Keys.Deny):
			m.confirmLogout = false
		}
		return m, nil
	}

	if m.filtering {
		switch msg.Type {
		case tea.KeyEsc:
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.refreshRows()
			return m, m.hydrateVisible()
		case tea.KeyEnter:
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.refreshRows()
		return m, tea.Batch(cmd, m.hydrateVisible())
	}

	off := m.offset[m.tab]
	switch {
	case key.Matches(msg, Keys.Quit):
		m.sess.Playback.Shutdown()
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, Keys.NextTab):
		return m, m.switchTab((m.tab + 1) % tabCount)

	case key.Matches(msg, Keys.PrevTab):
		return m, m.switchTab((m.tab + tabCount - 1) % tabCount)

	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, Keys.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, Keys.PageDown):
		m.moveCursor(m.listHeight())
	case key.Matches(msg, Keys.Home):
		m.moveCursor(-m.rowCount())
	case key.Matches(msg, Keys.End):
		m.moveCursor(m.rowCount())

	case key.Matches(msg, Keys.Filter):
		if m.tab == TabCart {
			return m, nil
		}
		m.filtering = true
		return m, m.filter.Focus()

	case key.Matches(msg, Keys.Escape):
		m.status = ""
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.refreshRows()
			return m, m.hydrateVisible()
		}

	case key.Matches(msg, Keys.Play):
		return m, m.play()

	case key.Matches(msg, Keys.Pause):
		m.togglePause()

	case key.Matches(msg, Keys.Stop):
		if err := m.sess.Playback.Close(); err != nil {
			m.setError(err)
		}

	case key.Matches(msg, Keys.Like):
		return m, m.toggleLike()

	case key.Matches(msg, Keys.AddToCart):
		m.addToCart()

	case key.Matches(msg, Keys.Remove):
		m.removeFromCart()

	case key.Matches(msg, Keys.Download):
		return m, m.startDownload()

	case key.Matches(msg, Keys.Refresh):
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(RefreshCmd(m.sess), m.spinner.Tick)

	case key.Matches(msg, Keys.Logout):
		if m.sess.Identity().SignedIn() {
			m.confirmLogout = true
		}
	}
	if m.offset[m.tab] != off {
		return m, m.hydrateVisible()
	}
	return m, nil
}

// === Actions ===

func (m *Model) play() tea.Cmd {
	c, ok := m.selected()
	if !ok {
		return nil
	}
	if !c.IsPlayable() {
		m.setStatus("Events have no audio preview")
		return nil
	}
	return PlayCmd(m.sess, c)
}

func (m *Model) togglePause() {
	var err error
	switch m.sess.Playback.State().State {
	case domain.PlaybackPlaying:
		err = m.sess.Playback.Pause()
	case domain.PlaybackPaused:
		err = m.sess.Playback.Resume()
	default:
		return
	}
	if err != nil {
		m.setError(err)
	}
}

func (m *Model) toggleLike() tea.Cmd {
	if m.tab == TabCart || m.view == nil {
		return nil
	}
	c, ok := m.selected()
	if !ok {
		return nil
	}
	_, pending := m.sess.Likes.Toggle(context.Background(), m.view, c.ID)
	return WaitLikeCmd(pending, c.Title)
}

func (m *Model) addToCart() {
	if m.tab == TabCart {
		return
	}
	c, ok := m.selected()
	if !ok {
		return
	}
	if err := m.sess.AddToCart(c); err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("Added %s to your cart", c.Title))
}

func (m *Model) removeFromCart() {
	if m.tab != TabCart {
		return
	}
	items := m.sess.Cart.Items()
	if m.cursor[TabCart] >= len(items) {
		return
	}
	it := items[m.cursor[TabCart]]
	if err := m.sess.Cart.Remove(it.ContentID, it.ContentType); err != nil {
		m.setError(err)
		return
	}
	m.clampCursor()
	m.setStatus(fmt.Sprintf("Removed %s", it.Title))
}

func (m *Model) startDownload() tea.Cmd {
	if m.download != nil {
		m.setStatus("A download is already running")
		return nil
	}
	c, ok := m.selected()
	if !ok {
		return nil
	}
	// Refused before any transfer starts
	if !m.sess.Downloads.Entitled(c) {
		m.setError(domain.ErrNotEntitled)
		return nil
	}
	m.download = &DownloadProgressMsg{Key: c.Key(), Total: -1}
	m.setStatus(fmt.Sprintf("Downloading %s", c.Title))
	return tea.Batch(DownloadCmd(m.sess, m.obs, c), m.spinner.Tick)
}

// === Listing ===

func (m *Model) switchTab(t Tab) tea.Cmd {
	m.tab = t
	m.filtering = false
	m.filter.Blur()
	m.filter.SetValue("")
	m.refreshRows()
	if t == TabCart {
		return nil
	}
	return m.reopenLikes()
}

// reopenLikes retires the current like view and hydrates the visible tab
// under a fresh one, so late answers for the old listing are dropped
func (m *Model) reopenLikes() tea.Cmd {
	if m.view != nil {
		m.view.Close()
	}
	m.view = m.sess.Likes.Open()
	return m.hydrateVisible()
}

// hydrateVisible loads like state for the rows on screen. Rows scrolled into
// view later are loaded when the window moves.
func (m Model) hydrateVisible() tea.Cmd {
	if m.view == nil || m.tab == TabCart {
		return nil
	}
	return LoadLikesCmd(m.sess.Likes, m.view, m.visibleIDs())
}

func (m Model) visibleIDs() []string {
	start := min(m.offset[m.tab], len(m.results))
	end := min(start+m.listHeight(), len(m.results))
	ids := make([]string, 0, end-start)
	for _, r := range m.results[start:end] {
		ids = append(ids, r.Content.ID)
	}
	return ids
}

func (m *Model) rebuildIndexes() {
	for _, t := range []domain.ContentType{domain.ContentTypeSound, domain.ContentTypeEvent} {
		items, _ := m.sess.Catalog.Cached(t)
		m.indexes[t] = search.NewIndex(items)
	}
}

func (m *Model) refreshRows() {
	m.results = nil
	if m.tab != TabCart {
		if idx, ok := m.indexes[m.tab.contentType()]; ok {
			m.results = idx.Filter(m.filter.Value())
		}
	}
	m.clampCursor()
}

func (m Model) rowCount() int {
	if m.tab == TabCart {
		return m.sess.Cart.Len()
	}
	return len(m.results)
}

func (m Model) listHeight() int {
	h := m.Height - ChromeHeight
	if m.filtering || m.filter.Value() != "" {
		h--
	}
	if m.showHelp {
		h -= 4
	}
	return max(h, 1)
}

func (m *Model) moveCursor(delta int) {
	m.cursor[m.tab] += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := m.rowCount()
	c := m.cursor[m.tab]
	if c >= n {
		c = n - 1
	}
	if c < 0 {
		c = 0
	}
	m.cursor[m.tab] = c
	m.ensureVisible()
}

func (m *Model) ensureVisible() {
	h := m.listHeight()
	c, off := m.cursor[m.tab], m.offset[m.tab]
	if c < off {
		off = c
	}
	if c >= off+h {
		off = c - h + 1
	}
	m.offset[m.tab] = max(off, 0)
}

// selected returns the content under the cursor. On the cart tab the cart
// item is resolved against the catalog.
func (m Model) selected() (domain.Content, bool) {
	if m.tab == TabCart {
		items := m.sess.Cart.Items()
		if m.cursor[TabCart] >= len(items) {
			return domain.Content{}, false
		}
		it := items[m.cursor[TabCart]]
		if c, ok := m.sess.Catalog.Find(it.Key()); ok {
			return *c, true
		}
		return domain.Content{ID: it.ContentID, Type: it.ContentType, Title: it.Title, UnitPrice: it.UnitPrice}, true
	}
	if m.cursor[m.tab] >= len(m.results) {
		return domain.Content{}, false
	}
	return *m.results[m.cursor[m.tab]].Content, true
}

// === Status ===

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusIsErr = false
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	n := domain.Describe(err)
	m.status = n.Title + ". " + n.Remedy
	m.statusIsErr = true
}
