package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/eliote-geeks/reveilartist/internal/search"
	"github.com/eliote-geeks/reveilartist/internal/tui/styles"
)

// Column widths
const (
	colHeart  = 7
	colPrice  = 12
	colBadge  = 8
	colDetail = 16
)

// View renders the whole screen
func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	if m.confirmLogout {
		return m.renderConfirm()
	}

	sections := []string{m.renderTabs()}
	if m.filtering || m.filter.Value() != "" {
		sections = append(sections, m.filter.View())
	}
	sections = append(sections,
		m.renderBody(),
		m.renderPlayerBar(),
		m.renderStatus(),
		m.help.View(Keys),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTabs() string {
	sounds, _ := m.sess.Catalog.Cached(domain.ContentTypeSound)
	events, _ := m.sess.Catalog.Cached(domain.ContentTypeEvent)

	labels := [tabCount]string{
		fmt.Sprintf("Sounds %d", len(sounds)),
		fmt.Sprintf("Events %d", len(events)),
		fmt.Sprintf("Cart %d", m.sess.Cart.Len()),
	}

	tabs := make([]string, 0, len(labels)+1)
	for i, l := range labels {
		if Tab(i) == m.tab {
			tabs = append(tabs, styles.ActiveTabStyle.Render(l))
		} else {
			tabs = append(tabs, styles.TabStyle.Render(l))
		}
	}

	id := m.sess.Identity()
	who := "browsing anonymously"
	if id.SignedIn() {
		who = "signed in as " + id.Username
	}
	tabs = append(tabs, styles.DimStyle.Render("  "+who))
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderBody() string {
	h := m.listHeight()
	var body string
	switch {
	case m.loading && m.rowCount() == 0:
		body = m.renderLoading()
	case m.tab == TabCart:
		body = m.renderCart(h)
	default:
		body = m.renderListing(h)
	}
	return lipgloss.NewStyle().Height(h).MaxHeight(h).Render(body)
}

func (m Model) renderLoading() string {
	var b strings.Builder
	b.WriteString(m.spinner.View() + " Loading catalog")
	for _, t := range []domain.ContentType{domain.ContentTypeSound, domain.ContentTypeEvent} {
		if p, ok := m.syncProgress[t]; ok && p[1] > 0 {
			fmt.Fprintf(&b, "\n  %ss: %d / %d", t, p[0], p[1])
		}
	}
	return b.String()
}

func (m Model) renderListing(h int) string {
	if len(m.results) == 0 {
		if m.filter.Value() != "" {
			return styles.DimStyle.Render("  No matches")
		}
		return styles.DimStyle.Render("  Nothing here yet")
	}

	start := m.offset[m.tab]
	end := min(start+h, len(m.results))
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderContentRow(m.results[i], i == m.cursor[m.tab]))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderContentRow(r search.Result, selected bool) string {
	c := r.Content
	base := styles.RowStyle
	if selected {
		base = styles.SelectedRowStyle
	}

	titleW := max(m.Width-colHeart-colPrice-colBadge-colDetail-4, 10)

	title := styles.Truncate(c.Title, titleW)
	// Offsets past the truncation point are dropped with the text
	matched := make([]int, 0, len(r.MatchedIndexes))
	for _, i := range r.MatchedIndexes {
		if i < len(title) {
			matched = append(matched, i)
		}
	}
	titleCell := styles.Highlight(title, matched, base) + base.Render(strings.Repeat(" ", max(titleW-lipgloss.Width(title), 0)))

	detail := c.Artist
	if c.Type == domain.ContentTypeSound && c.Duration > 0 {
		detail = c.FormattedDuration() + " " + c.Artist
	} else if !c.StartsAt.IsZero() {
		detail = c.StartsAt.Local().Format("Jan 2 15:04")
	}

	cursor := "  "
	if selected {
		cursor = styles.AccentStyle.Render("> ")
	}

	return cursor +
		m.renderHeart(c) + " " +
		titleCell + " " +
		base.Render(styles.Pad(styles.Truncate(detail, colDetail), colDetail)) + " " +
		base.Render(styles.Pad(c.FormattedPrice(), colPrice)) +
		m.renderBadge(*c)
}

func (m Model) renderHeart(c *domain.Content) string {
	st, ok := m.sess.Likes.Status(c.ID)
	if !ok {
		st.LikeCount = c.LikeCount
	}
	heart := styles.UnlikedHeart
	switch {
	case st.Pending:
		heart = styles.PendingHeart
	case st.Liked:
		heart = styles.LikedHeart
	}
	return heart + " " + styles.Pad(humanize.Comma(int64(st.LikeCount)), colHeart-2)
}

func (m Model) renderBadge(c domain.Content) string {
	switch {
	case c.IsFree():
		return styles.FreeBadge
	case m.sess.Purchases.Has(c.ID, c.Type):
		return styles.OwnedBadge
	case m.sess.Cart.Contains(c.ID, c.Type):
		return styles.InCartBadge
	}
	return ""
}

func (m Model) renderCart(h int) string {
	items := m.sess.Cart.Items()
	if len(items) == 0 {
		return styles.DimStyle.Render("  Your cart is empty. Press a on a sound or event to add it.")
	}

	currency := ""
	for _, it := range items {
		if cur := it.Metadata["currency"]; cur != "" {
			currency = cur
			break
		}
	}

	titleW := max(m.Width-colPrice*2-10, 10)
	start := m.offset[TabCart]
	end := min(start+h-1, len(items))

	rows := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		it := items[i]
		base := styles.RowStyle
		cursor := "  "
		if i == m.cursor[TabCart] {
			base = styles.SelectedRowStyle
			cursor = styles.AccentStyle.Render("> ")
		}
		rows = append(rows, cursor+base.Render(
			styles.Pad(styles.Truncate(it.Title, titleW), titleW)+" "+
				styles.Pad(string(it.ContentType), 6)+" "+
				styles.Pad(fmt.Sprintf("x%d", it.Quantity), 4)+" "+
				styles.Pad(domain.FormatPrice(it.Subtotal(), currency), colPrice),
		))
	}
	rows = append(rows, styles.TitleStyle.Render(
		"  Total "+domain.FormatPrice(m.sess.Cart.Total(), currency),
	))
	return strings.Join(rows, "\n")
}

func (m Model) renderPlayerBar() string {
	snap := m.sess.Playback.State()
	width := max(m.Width-2, 10)

	if snap.TrackID == "" {
		line := styles.DimStyle.Render("Nothing playing")
		if len(m.recs) > 0 {
			line += styles.DimStyle.Render("  |  Up next: " + m.recs[0].Title)
		}
		return styles.PlayerBarStyle.Width(width).Render(line)
	}

	state := string(snap.State)
	if snap.State == domain.PlaybackLoading {
		state = m.spinner.View() + " loading"
	}

	var duration float64
	if c, ok := m.sess.Catalog.Find(domain.Key(snap.TrackID, domain.ContentTypeSound)); ok {
		duration = c.Duration.Seconds()
	}

	label := fmt.Sprintf("%s  %s  %s", state, styles.Truncate(snap.Title, 30), formatSeconds(snap.PositionSeconds))
	if snap.Capped() {
		label += styles.AccentStyle.Render(fmt.Sprintf("  preview %s", formatSeconds(*snap.CapSeconds)))
	}

	barW := width - lipgloss.Width(label) - 2
	bar := ""
	if duration > 0 && barW >= 3 {
		capAt := 0.0
		if snap.Capped() {
			capAt = *snap.CapSeconds / duration
		}
		bar = "  " + styles.RenderProgressBar(snap.PositionSeconds/duration, capAt, barW)
	}
	return styles.PlayerBarStyle.Width(width).Render(label + bar)
}

func (m Model) renderStatus() string {
	if m.download != nil {
		text := m.spinner.View() + " downloading " + humanize.Bytes(uint64(max(m.download.Loaded, 0)))
		if m.download.Total > 0 {
			text += " of " + humanize.Bytes(uint64(m.download.Total))
		}
		return styles.StatusStyle.Render(text)
	}
	if m.status == "" {
		return styles.StatusStyle.Render("")
	}
	if m.statusIsErr {
		return styles.StatusStyle.Render(styles.ErrorStyle.Render(m.status))
	}
	return styles.StatusStyle.Render(styles.SuccessStyle.Render(m.status))
}

func (m Model) renderConfirm() string {
	box := styles.ModalStyle.Render(
		styles.TitleStyle.Render("Sign out?") + "\n\n" +
			"Your cart stays saved for this account.\n\n" +
			styles.DimStyle.Render("y to confirm, n to cancel"),
	)
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, box)
}

func formatSeconds(s float64) string {
	secs := int(s)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
