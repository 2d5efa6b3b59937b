package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ticketbook/internal/model"
)

const dateLayout = "2006-01-02"

// renderMain renders the full screen.
func (m Model) renderMain() string {
	styles := m.theme.Styles()
	parts := []string{m.renderHeader(styles)}
	if banner := m.renderBanner(styles); banner != "" {
		parts = append(parts, banner)
	}
	body := m.renderTickets(styles)
	if m.view == ViewFriends {
		body = m.renderFriends(styles)
	}
	parts = append(parts, body, m.renderFooter(styles))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader(styles Styles) string {
	snap := m.snap
	user := snap.User
	if !snap.Authenticated {
		user = "guest"
	}
	link := styles.Online.Render("● online")
	if !snap.Online {
		link = styles.Offline.Render("● offline")
	}
	segments := []string{
		styles.Logo.Render("ticketbook"),
		user,
		link,
		fmt.Sprintf("tickets %d", snap.Total),
		fmt.Sprintf("friends %d", len(snap.Friends)),
	}
	if n := len(snap.Received); n > 0 {
		segments = append(segments, fmt.Sprintf("requests %d", n))
	}
	if snap.Loading {
		segments = append(segments, m.spinner.View()+" loading")
	}
	if m.notice != "" {
		segments = append(segments, m.notice)
	}
	return styles.Header.Width(m.width).Render(strings.Join(segments, "  "))
}

// renderBanner shows the last backend error with its affordances.
func (m Model) renderBanner(styles Styles) string {
	err := m.snap.Err
	if err == nil {
		return ""
	}
	text := fmt.Sprintf("%s: %s", err.Kind, err.Message)
	hints := []string{"x dismiss"}
	if retryable(err) {
		hints = append([]string{"R retry"}, hints...)
	}
	text += "  [" + strings.Join(hints, ", ") + "]"
	return styles.ErrorStyle(err.Kind).Width(m.width).Render(text)
}

func (m Model) renderTickets(styles Styles) string {
	snap := m.snap
	var b strings.Builder
	b.WriteString(styles.Accent.Render(m.filterLabel()))
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	if len(snap.Tickets) == 0 {
		msg := "No tickets yet."
		if !snap.Filter.IsZero() {
			msg = "No tickets match the filter."
		}
		b.WriteString(styles.MutedText.Render(msg))
		return styles.Panel.Width(m.panelWidth()).Render(b.String())
	}

	start, end := m.window(len(snap.Tickets))
	for i := start; i < end; i++ {
		line := m.ticketLine(styles, snap.Tickets[i])
		if i == m.selected {
			line = styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	st := snap.Stats
	b.WriteString(styles.MutedText.Render(fmt.Sprintf(
		"%d public, %d private, %d reviewed, %d this month, %d this year",
		st.Public, st.Private, st.WithReviews, st.ThisMonth, st.ThisYear)))
	return styles.Panel.Width(m.panelWidth()).Render(b.String())
}

func (m Model) ticketLine(styles Styles, t *model.Ticket) string {
	where := t.Venue
	if t.Artist != "" {
		where = t.Artist + " @ " + t.Venue
	}
	marks := ""
	if t.Review != nil {
		marks += " ✎"
	}
	if len(t.Images) > 0 {
		marks += " ▣"
	}
	if model.IsTempID(t.ID) {
		marks += " (saving)"
	}
	return fmt.Sprintf("%s %s %s  %s%s",
		t.PerformedAt.Format(dateLayout),
		styles.StatusStyle(t.Status).Render(strings.ToLower(string(t.Status))),
		t.Title,
		styles.MutedText.Render(where),
		marks,
	)
}

func (m Model) renderFriends(styles Styles) string {
	snap := m.snap
	var b strings.Builder
	label := "Friends"
	if m.friendQuery != "" {
		label += fmt.Sprintf(" matching %q", m.friendQuery)
	}
	b.WriteString(styles.Accent.Render(label))
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}

	row := 0
	for _, r := range snap.Received {
		line := fmt.Sprintf("→ %s (%s) wants to be friends", r.Nickname, r.FromUserID)
		if row == m.selected {
			line = styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		row++
	}
	if len(snap.Friends) == 0 {
		b.WriteString(styles.MutedText.Render("No friends yet."))
	}
	for _, f := range snap.Friends {
		line := fmt.Sprintf("%s  %s", f.Nickname, styles.MutedText.Render(f.UserID))
		if row == m.selected {
			line = styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		row++
	}
	if n := len(snap.Sent); n > 0 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("%d sent requests pending", n)))
	}
	return styles.Panel.Width(m.panelWidth()).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderFooter(styles Styles) string {
	return styles.Footer.Width(m.width).Render(m.help.View(m.keys))
}

// filterLabel describes the active ticket filter.
func (m Model) filterLabel() string {
	f := m.snap.Filter
	parts := []string{"My tickets"}
	if f.Status != "" {
		parts = append(parts, strings.ToLower(string(f.Status)))
	}
	if f.Genre != "" {
		parts = append(parts, f.Genre)
	}
	if f.SearchText != "" {
		parts = append(parts, fmt.Sprintf("%q", f.SearchText))
	}
	if len(m.snap.Tickets) != m.snap.Total {
		parts = append(parts, fmt.Sprintf("%d of %d", len(m.snap.Tickets), m.snap.Total))
	}
	return strings.Join(parts, " · ")
}

func (m Model) panelWidth() int {
	// Border and padding take four columns.
	return max(m.width-4, 20)
}

// window returns the visible row range keeping the selection on screen.
func (m Model) window(n int) (start, end int) {
	// Header, banner, filter line, stats line, borders and footer.
	visible := max(m.height-8, 3)
	if n <= visible {
		return 0, n
	}
	start = m.selected - visible/2
	start = max(start, 0)
	start = min(start, n-visible)
	return start, start + visible
}
