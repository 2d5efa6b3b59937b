package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/logging"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/prefs"
	"github.com/five82/ticketbook/internal/result"
	"github.com/five82/ticketbook/internal/retry"
	"github.com/five82/ticketbook/internal/state"
)

// View is the active pane.
type View int

const (
	ViewTickets View = iota
	ViewFriends
)

func (v View) String() string {
	if v == ViewFriends {
		return "friends"
	}
	return "tickets"
}

// Options configures the UI.
type Options struct {
	Context context.Context
	State   *state.State
	// Refresh reloads the signed-in user's data. force bypasses the cache.
	Refresh   func(ctx context.Context, force bool) bool
	Retry     *retry.Controller
	PollTick  time.Duration
	ThemeName string
	// StartView is "tickets" or "friends".
	StartView string
	PrefsPath string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx       context.Context
	st        *state.State
	refresh   func(ctx context.Context, force bool) bool
	retry     *retry.Controller
	pollTick  time.Duration
	prefsPath string

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	search  textinput.Model

	theme     Theme
	view      View
	width     int
	height    int
	ready     bool
	searching bool
	retrying  bool

	friendQuery string
	selected    int
	snap        snapshot
	notice      string

	changes chan struct{}
	subs    *subscriptions
}

// subscriptions holds the cancel funcs of the store watchers. It is shared by
// every copy of the Model.
type subscriptions struct {
	cancels []func()
}

func (s *subscriptions) stop() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

// New creates the model and starts watching the store.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}
	refresh := opts.Refresh
	if refresh == nil {
		refresh = func(context.Context, bool) bool { return true }
	}
	rc := opts.Retry
	if rc == nil {
		rc = &retry.Controller{}
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	input := textinput.New()
	input.Placeholder = "title, artist or venue"
	input.CharLimit = 100

	m := Model{
		ctx:       ctx,
		st:        opts.State,
		refresh:   refresh,
		retry:     rc,
		pollTick:  pollTick,
		prefsPath: prefsPath,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		search:    input,
		theme:     GetTheme(opts.ThemeName),
		changes:   make(chan struct{}, 1),
		subs:      &subscriptions{},
	}
	if opts.StartView == ViewFriends.String() {
		m.view = ViewFriends
	}
	m.watch()
	m.snap = readSnapshot(m.st, m.friendQuery)
	return m
}

// watch subscribes to the cells the view renders. Each change leaves a
// single pending signal on m.changes.
func (m Model) watch() {
	signal := func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	}
	st := m.st
	m.subs.cancels = append(m.subs.cancels,
		cell.Subscribe(st.Store, st.MyTickets.Filtered, func([]*model.Ticket) { signal() }),
		cell.Subscribe(st.Store, st.Friends.List, func([]*model.Friend) { signal() }),
		cell.Subscribe(st.Store, st.Friends.Received, func([]*model.FriendRequest) { signal() }),
		cell.Subscribe(st.Store, st.Network.GlobalLoading, func(bool) { signal() }),
		cell.Subscribe(st.Store, st.Network.Online, func(bool) { signal() }),
		cell.Subscribe(st.Store, st.Network.GlobalError, func(*result.AppError) { signal() }),
		cell.Subscribe(st.Store, st.Session.CurrentUserID, func(string) { signal() }),
	)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.spinner.Tick,
		tickCmd(m.pollTick),
		waitForChange(m.changes),
		m.refreshCmd(false),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case changedMsg:
		m.reload()
		return m, waitForChange(m.changes)

	case tickMsg:
		// Time-based views such as this month's count move without writes.
		m.reload()
		return m, tickCmd(m.pollTick)

	case refreshedMsg:
		if msg.retried {
			m.retrying = false
		}
		switch {
		case msg.ok && msg.retried:
			m.notice = "retry succeeded"
		case !msg.ok && msg.retried:
			m.notice = "retries exhausted"
		default:
			m.notice = ""
		}
		m.reload()
		return m, nil
	}
	return m, nil
}

func (m *Model) reload() {
	m.snap = readSnapshot(m.st, m.friendQuery)
	if rows := m.snap.rows(m.view); m.selected >= rows {
		m.selected = max(rows-1, 0)
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.subs.stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.view == ViewTickets {
			m.view = ViewFriends
		} else {
			m.view = ViewTickets
		}
		m.selected = 0
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < m.snap.rows(m.view)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.selected = 0
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.selected = max(m.snap.rows(m.view)-1, 0)
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd(true)

	case key.Matches(msg, m.keys.Retry):
		if m.retrying {
			return m, nil
		}
		m.retrying = true
		m.notice = "retrying"
		return m, m.retryCmd()

	case key.Matches(msg, m.keys.Dismiss):
		m.st.Network.DismissError.Dispatch(m.ctx, m.st.Store, state.DismissErrorParams{})
		m.notice = ""
		return m, nil

	case key.Matches(msg, m.keys.CycleFilter):
		cell.Update(m.st.Store, m.st.MyTickets.Filter, func(f model.TicketFilter) model.TicketFilter {
			f.Status = nextStatus(f.Status)
			return f
		})
		m.selected = 0
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.ClearFilters):
		cell.Reset(m.st.Store, m.st.MyTickets.Filter)
		m.friendQuery = ""
		m.search.SetValue("")
		m.selected = 0
		m.reload()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.currentQuery())
		cmd := m.search.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.searching = false
		m.search.Blur()
		m.applyQuery(m.search.Value())
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.searching = false
		m.search.Blur()
		return m, nil
	case msg.String() == "ctrl+c":
		m.subs.stop()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) currentQuery() string {
	if m.view == ViewFriends {
		return m.friendQuery
	}
	return m.snap.Filter.SearchText
}

func (m *Model) applyQuery(q string) {
	m.selected = 0
	if m.view == ViewFriends {
		m.friendQuery = q
		m.reload()
		return
	}
	cell.Update(m.st.Store, m.st.MyTickets.Filter, func(f model.TicketFilter) model.TicketFilter {
		f.SearchText = q
		return f
	})
	m.reload()
}

func (m Model) savePrefs() {
	p := prefs.Prefs{
		Theme:  m.theme.Name,
		View:   m.view.String(),
		Status: string(cell.Get(m.st.Store, m.st.MyTickets.Filter).Status),
	}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		logging.Warn().Err(err).Msg("save view preferences")
	}
}

// nextStatus cycles all, public, private.
func nextStatus(s model.TicketStatus) model.TicketStatus {
	switch s {
	case "":
		return model.StatusPublic
	case model.StatusPublic:
		return model.StatusPrivate
	default:
		return ""
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.renderMain()
}

// Messages

type tickMsg time.Time

type changedMsg struct{}

type refreshedMsg struct {
	ok      bool
	retried bool
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func (m Model) refreshCmd(force bool) tea.Cmd {
	ctx, refresh := m.ctx, m.refresh
	return func() tea.Msg {
		return refreshedMsg{ok: refresh(ctx, force)}
	}
}

// retryCmd re-runs a forced refresh on the retry schedule.
func (m Model) retryCmd() tea.Cmd {
	ctx, refresh, rc := m.ctx, m.refresh, m.retry
	return func() tea.Msg {
		ok := rc.Retry(ctx, 0, func(ctx context.Context) bool { return refresh(ctx, true) })
		return refreshedMsg{ok: ok, retried: true}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is done.
func Run(opts Options) error {
	m := New(opts)
	defer m.subs.stop()
	teaOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		teaOpts = append(teaOpts, tea.WithContext(opts.Context))
	}
	_, err := tea.NewProgram(m, teaOpts...).Run()
	return err
}
