package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/five82/ticketbook/internal/backend"
	"github.com/five82/ticketbook/internal/cell"
	"github.com/five82/ticketbook/internal/config"
	"github.com/five82/ticketbook/internal/logging"
	"github.com/five82/ticketbook/internal/metrics"
	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/prefs"
	"github.com/five82/ticketbook/internal/retry"
	"github.com/five82/ticketbook/internal/state"
	"github.com/five82/ticketbook/internal/tokens"
	"github.com/five82/ticketbook/internal/ui"
)

// Options configure the ticketbook application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses ~/.config/ticketbook/prefs.toml
	PollEvery  time.Duration
	// LogLevel overrides the configured level when set.
	LogLevel  string
	LogOutput io.Writer
}

// App is the wired client.
type App struct {
	Config   config.Config
	State    *state.State
	Client   *backend.Client
	Tokens   tokens.Storage
	Retry    *retry.Controller
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	opts Options
	log  zerolog.Logger
}

// New loads configuration, opens token storage, builds the backend client
// and the state, and restores a stored session.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logging.Init(logging.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Timestamp: true,
		Output:    opts.LogOutput,
	})

	store, err := tokens.Open(tokens.Kind(cfg.TokenStore), cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	reg := prometheus.NewRegistry()
	a := &App{
		Config:   cfg,
		Tokens:   store,
		Metrics:  metrics.New(reg),
		Registry: reg,
		opts:     opts,
		log:      logging.Component("app"),
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL:      cfg.APIURL,
		Timeout:      cfg.RequestTimeout,
		HeavyTimeout: cfg.HeavyTimeout,
		Token: func() string {
			return cell.Get(a.State.Store, a.State.Session.AuthToken)
		},
		OnUnauthorized: func() {
			a.log.Info().Msg("session rejected by server, signing out")
			a.State.Session.Clear.Dispatch(context.Background(), a.State.Store, state.ClearSessionParams{})
		},
		Logger:  logging.Component("backend"),
		Metrics: a.Metrics,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init backend client: %w", err)
	}
	a.Client = client

	a.State = state.New(state.Deps{
		Service:  client,
		Tokens:   store,
		CacheTTL: cfg.CacheTTL,
		Logger:   logging.Component("state"),
		Metrics:  a.Metrics,
	})
	a.Retry = &retry.Controller{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryDelay,
		Logger:     logging.Component("retry"),
		Metrics:    a.Metrics,
	}

	a.restore(ctx)
	return a, nil
}

// restore adopts a stored session and loads its profile. Failures leave the
// client signed out.
func (a *App) restore(ctx context.Context) {
	res := a.State.Session.Restore.Dispatch(ctx, a.State.Store, state.RestoreParams{})
	restored, ok := res.Value()
	if !ok {
		a.log.Warn().Str("kind", string(res.Err().Kind)).Msg("restore session: " + res.Err().Message)
		return
	}
	if !restored {
		return
	}
	if err := a.State.Session.FetchProfile.Dispatch(ctx, a.State.Store, state.FetchProfileParams{}).Err(); err != nil {
		a.log.Warn().Str("kind", string(err.Kind)).Msg("load profile: " + err.Message)
	}
}

// Refresh reloads the signed-in user's tickets, friends and requests. force
// bypasses the cache. It reports whether every fetch succeeded; a guest has
// nothing to load.
func (a *App) Refresh(ctx context.Context, force bool) bool {
	st := a.State
	if !cell.Get(st.Store, st.Session.IsAuthenticated) {
		return true
	}
	ok := st.MyTickets.Fetch.Dispatch(ctx, st.Store, state.FetchMyTicketsParams{Force: force}).OK()
	if cell.Get(st.Store, st.Session.CurrentUserID) == model.GuestUserID {
		return ok
	}
	ok = st.Friends.Fetch.Dispatch(ctx, st.Store, state.FetchFriendsParams{Force: force}).OK() && ok
	ok = st.Friends.FetchReceived.Dispatch(ctx, st.Store, state.FetchReceivedParams{Force: force}).OK() && ok
	ok = st.Friends.FetchSent.Dispatch(ctx, st.Store, state.FetchSentParams{Force: force}).OK() && ok
	return ok
}

// Start launches the reachability probe and the poller. Coming back online
// triggers a forced refresh. The returned channel closes once both
// goroutines have stopped after ctx is done.
func (a *App) Start(ctx context.Context) <-chan struct{} {
	st := a.State
	probe := &retry.Probe{
		Interval: a.Config.ProbeInterval,
		Ping:     a.Client.Ping,
		Report: func(online bool) {
			st.Network.SetOnline.Dispatch(ctx, st.Store, state.SetOnlineParams{Online: online})
		},
		Logger:  logging.Component("probe"),
		Metrics: a.Metrics,
	}
	poller := &Poller{
		Interval: a.pollInterval(),
		Refresh:  a.Refresh,
		Logger:   logging.Component("poller"),
	}

	stopWatch := cell.Subscribe(st.Store, st.Network.Online, func(online bool) {
		if online {
			go a.Refresh(ctx, true)
		}
	})

	probeDone := probe.Start(ctx)
	pollDone := poller.Start(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-probeDone
		<-pollDone
		stopWatch()
	}()
	return done
}

func (a *App) pollInterval() time.Duration {
	if a.opts.PollEvery > 0 {
		return a.opts.PollEvery
	}
	return a.Config.CacheTTL
}

// Close releases the token storage.
func (a *App) Close() error {
	if err := a.Tokens.Close(); err != nil {
		return fmt.Errorf("close token store: %w", err)
	}
	return nil
}

// Browse runs the terminal view until the user quits or ctx is done.
func (a *App) Browse(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	p, err := prefs.Load(a.opts.PrefsPath)
	if err != nil {
		a.log.Warn().Err(err).Msg("load view preferences")
	}
	if status := model.TicketStatus(p.Status); status.Valid() {
		cell.Update(a.State.Store, a.State.MyTickets.Filter, func(f model.TicketFilter) model.TicketFilter {
			f.Status = status
			return f
		})
	}

	done := a.Start(ctx)
	err = ui.Run(ui.Options{
		Context:   ctx,
		State:     a.State,
		Refresh:   a.Refresh,
		Retry:     a.Retry,
		ThemeName: p.Theme,
		StartView: p.View,
		PrefsPath: a.opts.PrefsPath,
	})
	cancel()
	<-done
	if err != nil && parent.Err() == nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// Run boots ticketbook and shows the terminal view.
func Run(ctx context.Context, opts Options) error {
	a, err := New(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return a.Browse(ctx)
}
