package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pyth-observer/internal/calendar"
	"pyth-observer/internal/checks"
	"pyth-observer/internal/coingecko"
	"pyth-observer/internal/config"
	"pyth-observer/internal/metrics"
	"pyth-observer/internal/notify"
	"pyth-observer/internal/observer"
	"pyth-observer/internal/publishers"
	"pyth-observer/internal/pyth"
	"pyth-observer/internal/scheduler"
	"pyth-observer/internal/validator"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

type components struct {
	observer  *observer.Observer
	agent     *pyth.Agent
	refresher *coingecko.Refresher
	metrics   *metrics.Metrics
}

func (a *App) build(notifiers []notify.Notifier) (*components, error) {
	cfg := a.Config

	mapping, err := coingecko.LoadMapping(cfg.CoinGecko.MappingPath)
	if err != nil {
		return nil, err
	}

	filter, err := validator.NewIgnoreFilter(cfg.Observer.Ignore)
	if err != nil {
		return nil, err
	}

	if notifiers == nil {
		notifiers, err = notify.FromConfig(cfg.Notifications, a.Logger)
		if err != nil {
			return nil, err
		}
	}

	directory := publishers.Load(cfg.Publishers.Path, cfg.Pyth.Network, a.Logger)
	cal := calendar.New()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	cache := coingecko.NewCache()
	client := coingecko.NewClient(coingecko.ClientOptions{
		BaseURL:           cfg.CoinGecko.BaseURL,
		RequestTimeout:    cfg.CoinGecko.RequestTimeout,
		RequestsPerSecond: cfg.CoinGecko.RequestsPerSecond,
		Burst:             cfg.CoinGecko.Burst,
		UserAgent:         cfg.CoinGecko.UserAgent,
	}, a.Logger)
	refresher := coingecko.NewRefresher(client, mapping, cache, a.Logger)

	agent := pyth.NewAgent(pyth.AgentOptions{
		Endpoint:          cfg.Pyth.Endpoint,
		RequestTimeout:    cfg.Pyth.RequestTimeout,
		RequestsPerSecond: cfg.Pyth.RequestsPerSecond,
		Burst:             cfg.Pyth.Burst,
	}, a.Logger)

	obs := observer.New(observer.Options{
		Client:          agent,
		ComponentChecks: checks.DefaultComponentChecks(cfg.Checks, cal),
		AccountChecks:   checks.DefaultAccountChecks(cfg.Checks, cal, mapping.MarketID),
		Publishers:      directory,
		Reference:       cache,
		Mapping:         mapping,
		Filter:          filter,
		Notifiers:       notifiers,
		Metrics:         m,
		Logger:          a.Logger,
		PollInterval:    cfg.Observer.PollInterval,
		RetryBackoff:    cfg.Observer.RetryBackoff,
		Snooze:          cfg.Observer.Snooze,
		IncludeNoisy:    cfg.Observer.IncludeNoisy,
		PublisherKey:    cfg.Observer.PublisherKey,
	})

	return &components{observer: obs, agent: agent, refresher: refresher, metrics: m}, nil
}

// Run executes the long-running monitoring loops.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	comps, err := a.build(nil)
	if err != nil {
		return err
	}
	defer comps.agent.Close()

	if comps.metrics != nil {
		go func() {
			if err := comps.metrics.Serve(ctx, a.Config.Metrics.ListenAddr, a.Logger); err != nil {
				a.Logger.Error().Err(err).Msg("metrics exporter stopped")
			}
		}()
	}

	refLoop := scheduler.New(scheduler.Options{
		Interval:       a.Config.CoinGecko.RefreshInterval,
		RunImmediately: true,
	}, a.Logger)
	go func() {
		err := refLoop.Run(ctx, func(ctx context.Context, _ time.Time) error {
			return comps.refresher.Refresh(ctx)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error().Err(err).Msg("reference price loop stopped")
		}
	}()

	a.Logger.Info().
		Str("network", a.Config.Pyth.Network).
		Str("endpoint", a.Config.Pyth.Endpoint).
		Msg("starting pyth-observer")

	err = comps.observer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("observer terminated with error")
		return err
	}

	a.Logger.Info().Msg("observer stopped")
	return nil
}

// CheckOnce performs a single evaluation pass, dispatching to the log sink
// only, and exits. Used by the check command for smoke testing a deployment.
func (a *App) CheckOnce(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	comps, err := a.build([]notify.Notifier{notify.NewLogNotifier(a.Logger)})
	if err != nil {
		return err
	}
	defer comps.agent.Close()

	if err := comps.refresher.Refresh(ctx); err != nil {
		return err
	}
	return comps.observer.Cycle(ctx)
}
