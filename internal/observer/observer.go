// Package observer runs the top-level polling loop: refresh account data,
// rebuild per-symbol views, evaluate checks, and dispatch surviving alerts.
package observer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pyth-observer/internal/checks"
	"pyth-observer/internal/coingecko"
	"pyth-observer/internal/metrics"
	"pyth-observer/internal/notify"
	"pyth-observer/internal/publishers"
	"pyth-observer/internal/pyth"
	"pyth-observer/internal/validator"
)

// Options wire the observer's collaborators and loop tuning.
type Options struct {
	Client          pyth.Client
	ComponentChecks []checks.ComponentCheck
	AccountChecks   []checks.AccountCheck
	Publishers      *publishers.Directory
	Reference       *coingecko.Cache
	Mapping         *coingecko.Mapping
	Filter          *validator.IgnoreFilter
	Notifiers       []notify.Notifier
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger

	PollInterval time.Duration
	RetryBackoff time.Duration
	Snooze       time.Duration
	IncludeNoisy bool
	// PublisherKey restricts component checks to a single publisher.
	PublisherKey string
}

// Observer is the polling loop. It owns the symbol → validator map; the map
// is touched only from the loop goroutine and needs no locking.
type Observer struct {
	opts       Options
	validators map[string]*validator.Validator
	logger     zerolog.Logger
}

// New constructs an Observer.
func New(opts Options) *Observer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 400 * time.Millisecond
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 400 * time.Millisecond
	}
	return &Observer{
		opts:       opts,
		validators: make(map[string]*validator.Validator),
		logger:     opts.Logger.With().Str("component", "observer").Logger(),
	}
}

// Run polls until ctx is cancelled. Transient fetch failures are logged and
// retried after a short pause; they never terminate the loop.
func (o *Observer) Run(ctx context.Context) error {
	o.logger.Info().Msg("starting polling loop")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := o.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if pyth.IsTransient(err) {
				o.opts.Metrics.IncTransientFailure()
				o.logger.Error().Err(err).Msg("transient failure; retrying cycle")
				if err := sleep(ctx, o.opts.RetryBackoff); err != nil {
					return err
				}
				continue
			}
			return err
		}

		o.opts.Metrics.IncCycle()
		if err := sleep(ctx, o.opts.PollInterval); err != nil {
			return err
		}
	}
}

// Cycle performs one refresh-and-iterate pass over every product.
func (o *Observer) Cycle(ctx context.Context) error {
	if err := o.opts.Client.RefreshAll(ctx); err != nil {
		return err
	}

	products, err := o.opts.Client.ListProducts(ctx)
	if err != nil {
		return err
	}

	for _, product := range products {
		// Stop cleanly between products; never dispatch a partial batch for
		// the in-flight one.
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.observeProduct(ctx, product); err != nil {
			return err
		}
	}
	return nil
}

func (o *Observer) observeProduct(ctx context.Context, product pyth.Product) error {
	symbol := product.Symbol
	v, ok := o.validators[symbol]
	if !ok {
		v = validator.New(symbol, validator.Options{
			ComponentChecks: o.opts.ComponentChecks,
			AccountChecks:   o.opts.AccountChecks,
			Publishers:      o.opts.Publishers,
			PublisherKey:    o.opts.PublisherKey,
			IncludeNoisy:    o.opts.IncludeNoisy,
			Logger:          o.opts.Logger,
		})
		o.validators[symbol] = v
	}

	var reference *coingecko.Price
	if o.opts.Reference != nil {
		if price, found := o.opts.Reference.Get(product.Base()); found {
			reference = &price
		}
	}

	accounts, err := o.opts.Client.GetPrices(ctx, product)
	if err != nil {
		return err
	}

	var events []checks.ValidationEvent
	for _, account := range accounts {
		view := pyth.NewPriceView(product, account)

		events = append(events, v.CheckAccount(account, product, reference)...)
		events = append(events, v.CheckComponents(view)...)

		for key, quoter := range view.Quoters {
			o.opts.Metrics.SetPrice(symbol, key, string(quoter.Status), quoter.Price.InexactFloat64())
		}
	}

	filtered := o.opts.Filter.Apply(events)
	o.recordErrorMetrics(symbol, filtered)

	if err := ctx.Err(); err != nil {
		return err
	}

	sent, snoozed := v.Notify(ctx, filtered, o.opts.Notifiers, o.opts.Snooze)
	o.opts.Metrics.AddNotifications(sent, snoozed)

	o.trackReference(product, reference)
	return nil
}

// recordErrorMetrics emits error gauges only for keys that actually have
// errors this cycle.
func (o *Observer) recordErrorMetrics(symbol string, events []checks.ValidationEvent) {
	for _, event := range events {
		if event.PublisherScoped() {
			o.opts.Metrics.SetPublisherError(symbol, event.PublisherKey, event.Code)
		} else {
			o.opts.Metrics.SetAccountError(symbol, event.Code)
		}
	}
}

// trackReference keeps the "last seen" bookkeeping for tracked base assets
// and surfaces reference staleness.
func (o *Observer) trackReference(product pyth.Product, reference *coingecko.Price) {
	if o.opts.Reference == nil || o.opts.Mapping == nil {
		return
	}
	base := product.Base()
	if !o.opts.Mapping.Tracked(base) {
		return
	}

	o.opts.Reference.Touch(base, time.Now())
	if reference != nil {
		age := time.Since(reference.LastUpdatedAt)
		o.opts.Metrics.SetReferenceAge(base, age)
		if age > time.Minute {
			o.logger.Debug().Str("base", base).Dur("age", age).Msg("reference price is stale")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
