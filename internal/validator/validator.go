// Package validator runs the check registries against per-symbol data and
// owns the notification snooze state.
package validator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pyth-observer/internal/checks"
	"pyth-observer/internal/coingecko"
	"pyth-observer/internal/notify"
	"pyth-observer/internal/publishers"
	"pyth-observer/internal/pyth"
)

// Options configure a per-symbol Validator. The check registries are plain
// slices assembled at startup and injected here; nothing is registered at
// runtime.
type Options struct {
	ComponentChecks []checks.ComponentCheck
	AccountChecks   []checks.AccountCheck
	Publishers      *publishers.Directory
	// PublisherKey restricts component checks to one publisher when set.
	PublisherKey string
	IncludeNoisy bool
	Logger       zerolog.Logger
}

// Validator is the per-symbol orchestrator. One instance exists per symbol
// for the process lifetime; the polling loop owns the map of them.
type Validator struct {
	symbol          string
	componentChecks []checks.ComponentCheck
	accountChecks   []checks.AccountCheck
	publishers      *publishers.Directory
	scopeKey        string
	includeNoisy    bool
	logger          zerolog.Logger

	// lastNotified tracks when each unique alert id was last dispatched.
	// Mutated only by Notify; not persisted across restarts.
	lastNotified map[string]time.Time
	now          func() time.Time
}

// New constructs a Validator for one symbol.
func New(symbol string, opts Options) *Validator {
	return &Validator{
		symbol:          symbol,
		componentChecks: opts.ComponentChecks,
		accountChecks:   opts.AccountChecks,
		publishers:      opts.Publishers,
		scopeKey:        opts.PublisherKey,
		includeNoisy:    opts.IncludeNoisy,
		logger:          opts.Logger.With().Str("component", "validator").Str("symbol", symbol).Logger(),
		lastNotified:    make(map[string]time.Time),
		now:             time.Now,
	}
}

// CheckAccount runs every account check against the current account state.
func (v *Validator) CheckAccount(account *pyth.PriceAccount, product pyth.Product, reference *coingecko.Price) []checks.ValidationEvent {
	var events []checks.ValidationEvent
	ctx := checks.AccountContext{
		Symbol:    v.symbol,
		AssetType: product.AssetType(),
		Base:      product.Base(),
		Account:   account,
		Reference: reference,
	}

	for _, check := range v.accountChecks {
		if check.Noisy() && !v.includeNoisy {
			continue
		}
		finding := check.Evaluate(ctx)
		if finding == nil {
			continue
		}
		events = append(events, checks.ValidationEvent{
			Code:      check.Code(),
			Symbol:    v.symbol,
			Title:     finding.Title,
			Details:   finding.Details,
			Noisy:     check.Noisy(),
			CreatedAt: v.now(),
		})
	}
	return events
}

// CheckComponents runs every component check once per publisher in the view.
func (v *Validator) CheckComponents(view *pyth.PriceView) []checks.ValidationEvent {
	var events []checks.ValidationEvent
	for key, latest := range view.Quoters {
		if v.scopeKey != "" && key != v.scopeKey {
			continue
		}
		name := v.publishers.LookupName(key)
		ctx := checks.ComponentContext{
			View:          view,
			PublisherKey:  key,
			PublisherName: name,
			Latest:        latest,
			LastAggregate: view.QuoterAggregates[key],
		}

		for _, check := range v.componentChecks {
			if check.Noisy() && !v.includeNoisy {
				continue
			}
			finding := check.Evaluate(ctx)
			if finding == nil {
				continue
			}
			events = append(events, checks.ValidationEvent{
				Code:          check.Code(),
				Symbol:        v.symbol,
				PublisherKey:  key,
				PublisherName: name,
				Title:         finding.Title,
				Details:       finding.Details,
				Noisy:         check.Noisy(),
				CreatedAt:     v.now(),
			})
		}
	}
	return events
}

// Notify dispatches events to every notifier, skipping any unique id notified
// within the snooze window. The snooze timestamp updates once dispatch is
// attempted even if every notifier fails, so a dead transport cannot cause an
// alert storm. Returns how many events were dispatched and how many snoozed.
func (v *Validator) Notify(ctx context.Context, events []checks.ValidationEvent, notifiers []notify.Notifier, snooze time.Duration) (sent, snoozed int) {
	for _, event := range events {
		id := event.UniqueID()
		now := v.now()

		if snooze > 0 {
			if last, ok := v.lastNotified[id]; ok && now.Sub(last) < snooze {
				snoozed++
				v.logger.Debug().Str("unique_id", id).Time("last_notified", last).Msg("alert snoozed")
				continue
			}
		}

		for _, n := range notifiers {
			if err := n.Send(ctx, event.Title, event.Details); err != nil {
				v.logger.Error().Err(err).Str("unique_id", id).Msg("notifier dispatch failed")
			}
		}
		v.lastNotified[id] = now
		sent++
	}
	return sent, snoozed
}
