// Package checks holds the feed-health invariants. Each check is a pure
// function of its context: evaluating the same view twice yields the same
// result, and there is no shared state between checks, so they are safe to
// run concurrently across symbols.
package checks

import (
	"time"

	"pyth-observer/internal/calendar"
	"pyth-observer/internal/coingecko"
	"pyth-observer/internal/pyth"
)

// Finding is returned by a check whose invariant is violated. A nil Finding
// means healthy.
type Finding struct {
	Title   string
	Details []string
}

// ComponentContext is the view a component check evaluates: one publisher
// within one symbol.
type ComponentContext struct {
	View          *pyth.PriceView
	PublisherKey  string
	PublisherName string
	// Latest is the publisher's most recent submission.
	Latest pyth.PriceInfo
	// LastAggregate is the publisher snapshot last included in the aggregate.
	LastAggregate pyth.PriceInfo
}

// AccountContext is the view an account check evaluates: the symbol's
// aggregate state for one cycle.
type AccountContext struct {
	Symbol    string
	AssetType string
	Base      string
	Account   *pyth.PriceAccount
	// Reference is the externally sourced price, nil when unavailable.
	Reference *coingecko.Price
}

// ComponentCheck validates a single publisher's contribution.
type ComponentCheck interface {
	Code() string
	Noisy() bool
	Evaluate(ctx ComponentContext) *Finding
}

// AccountCheck validates the symbol's aggregate state.
type AccountCheck interface {
	Code() string
	Noisy() bool
	Evaluate(ctx AccountContext) *Finding
}

// Config carries the tunable thresholds. Zero values fall back to defaults.
type Config struct {
	PriceDeviationPct             float64 `mapstructure:"price_deviation_pct"`
	ImprobableConfidenceIntervals float64 `mapstructure:"improbable_confidence_intervals"`
	StopPublishingMinSlots        uint64  `mapstructure:"stop_publishing_min_slots"`
	StopPublishingMaxSlots        uint64  `mapstructure:"stop_publishing_max_slots"`
	MaxSlotDistance               uint64  `mapstructure:"max_slot_distance"`
	TwapVsAggregatePct            float64 `mapstructure:"twap_vs_aggregate_pct"`
	CoinGeckoDeviationPct         float64 `mapstructure:"coingecko_deviation_pct"`
	ComingSoonMinPublishers       int     `mapstructure:"coming_soon_min_publishers"`
}

// WithDefaults fills unset thresholds with their documented defaults.
func (c Config) WithDefaults() Config {
	if c.PriceDeviationPct <= 0 {
		c.PriceDeviationPct = 6
	}
	if c.ImprobableConfidenceIntervals <= 0 {
		c.ImprobableConfidenceIntervals = 20
	}
	if c.StopPublishingMinSlots == 0 {
		c.StopPublishingMinSlots = 600
	}
	if c.StopPublishingMaxSlots == 0 {
		c.StopPublishingMaxSlots = 1000
	}
	if c.MaxSlotDistance == 0 {
		c.MaxSlotDistance = 25
	}
	if c.TwapVsAggregatePct <= 0 {
		c.TwapVsAggregatePct = 10
	}
	if c.CoinGeckoDeviationPct <= 0 {
		c.CoinGeckoDeviationPct = 5
	}
	if c.ComingSoonMinPublishers <= 0 {
		c.ComingSoonMinPublishers = 10
	}
	return c
}

// DefaultComponentChecks assembles the per-publisher check list. The set is
// fixed at startup; there is no runtime registration.
func DefaultComponentChecks(cfg Config, cal *calendar.Calendar) []ComponentCheck {
	cfg = cfg.WithDefaults()
	return []ComponentCheck{
		&BadConfidence{},
		&ImprobableAggregate{Threshold: cfg.ImprobableConfidenceIntervals},
		&PriceDeviation{ThresholdPct: cfg.PriceDeviationPct},
		&StoppedPublishing{MinSlots: cfg.StopPublishingMinSlots, MaxSlots: cfg.StopPublishingMaxSlots},
		&PublisherPriceFeedOffline{MaxSlotDistance: cfg.MaxSlotDistance, Calendar: cal, Now: time.Now},
	}
}

// DefaultAccountChecks assembles the per-account check list. marketID maps a
// base asset to its CoinGecko page slug for chart links; it may be nil.
func DefaultAccountChecks(cfg Config, cal *calendar.Calendar, marketID func(base string) string) []AccountCheck {
	cfg = cfg.WithDefaults()
	return []AccountCheck{
		&PriceFeedOffline{MaxSlotDistance: cfg.MaxSlotDistance, Calendar: cal, Now: time.Now},
		&LongDurationPriceFeedOffline{
			ThresholdSlots:          cfg.StopPublishingMinSlots,
			ComingSoonMinPublishers: cfg.ComingSoonMinPublishers,
			Calendar:                cal,
			Now:                     time.Now,
		},
		&NegativeTWAP{},
		&NegativeTWAC{},
		&TWAPvsAggregate{ThresholdPct: cfg.TwapVsAggregatePct},
		&PriceDeviationCoinGecko{ThresholdPct: cfg.CoinGeckoDeviationPct, MarketID: marketID},
	}
}
