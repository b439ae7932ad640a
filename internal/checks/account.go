package checks

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"pyth-observer/internal/calendar"
	"pyth-observer/internal/pyth"
)

// PriceFeedOffline fires when the aggregate itself stops updating: account
// slot runs ahead of the aggregate slot by more than MaxSlotDistance, or the
// aggregate status is not trading. Suppressed while the market is closed.
type PriceFeedOffline struct {
	MaxSlotDistance uint64
	Calendar        *calendar.Calendar
	Now             func() time.Time
}

func (PriceFeedOffline) Code() string { return "price-feed-offline" }

// Noisy: several feeds are flaky enough to trip this repeatedly.
func (PriceFeedOffline) Noisy() bool { return true }

func (c PriceFeedOffline) Evaluate(ctx AccountContext) *Finding {
	account := ctx.Account
	slotDiff := int64(account.Slot) - int64(account.Aggregate.Slot)
	if slotDiff <= int64(c.MaxSlotDistance) && account.Aggregate.Status == pyth.StatusTrading {
		return nil
	}
	if !c.Calendar.IsOpen(ctx.AssetType, c.Now()) {
		return nil
	}

	return &Finding{
		Title: fmt.Sprintf(
			"%s price feed is offline (has not updated in > %d slots or status is not trading)",
			ctx.Symbol, c.MaxSlotDistance,
		),
		Details: []string{
			fmt.Sprintf("Last Updated Slot: %d", account.Aggregate.Slot),
			fmt.Sprintf("Current Slot: %d", account.Slot),
			fmt.Sprintf("Status: %s", account.Aggregate.Status),
		},
	}
}

// LongDurationPriceFeedOffline fires when too few publishers have been active
// within ThresholdSlots to form an aggregate. The aggregate slot advances
// even with status unknown, so publisher slots are the reliable signal: if
// this fires the feed has definitely been down that long, though a feed with
// staggered publishers can be down without tripping it.
type LongDurationPriceFeedOffline struct {
	ThresholdSlots uint64
	// Feeds declaring at least this many required publishers are treated as
	// not yet launched and expected to be offline.
	ComingSoonMinPublishers int
	Calendar                *calendar.Calendar
	Now                     func() time.Time
}

func (LongDurationPriceFeedOffline) Code() string { return "long-price-feed-offline" }
func (LongDurationPriceFeedOffline) Noisy() bool  { return false }

func (c LongDurationPriceFeedOffline) Evaluate(ctx AccountContext) *Finding {
	account := ctx.Account
	active := lo.CountBy(account.Components, func(comp pyth.PriceComponent) bool {
		stopped := int64(account.LastSlot) - int64(comp.LastAggregate.Slot)
		return stopped < int64(c.ThresholdSlots)
	})

	if active >= account.MinPublishers || account.MinPublishers >= c.ComingSoonMinPublishers {
		return nil
	}
	if !c.Calendar.IsOpen(ctx.AssetType, c.Now()) {
		return nil
	}

	return &Finding{
		Title: fmt.Sprintf("%s price feed is offline (no update for > %d slots)", ctx.Symbol, c.ThresholdSlots),
		Details: []string{
			fmt.Sprintf("Current Slot: %d", account.Slot),
			fmt.Sprintf("Active Publishers: %d of %d required", active, account.MinPublishers),
			fmt.Sprintf("Status: %s", account.Aggregate.Status),
		},
	}
}

// NegativeTWAP fires when the converted time-weighted average price is
// negative.
type NegativeTWAP struct{}

func (NegativeTWAP) Code() string { return "negative-twap" }
func (NegativeTWAP) Noisy() bool  { return false }

func (NegativeTWAP) Evaluate(ctx AccountContext) *Finding {
	twap := ctx.Account.Ema(pyth.EmaPrice)
	if twap.Sign() >= 0 {
		return nil
	}
	return &Finding{
		Title: fmt.Sprintf("%s negative TWAP", ctx.Symbol),
		Details: []string{
			fmt.Sprintf("TWAP: %s (slot %d)", twap.StringFixed(3), ctx.Account.Slot),
			fmt.Sprintf("Aggregate: %s (slot %d)", ctx.Account.Aggregate.Price.StringFixed(3), ctx.Account.Aggregate.Slot),
		},
	}
}

// NegativeTWAC fires when the converted time-weighted average confidence is
// negative.
type NegativeTWAC struct{}

func (NegativeTWAC) Code() string { return "negative-twac" }
func (NegativeTWAC) Noisy() bool  { return false }

func (NegativeTWAC) Evaluate(ctx AccountContext) *Finding {
	twac := ctx.Account.Ema(pyth.EmaConfidence)
	if twac.Sign() >= 0 {
		return nil
	}
	return &Finding{
		Title: fmt.Sprintf("%s negative TWAC", ctx.Symbol),
		Details: []string{
			fmt.Sprintf("TWAC: %s (slot %d)", twac.StringFixed(3), ctx.Account.Slot),
			fmt.Sprintf("Aggregate: %s (slot %d)", ctx.Account.Aggregate.Price.StringFixed(3), ctx.Account.Aggregate.Slot),
		},
	}
}

// TWAPvsAggregate fires when the TWAP and the aggregate disagree by more than
// ThresholdPct percent: either something is wonky or the market moved hard.
type TWAPvsAggregate struct {
	ThresholdPct float64
}

func (TWAPvsAggregate) Code() string { return "twap-vs-aggregate-price" }
func (TWAPvsAggregate) Noisy() bool  { return false }

func (c TWAPvsAggregate) Evaluate(ctx AccountContext) *Finding {
	aggregate := ctx.Account.Aggregate.Price
	if aggregate.IsZero() {
		// Garbage publishes have produced zero aggregates before; a crashed
		// monitor helps nobody.
		return nil
	}

	twap := ctx.Account.Ema(pyth.EmaPrice)
	deviation := twap.Sub(aggregate).Abs().Div(aggregate).Mul(oneHundred)
	if deviation.LessThanOrEqual(decimal.NewFromFloat(c.ThresholdPct)) {
		return nil
	}

	return &Finding{
		Title: fmt.Sprintf("%s Aggregate is %s%% different than TWAP", ctx.Symbol, deviation.StringFixed(0)),
		Details: []string{
			fmt.Sprintf("TWAP: %s (slot %d)", twap.StringFixed(3), ctx.Account.Slot),
			fmt.Sprintf("Aggregate: %s (slot %d)", aggregate.StringFixed(3), ctx.Account.Aggregate.Slot),
		},
	}
}

// PriceDeviationCoinGecko fires when the aggregate strays more than
// ThresholdPct percent from the external reference price. No reference, a
// non-trading aggregate, or a zero price all mean there is nothing to
// compare.
type PriceDeviationCoinGecko struct {
	ThresholdPct float64
	// MarketID maps a base asset to its CoinGecko page slug; may be nil.
	MarketID func(base string) string
}

func (PriceDeviationCoinGecko) Code() string { return "price-deviation-coingecko" }
func (PriceDeviationCoinGecko) Noisy() bool  { return false }

func (c PriceDeviationCoinGecko) Evaluate(ctx AccountContext) *Finding {
	aggregate := ctx.Account.Aggregate
	if ctx.Reference == nil || aggregate.Status != pyth.StatusTrading || aggregate.Price.IsZero() {
		return nil
	}
	reference := ctx.Reference.Price
	if reference.IsZero() {
		return nil
	}

	deviation := aggregate.Price.Sub(reference).Abs().Div(reference).Mul(oneHundred)
	if deviation.LessThanOrEqual(decimal.NewFromFloat(c.ThresholdPct)) {
		return nil
	}

	details := []string{
		fmt.Sprintf("Pyth Price: %s", aggregate.Price.StringFixed(3)),
		fmt.Sprintf("CoinGecko Price: %s", reference.StringFixed(3)),
		fmt.Sprintf("Deviation: %s%% off", deviation.StringFixed(2)),
	}
	if c.MarketID != nil {
		if market := c.MarketID(ctx.Base); market != "" {
			details = append(details, fmt.Sprintf("CoinGecko Price Chart: https://www.coingecko.com/en/coins/%s", market))
		}
	}

	return &Finding{
		Title:   fmt.Sprintf("%s is more than %.0f%% off from CoinGecko", ctx.Symbol, c.ThresholdPct),
		Details: details,
	}
}
