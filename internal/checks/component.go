package checks

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pyth-observer/internal/calendar"
	"pyth-observer/internal/pyth"
)

var oneHundred = decimal.NewFromInt(100)

// BadConfidence fires when a publisher reports a non-positive confidence
// interval while claiming to be trading.
type BadConfidence struct{}

func (BadConfidence) Code() string { return "bad-confidence" }

// Noisy: publishers routinely submit zero confidence intervals.
func (BadConfidence) Noisy() bool { return true }

func (BadConfidence) Evaluate(ctx ComponentContext) *Finding {
	published := ctx.LastAggregate
	if published.Confidence.Sign() > 0 || published.Status != pyth.StatusTrading {
		return nil
	}
	return &Finding{
		Title: fmt.Sprintf("%s bad confidence for %s", strings.ToUpper(ctx.PublisherName), ctx.View.Symbol),
		Details: []string{
			fmt.Sprintf("Confidence: %s", published.Confidence.StringFixed(3)),
			fmt.Sprintf("Status: %s", published.Status),
		},
	}
}

// ImprobableAggregate fires when the aggregate sits more than Threshold
// confidence intervals away from a publisher's own price. Either the price is
// far off or the published interval is implausibly tight.
type ImprobableAggregate struct {
	Threshold float64
}

func (ImprobableAggregate) Code() string { return "improbable-aggregate" }

// Noisy: tiny confidence intervals trip this constantly.
func (ImprobableAggregate) Noisy() bool { return true }

func (c ImprobableAggregate) Evaluate(ctx ComponentContext) *Finding {
	published := ctx.LastAggregate
	if published.Confidence.IsZero() {
		return nil
	}

	delta := published.Price.Sub(ctx.View.Aggregate.Price)
	intervals := delta.Div(published.Confidence).Abs()

	if !ctx.View.IsPublishing(ctx.PublisherKey) || !ctx.View.IsAggregatePublishing() {
		return nil
	}
	if intervals.LessThanOrEqual(decimal.NewFromFloat(c.Threshold)) {
		return nil
	}

	agg := ctx.View.Aggregate
	return &Finding{
		Title: fmt.Sprintf(
			"%s is %s confidence intervals away on %s",
			strings.ToUpper(ctx.PublisherName), intervals.StringFixed(2), ctx.View.Symbol,
		),
		Details: []string{
			fmt.Sprintf("Aggregate: %s ± %s (slot %d)", agg.Price.StringFixed(3), agg.Confidence.StringFixed(3), agg.Slot),
			fmt.Sprintf("Published: %s ± %s (slot %d)", published.Price.StringFixed(3), published.Confidence.StringFixed(3), published.Slot),
		},
	}
}

// PriceDeviation fires when a published price strays more than ThresholdPct
// percent from the aggregate.
type PriceDeviation struct {
	ThresholdPct float64
}

func (PriceDeviation) Code() string { return "price-deviation" }
func (PriceDeviation) Noisy() bool  { return false }

func (c PriceDeviation) Evaluate(ctx ComponentContext) *Finding {
	agg := ctx.View.Aggregate
	if agg.Price.IsZero() {
		// A zero aggregate says nothing about this publisher.
		return nil
	}

	published := ctx.LastAggregate
	deviation := published.Price.Sub(agg.Price).Div(agg.Price).Abs().Mul(oneHundred)

	if !ctx.View.IsPublishing(ctx.PublisherKey) || !ctx.View.IsAggregatePublishing() {
		return nil
	}
	if deviation.LessThanOrEqual(decimal.NewFromFloat(c.ThresholdPct)) {
		return nil
	}

	return &Finding{
		Title: fmt.Sprintf(
			"%s price is %s%% off on %s",
			strings.ToUpper(ctx.PublisherName), deviation.StringFixed(0), ctx.View.Symbol,
		),
		Details: []string{
			fmt.Sprintf("Aggregate: %s ± %s (slot %d)", agg.Price.StringFixed(3), agg.Confidence.StringFixed(3), agg.Slot),
			fmt.Sprintf("Published: %s ± %s (slot %d)", published.Price.StringFixed(3), published.Confidence.StringFixed(3), published.Slot),
		},
	}
}

// StoppedPublishing fires while a publisher has been silent for at least
// MinSlots but fewer than MaxSlots; beyond that the long-offline checks own
// the alert.
type StoppedPublishing struct {
	MinSlots uint64
	MaxSlots uint64
}

func (StoppedPublishing) Code() string { return "stop-publishing-about-5-mins" }
func (StoppedPublishing) Noisy() bool  { return false }

func (c StoppedPublishing) Evaluate(ctx ComponentContext) *Finding {
	stopped := int64(ctx.View.Aggregate.Slot) - int64(ctx.Latest.Slot)
	if stopped < int64(c.MinSlots) || stopped >= int64(c.MaxSlots) {
		return nil
	}
	return &Finding{
		Title: fmt.Sprintf(
			"%s stopped publishing %s for %d slots",
			strings.ToUpper(ctx.PublisherName), ctx.View.Symbol, stopped,
		),
		Details: []string{
			fmt.Sprintf("Aggregate last slot: %d", ctx.View.Aggregate.Slot),
			fmt.Sprintf("Published last slot: %d", ctx.Latest.Slot),
		},
	}
}

// PublisherPriceFeedOffline fires when a publisher that should be updating is
// not: its submission lags the account by more than MaxSlotDistance slots, or
// its status is not trading. Suppressed while the market is closed.
type PublisherPriceFeedOffline struct {
	MaxSlotDistance uint64
	Calendar        *calendar.Calendar
	Now             func() time.Time
}

func (PublisherPriceFeedOffline) Code() string { return "publisher-price-feed-offline" }

// Noisy: individual publishers drop offline on single feeds all the time.
func (PublisherPriceFeedOffline) Noisy() bool { return true }

func (c PublisherPriceFeedOffline) Evaluate(ctx ComponentContext) *Finding {
	slotDiff := int64(ctx.View.Slot) - int64(ctx.Latest.Slot)
	if slotDiff <= int64(c.MaxSlotDistance) && ctx.Latest.Status == pyth.StatusTrading {
		return nil
	}
	if !c.Calendar.IsOpen(ctx.View.ProductAttrs["asset_type"], c.Now()) {
		return nil
	}

	return &Finding{
		Title: fmt.Sprintf(
			"%s %s price feed is offline (has not updated in > %d slots or status is not trading)",
			ctx.PublisherKey, ctx.View.Symbol, c.MaxSlotDistance,
		),
		Details: []string{
			fmt.Sprintf("Last Updated Slot: %d", ctx.Latest.Slot),
			fmt.Sprintf("Current Slot: %d", ctx.View.Slot),
			fmt.Sprintf("Status: %s", ctx.Latest.Status),
		},
	}
}
