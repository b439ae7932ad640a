package pyth

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Status mirrors the trading status reported for an aggregate or a single
// publisher submission.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusTrading Status = "trading"
	StatusHalted  Status = "halted"
	StatusAuction Status = "auction"
)

// ParseStatus normalises an agent-reported status string.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trading":
		return StatusTrading
	case "halted":
		return StatusHalted
	case "auction":
		return StatusAuction
	default:
		return StatusUnknown
	}
}

// PriceInfo is one price observation: an aggregate snapshot or a single
// publisher submission.
type PriceInfo struct {
	Price      decimal.Decimal
	Confidence decimal.Decimal
	Status     Status
	Slot       uint64
}

// PriceComponent is one publisher's contribution to a price account.
type PriceComponent struct {
	PublisherKey string
	// Latest is the publisher's most recent submission.
	Latest PriceInfo
	// LastAggregate is the snapshot last included in the aggregate.
	LastAggregate PriceInfo
}

// EmaKind keys the derived time-weighted statistics on a price account.
type EmaKind int

const (
	EmaPrice EmaKind = iota
	EmaConfidence
)

// PriceAccount is the raw per-symbol account state for one polling cycle.
type PriceAccount struct {
	Key           string
	Slot          uint64
	Aggregate     PriceInfo
	Exponent      int32
	MinPublishers int
	LastSlot      uint64
	// Derivations holds raw derived statistics; apply Exponent to read them.
	Derivations map[EmaKind]int64
	Components  []PriceComponent
}

// Ema converts a raw derived statistic to its human scale.
func (a *PriceAccount) Ema(kind EmaKind) decimal.Decimal {
	return decimal.New(a.Derivations[kind], a.Exponent)
}

// Product identifies one listed symbol and its attribute dictionary.
type Product struct {
	Key    string
	Symbol string
	Attrs  map[string]string
}

// Base returns the base asset attribute ("BTC" for Crypto.BTC/USD).
func (p Product) Base() string { return p.Attrs["base"] }

// AssetType returns the asset class attribute ("Crypto", "Equity", "FX").
func (p Product) AssetType() string { return p.Attrs["asset_type"] }

// PriceView is the per-symbol working view rebuilt on every polling cycle and
// discarded after check evaluation.
type PriceView struct {
	Symbol           string
	Slot             uint64
	Aggregate        PriceInfo
	ProductAttrs     map[string]string
	Quoters          map[string]PriceInfo
	QuoterAggregates map[string]PriceInfo
}

// NewPriceView assembles the view for one product/account pair. Every quoter
// key is guaranteed to also be present in QuoterAggregates.
func NewPriceView(product Product, account *PriceAccount) *PriceView {
	view := &PriceView{
		Symbol:           product.Symbol,
		Slot:             account.Slot,
		Aggregate:        account.Aggregate,
		ProductAttrs:     product.Attrs,
		Quoters:          make(map[string]PriceInfo, len(account.Components)),
		QuoterAggregates: make(map[string]PriceInfo, len(account.Components)),
	}
	for _, comp := range account.Components {
		view.Quoters[comp.PublisherKey] = comp.Latest
		view.QuoterAggregates[comp.PublisherKey] = comp.LastAggregate
	}
	return view
}

// IsPublishing reports whether the given publisher is actively trading.
func (v *PriceView) IsPublishing(publisherKey string) bool {
	q, ok := v.Quoters[publisherKey]
	return ok && q.Status == StatusTrading
}

// IsAggregatePublishing reports whether the aggregate itself is trading.
func (v *PriceView) IsAggregatePublishing() bool {
	return v.Aggregate.Status == StatusTrading
}
