package pyth

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusTrading, ParseStatus("trading"))
	assert.Equal(t, StatusTrading, ParseStatus(" Trading "))
	assert.Equal(t, StatusHalted, ParseStatus("halted"))
	assert.Equal(t, StatusAuction, ParseStatus("auction"))
	assert.Equal(t, StatusUnknown, ParseStatus("unknown"))
	assert.Equal(t, StatusUnknown, ParseStatus(""))
	assert.Equal(t, StatusUnknown, ParseStatus("garbage"))
}

func TestNewPriceViewInvariant(t *testing.T) {
	product := Product{
		Symbol: "Crypto.BTC/USD",
		Attrs:  map[string]string{"asset_type": "Crypto", "base": "BTC"},
	}
	account := &PriceAccount{
		Slot:      100,
		Aggregate: PriceInfo{Price: decimal.NewFromInt(100), Status: StatusTrading, Slot: 98},
		Components: []PriceComponent{
			{
				PublisherKey:  "pub1",
				Latest:        PriceInfo{Price: decimal.NewFromInt(101), Slot: 99},
				LastAggregate: PriceInfo{Price: decimal.NewFromInt(100), Slot: 98},
			},
			{
				PublisherKey:  "pub2",
				Latest:        PriceInfo{Price: decimal.NewFromInt(99), Slot: 97},
				LastAggregate: PriceInfo{Price: decimal.NewFromInt(100), Slot: 96},
			},
		},
	}

	view := NewPriceView(product, account)
	assert.Equal(t, "Crypto.BTC/USD", view.Symbol)
	assert.Equal(t, uint64(100), view.Slot)
	require.Len(t, view.Quoters, 2)

	// Every quoter key must also appear in QuoterAggregates.
	for key := range view.Quoters {
		_, ok := view.QuoterAggregates[key]
		assert.True(t, ok, "quoter %s missing from QuoterAggregates", key)
	}
}

func TestPriceViewPublishingHelpers(t *testing.T) {
	view := &PriceView{
		Aggregate: PriceInfo{Status: StatusTrading},
		Quoters: map[string]PriceInfo{
			"active": {Status: StatusTrading},
			"idle":   {Status: StatusUnknown},
		},
	}
	assert.True(t, view.IsPublishing("active"))
	assert.False(t, view.IsPublishing("idle"))
	assert.False(t, view.IsPublishing("missing"))
	assert.True(t, view.IsAggregatePublishing())

	view.Aggregate.Status = StatusHalted
	assert.False(t, view.IsAggregatePublishing())
}

func TestAccountEmaConversion(t *testing.T) {
	account := &PriceAccount{
		Exponent: -8,
		Derivations: map[EmaKind]int64{
			EmaPrice:      4212345678900,
			EmaConfidence: -50,
		},
	}
	assert.True(t, account.Ema(EmaPrice).Equal(decimal.NewFromFloat(42123.456789)))
	assert.True(t, account.Ema(EmaConfidence).IsNegative())
}

func TestTransientError(t *testing.T) {
	err := Transient("refresh", assert.AnError)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "refresh")
	assert.False(t, IsTransient(assert.AnError))
}
