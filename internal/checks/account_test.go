package checks

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyth-observer/internal/calendar"
	"pyth-observer/internal/coingecko"
	"pyth-observer/internal/pyth"
)

func accountContext(assetType string, account *pyth.PriceAccount, reference *coingecko.Price) AccountContext {
	return AccountContext{
		Symbol:    "Crypto.BTC/USD",
		AssetType: assetType,
		Base:      "BTC",
		Account:   account,
		Reference: reference,
	}
}

func tradingAccount(price float64, exponent int32) *pyth.PriceAccount {
	return &pyth.PriceAccount{
		Key:  "acctkey",
		Slot: 100,
		Aggregate: pyth.PriceInfo{
			Price:      decimal.NewFromFloat(price),
			Confidence: decimal.NewFromInt(1),
			Status:     pyth.StatusTrading,
			Slot:       95,
		},
		Exponent:      exponent,
		MinPublishers: 3,
		LastSlot:      100,
		Derivations:   map[pyth.EmaKind]int64{},
	}
}

func TestPriceFeedOffline(t *testing.T) {
	cal := calendar.New()

	t.Run("stale aggregate while market open", func(t *testing.T) {
		check := PriceFeedOffline{MaxSlotDistance: 25, Calendar: cal, Now: func() time.Time { return openMarket }}
		account := tradingAccount(100, -8)
		account.Slot = 200
		require.NotNil(t, check.Evaluate(accountContext("Crypto", account, nil)))
	})

	t.Run("unknown status while market open", func(t *testing.T) {
		check := PriceFeedOffline{MaxSlotDistance: 25, Calendar: cal, Now: func() time.Time { return openMarket }}
		account := tradingAccount(100, -8)
		account.Aggregate.Status = pyth.StatusUnknown
		require.NotNil(t, check.Evaluate(accountContext("Crypto", account, nil)))
	})

	// Whatever the slot gap, a closed market never alerts.
	t.Run("closed market suppresses any gap", func(t *testing.T) {
		check := PriceFeedOffline{MaxSlotDistance: 25, Calendar: cal, Now: func() time.Time { return closedMarket }}
		for _, gap := range []uint64{0, 26, 1000, 100000} {
			account := tradingAccount(100, -8)
			account.Slot = account.Aggregate.Slot + gap
			account.Aggregate.Status = pyth.StatusUnknown
			assert.Nil(t, check.Evaluate(accountContext("Equity", account, nil)), "gap %d", gap)
		}
	})

	t.Run("fresh trading aggregate", func(t *testing.T) {
		check := PriceFeedOffline{MaxSlotDistance: 25, Calendar: cal, Now: func() time.Time { return openMarket }}
		account := tradingAccount(100, -8)
		assert.Nil(t, check.Evaluate(accountContext("Crypto", account, nil)))
	})
}

func TestLongDurationPriceFeedOffline(t *testing.T) {
	cal := calendar.New()
	check := LongDurationPriceFeedOffline{
		ThresholdSlots:          600,
		ComingSoonMinPublishers: 10,
		Calendar:                cal,
		Now:                     func() time.Time { return openMarket },
	}

	component := func(lastAggregateSlot uint64) pyth.PriceComponent {
		return pyth.PriceComponent{
			PublisherKey:  "pub",
			LastAggregate: pyth.PriceInfo{Slot: lastAggregateSlot},
		}
	}

	t.Run("too few active publishers", func(t *testing.T) {
		account := tradingAccount(100, -8)
		account.LastSlot = 2000
		account.MinPublishers = 3
		account.Components = []pyth.PriceComponent{
			component(1900), // active
			component(100),  // stopped long ago
			component(200),  // stopped long ago
		}
		require.NotNil(t, check.Evaluate(accountContext("Crypto", account, nil)))
	})

	t.Run("enough active publishers", func(t *testing.T) {
		account := tradingAccount(100, -8)
		account.LastSlot = 2000
		account.MinPublishers = 2
		account.Components = []pyth.PriceComponent{component(1900), component(1800), component(100)}
		assert.Nil(t, check.Evaluate(accountContext("Crypto", account, nil)))
	})

	t.Run("coming soon feeds are expected to be offline", func(t *testing.T) {
		account := tradingAccount(100, -8)
		account.LastSlot = 2000
		account.MinPublishers = 10
		account.Components = []pyth.PriceComponent{component(100)}
		assert.Nil(t, check.Evaluate(accountContext("Crypto", account, nil)))
	})

	t.Run("closed market suppresses", func(t *testing.T) {
		closed := check
		closed.Now = func() time.Time { return closedMarket }
		account := tradingAccount(100, -8)
		account.LastSlot = 2000
		account.MinPublishers = 3
		account.Components = []pyth.PriceComponent{component(100)}
		assert.Nil(t, closed.Evaluate(accountContext("Equity", account, nil)))
	})
}

func TestNegativeTWAPAndTWAC(t *testing.T) {
	t.Run("negative twap", func(t *testing.T) {
		account := tradingAccount(100, -3)
		account.Derivations[pyth.EmaPrice] = -123456
		finding := NegativeTWAP{}.Evaluate(accountContext("Crypto", account, nil))
		require.NotNil(t, finding)
		assert.Contains(t, finding.Details[0], "-123.456")
	})

	t.Run("positive twap", func(t *testing.T) {
		account := tradingAccount(100, -3)
		account.Derivations[pyth.EmaPrice] = 100000
		assert.Nil(t, NegativeTWAP{}.Evaluate(accountContext("Crypto", account, nil)))
	})

	t.Run("negative twac", func(t *testing.T) {
		account := tradingAccount(100, -3)
		account.Derivations[pyth.EmaConfidence] = -1
		require.NotNil(t, NegativeTWAC{}.Evaluate(accountContext("Crypto", account, nil)))
	})

	t.Run("zero twac", func(t *testing.T) {
		account := tradingAccount(100, -3)
		account.Derivations[pyth.EmaConfidence] = 0
		assert.Nil(t, NegativeTWAC{}.Evaluate(accountContext("Crypto", account, nil)))
	})
}

func TestTWAPvsAggregate(t *testing.T) {
	check := TWAPvsAggregate{ThresholdPct: 10}

	t.Run("large divergence", func(t *testing.T) {
		account := tradingAccount(100, -3)
		account.Derivations[pyth.EmaPrice] = 150000 // 150.0
		finding := check.Evaluate(accountContext("Crypto", account, nil))
		require.NotNil(t, finding)
		assert.Contains(t, finding.Title, "50%")
	})

	t.Run("small divergence", func(t *testing.T) {
		account := tradingAccount(100, -3)
		account.Derivations[pyth.EmaPrice] = 105000
		assert.Nil(t, check.Evaluate(accountContext("Crypto", account, nil)))
	})

	// Garbage feeds have produced zero aggregates; the check must stay quiet
	// instead of dividing by zero.
	t.Run("zero aggregate price", func(t *testing.T) {
		account := tradingAccount(0, -3)
		account.Derivations[pyth.EmaPrice] = 150000
		assert.NotPanics(t, func() {
			assert.Nil(t, check.Evaluate(accountContext("Crypto", account, nil)))
		})
	})
}

func TestPriceDeviationCoinGecko(t *testing.T) {
	check := PriceDeviationCoinGecko{ThresholdPct: 5, MarketID: func(string) string { return "bitcoin" }}
	reference := func(price float64) *coingecko.Price {
		return &coingecko.Price{Price: decimal.NewFromFloat(price), LastUpdatedAt: openMarket}
	}

	t.Run("deviation above threshold", func(t *testing.T) {
		account := tradingAccount(110, -8)
		finding := check.Evaluate(accountContext("Crypto", account, reference(100)))
		require.NotNil(t, finding)
		assert.Contains(t, finding.Details[3], "coingecko.com/en/coins/bitcoin")
	})

	t.Run("deviation below threshold", func(t *testing.T) {
		account := tradingAccount(102, -8)
		assert.Nil(t, check.Evaluate(accountContext("Crypto", account, reference(100))))
	})

	t.Run("no reference price", func(t *testing.T) {
		account := tradingAccount(99999, -8)
		assert.Nil(t, check.Evaluate(accountContext("Crypto", account, nil)))
	})

	t.Run("aggregate not trading", func(t *testing.T) {
		account := tradingAccount(110, -8)
		account.Aggregate.Status = pyth.StatusUnknown
		assert.Nil(t, check.Evaluate(accountContext("Crypto", account, reference(100))))
	})

	t.Run("zero pyth price", func(t *testing.T) {
		account := tradingAccount(0, -8)
		assert.Nil(t, check.Evaluate(accountContext("Crypto", account, reference(100))))
	})
}
