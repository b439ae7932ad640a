package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyth-observer/internal/checks"
)

func filterEvents() []checks.ValidationEvent {
	return []checks.ValidationEvent{
		{Symbol: "Crypto.ORCA/USD", Code: "bad-confidence"},
		{Symbol: "Crypto.ORCA/USD", Code: "price-deviation"},
		{Symbol: "Crypto.BTC/USD", Code: "price-feed-offline"},
		{Symbol: "FX.EUR/USD", Code: "price-feed-offline"},
	}
}

func TestIgnoreFilterIdentity(t *testing.T) {
	f, err := NewIgnoreFilter(nil)
	require.NoError(t, err)
	events := filterEvents()
	assert.Equal(t, events, f.Apply(events))

	var nilFilter *IgnoreFilter
	assert.Equal(t, events, nilFilter.Apply(events))
}

func TestIgnoreFilterSymbolPattern(t *testing.T) {
	f, err := NewIgnoreFilter([]string{"Crypto.ORCA/USD"})
	require.NoError(t, err)

	remaining := f.Apply(filterEvents())
	require.Len(t, remaining, 2)
	for _, event := range remaining {
		assert.NotEqual(t, "Crypto.ORCA/USD", event.Symbol)
	}
}

func TestIgnoreFilterCaseInsensitive(t *testing.T) {
	f, err := NewIgnoreFilter([]string{"crypto.orca/usd"})
	require.NoError(t, err)
	assert.Len(t, f.Apply(filterEvents()), 2)
}

func TestIgnoreFilterErrorCodePattern(t *testing.T) {
	f, err := NewIgnoreFilter([]string{"FX.*/price-feed-offline"})
	require.NoError(t, err)

	remaining := f.Apply(filterEvents())
	require.Len(t, remaining, 3)
	for _, event := range remaining {
		assert.NotEqual(t, "FX.EUR/USD", event.Symbol)
	}
}

func TestIgnoreFilterIsPrefixAnchored(t *testing.T) {
	// "ORCA/USD" alone must not match mid-string.
	f, err := NewIgnoreFilter([]string{"ORCA/USD"})
	require.NoError(t, err)
	assert.Len(t, f.Apply(filterEvents()), 4)
}

func TestIgnoreFilterInvalidPattern(t *testing.T) {
	_, err := NewIgnoreFilter([]string{"(unclosed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ignore pattern")
}
