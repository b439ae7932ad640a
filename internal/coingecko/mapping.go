package coingecko

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

//go:embed mapping.json
var defaultMapping []byte

type mappingEntry struct {
	// API is the CoinGecko API id ("bitcoin").
	API string `json:"api"`
	// Market is the coin page slug used for chart links.
	Market string `json:"market"`
}

// Mapping relates base asset symbols to CoinGecko identifiers. Only mapped
// bases are tracked by the reference price loop.
type Mapping struct {
	entries  map[string]mappingEntry
	byAPI    map[string]string
	orderIDs []string
}

// LoadMapping reads a symbol mapping file, or the embedded default when path
// is empty.
func LoadMapping(path string) (*Mapping, error) {
	raw := defaultMapping
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read coingecko mapping: %w", err)
		}
		raw = data
	}

	var entries map[string]mappingEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse coingecko mapping: %w", err)
	}

	m := &Mapping{
		entries: entries,
		byAPI:   make(map[string]string, len(entries)),
	}
	for symbol, entry := range entries {
		m.byAPI[entry.API] = symbol
		m.orderIDs = append(m.orderIDs, entry.API)
	}
	sort.Strings(m.orderIDs)
	return m, nil
}

// IDs returns the CoinGecko API ids for every tracked base.
func (m *Mapping) IDs() []string {
	out := make([]string, len(m.orderIDs))
	copy(out, m.orderIDs)
	return out
}

// Tracked reports whether a base asset has a reference source.
func (m *Mapping) Tracked(base string) bool {
	_, ok := m.entries[base]
	return ok
}

// SymbolForID maps a CoinGecko API id back to the base asset symbol.
func (m *Mapping) SymbolForID(id string) (string, bool) {
	symbol, ok := m.byAPI[id]
	return symbol, ok
}

// MarketID returns the coin page slug for chart links, or "" when unmapped.
func (m *Mapping) MarketID(base string) string {
	return m.entries[base].Market
}
