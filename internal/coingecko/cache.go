package coingecko

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Price is one externally sourced reference quote.
type Price struct {
	Price         decimal.Decimal
	LastUpdatedAt time.Time
}

// Cache holds the latest reference price per base asset. The reference loop
// replaces the whole mapping on each refresh; the polling loop reads it
// concurrently. Readers never observe a partially updated mapping.
type Cache struct {
	prices atomic.Pointer[map[string]Price]

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	c := &Cache{lastSeen: make(map[string]time.Time)}
	empty := make(map[string]Price)
	c.prices.Store(&empty)
	return c
}

// Replace swaps in a freshly fetched mapping wholesale.
func (c *Cache) Replace(prices map[string]Price) {
	if prices == nil {
		prices = map[string]Price{}
	}
	c.prices.Store(&prices)
}

// Get returns the reference price for a base asset, if one is known.
func (c *Cache) Get(base string) (Price, bool) {
	p, ok := (*c.prices.Load())[base]
	return p, ok
}

// Len reports the number of cached reference prices.
func (c *Cache) Len() int {
	return len(*c.prices.Load())
}

// Touch records when the polling loop last observed a tracked base asset.
func (c *Cache) Touch(base string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen[base] = at
}

// LastSeen returns the last time Touch was called for a base asset.
func (c *Cache) LastSeen(base string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.lastSeen[base]
	return t, ok
}
