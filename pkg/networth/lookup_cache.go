package networth

import (
	"sync"

	"github.com/shopspring/decimal"
)

type ratePair struct {
	base   string
	target string
}

type lookupEntry struct {
	value decimal.Decimal
	found bool
}

// lookupCache memoizes nearest-date lookups. Entries are grouped by pair or
// symbol so that a write can drop every answer it may have changed: a new
// row can become the nearest match for any query date.
//
// Each pair and symbol carries a generation bumped on invalidation. A reader
// captures it before querying and its answer is stored only if no write
// happened in between.
type lookupCache struct {
	mu       sync.RWMutex
	rates    map[ratePair]map[string]lookupEntry
	prices   map[string]map[string]lookupEntry
	rateGen  map[ratePair]uint64
	priceGen map[string]uint64
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		rates:    map[ratePair]map[string]lookupEntry{},
		prices:   map[string]map[string]lookupEntry{},
		rateGen:  map[ratePair]uint64{},
		priceGen: map[string]uint64{},
	}
}

// getRate returns the cached entry, or the current generation of pair on a
// miss.
func (c *lookupCache) getRate(pair ratePair, date string) (lookupEntry, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.rates[pair][date]
	return entry, c.rateGen[pair], ok
}

func (c *lookupCache) setRate(pair ratePair, date string, gen uint64, entry lookupEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rateGen[pair] != gen {
		return false
	}
	byDate, ok := c.rates[pair]
	if !ok {
		byDate = map[string]lookupEntry{}
		c.rates[pair] = byDate
	}
	byDate[date] = entry
	return true
}

func (c *lookupCache) invalidateRate(pair ratePair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rates, pair)
	c.rateGen[pair]++
}

func (c *lookupCache) getPrice(symbol, date string) (lookupEntry, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.prices[symbol][date]
	return entry, c.priceGen[symbol], ok
}

func (c *lookupCache) setPrice(symbol, date string, gen uint64, entry lookupEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.priceGen[symbol] != gen {
		return false
	}
	byDate, ok := c.prices[symbol]
	if !ok {
		byDate = map[string]lookupEntry{}
		c.prices[symbol] = byDate
	}
	byDate[date] = entry
	return true
}

func (c *lookupCache) invalidatePrice(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.prices, symbol)
	c.priceGen[symbol]++
}
