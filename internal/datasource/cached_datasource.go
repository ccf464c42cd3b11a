package datasource

import (
	"fmt"
	"sync"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
)

type seriesEntry struct {
	data []types.MarketData
	err  error
}

type priceEntry struct {
	bar types.MarketData
	err error
}

// CachedDataSource wraps a DataSource and caches repeated lookups.
// Several conditions of a graph usually read the same symbol at the same time,
// so one rebalance touches the underlying source once per (symbol, time).
// Errors are cached as well. Cached series are shared and must not be modified.
type CachedDataSource struct {
	underlying  DataSource
	seriesCache map[string]seriesEntry
	priceCache  map[string]priceEntry
	symbols     []string
	symbolsErr  error
	symbolsSet  bool
	mu          sync.RWMutex
}

// NewCachedDataSource creates a new CachedDataSource wrapping the given DataSource.
func NewCachedDataSource(underlying DataSource) *CachedDataSource {
	return &CachedDataSource{
		underlying:  underlying,
		seriesCache: make(map[string]seriesEntry),
		priceCache:  make(map[string]priceEntry),
		symbols:     nil,
		symbolsErr:  nil,
		symbolsSet:  false,
	}
}

// ClearCache clears all cached data.
func (c *CachedDataSource) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seriesCache = make(map[string]seriesEntry)
	c.priceCache = make(map[string]priceEntry)
	c.symbols = nil
	c.symbolsErr = nil
	c.symbolsSet = false
}

// Symbols implements DataSource with caching.
func (c *CachedDataSource) Symbols() ([]string, error) {
	c.mu.RLock()
	if c.symbolsSet {
		symbols, err := c.symbols, c.symbolsErr
		c.mu.RUnlock()

		return symbols, err
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.symbolsSet {
		return c.symbols, c.symbolsErr
	}

	c.symbols, c.symbolsErr = c.underlying.Symbols()
	c.symbolsSet = true

	return c.symbols, c.symbolsErr
}

// GetSeries implements DataSource with caching.
func (c *CachedDataSource) GetSeries(symbol string, end time.Time) ([]types.MarketData, error) {
	key := buildKey(symbol, end)

	c.mu.RLock()
	if entry, ok := c.seriesCache[key]; ok {
		c.mu.RUnlock()

		return entry.data, entry.err
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, ok := c.seriesCache[key]; ok {
		return entry.data, entry.err
	}

	data, err := c.underlying.GetSeries(symbol, end)
	c.seriesCache[key] = seriesEntry{data: data, err: err}

	return data, err
}

// GetPriceAsOf implements DataSource with caching.
func (c *CachedDataSource) GetPriceAsOf(symbol string, at time.Time) (types.MarketData, error) {
	key := buildKey(symbol, at)

	c.mu.RLock()
	if entry, ok := c.priceCache[key]; ok {
		c.mu.RUnlock()

		return entry.bar, entry.err
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.priceCache[key]; ok {
		return entry.bar, entry.err
	}

	bar, err := c.underlying.GetPriceAsOf(symbol, at)
	c.priceCache[key] = priceEntry{bar: bar, err: err}

	return bar, err
}

// Close implements DataSource.
func (c *CachedDataSource) Close() error {
	return c.underlying.Close()
}

func buildKey(symbol string, at time.Time) string {
	return fmt.Sprintf("%s:%d", symbol, at.UnixNano())
}
