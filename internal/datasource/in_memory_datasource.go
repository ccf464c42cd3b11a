package datasource

import (
	"sort"
	"sync"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// InMemoryDataSource keeps every bar in memory, indexed by symbol and sorted by time.
// Lookups are binary searches over the per-symbol slice.
type InMemoryDataSource struct {
	// data[symbol] = bars in ascending time order
	data map[string][]types.MarketData
	mu   sync.RWMutex
}

// NewInMemoryDataSource creates a data source holding the given bars.
func NewInMemoryDataSource(bars []types.MarketData) *InMemoryDataSource {
	ds := &InMemoryDataSource{
		data: make(map[string][]types.MarketData),
		mu:   sync.RWMutex{},
	}
	ds.Load(bars)

	return ds
}

// NewInMemoryDataSourceFromSeries builds bars from a symbol -> time -> close mapping.
func NewInMemoryDataSourceFromSeries(series map[string]map[time.Time]float64) *InMemoryDataSource {
	bars := make([]types.MarketData, 0)

	for symbol, points := range series {
		for t, closePrice := range points {
			bars = append(bars, types.MarketData{
				Id:     "",
				Symbol: symbol,
				Time:   t,
				Open:   closePrice,
				High:   closePrice,
				Low:    closePrice,
				Close:  closePrice,
				Volume: 0,
			})
		}
	}

	return NewInMemoryDataSource(bars)
}

// Load adds bars to the data source. A bar with the same symbol and time as an
// existing one replaces it.
func (ds *InMemoryDataSource) Load(bars []types.MarketData) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	touched := make(map[string]struct{})
	for _, bar := range bars {
		ds.data[bar.Symbol] = append(ds.data[bar.Symbol], bar)
		touched[bar.Symbol] = struct{}{}
	}

	for symbol := range touched {
		symbolData := ds.data[symbol]
		sort.SliceStable(symbolData, func(i, j int) bool {
			return symbolData[i].Time.Before(symbolData[j].Time)
		})

		// keep the last loaded bar for duplicate timestamps
		deduped := symbolData[:0]
		for i, bar := range symbolData {
			if i+1 < len(symbolData) && symbolData[i+1].Time.Equal(bar.Time) {
				continue
			}

			deduped = append(deduped, bar)
		}

		ds.data[symbol] = deduped
	}
}

// Symbols implements DataSource.
func (ds *InMemoryDataSource) Symbols() ([]string, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	symbols := make([]string, 0, len(ds.data))
	for symbol := range ds.data {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// GetSeries implements DataSource.
func (ds *InMemoryDataSource) GetSeries(symbol string, end time.Time) ([]types.MarketData, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	symbolData, ok := ds.data[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no data found for symbol: %s", symbol)
	}

	endIdx := upperBound(symbolData, end)
	if endIdx == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no data found for symbol %s at or before %s", symbol, end.Format(time.RFC3339))
	}

	// Return a copy to prevent modification of underlying data
	result := make([]types.MarketData, endIdx)
	copy(result, symbolData[:endIdx])

	return result, nil
}

// GetPriceAsOf implements DataSource.
func (ds *InMemoryDataSource) GetPriceAsOf(symbol string, at time.Time) (types.MarketData, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	symbolData, ok := ds.data[symbol]
	if !ok {
		return types.MarketData{}, errors.Newf(errors.ErrCodeDataNotFound, "no data found for symbol: %s", symbol)
	}

	idx := upperBound(symbolData, at)
	if idx == 0 {
		return types.MarketData{}, errors.Newf(errors.ErrCodeNoPriceAsOf,
			"no price for symbol %s at or before %s", symbol, at.Format(time.RFC3339))
	}

	return symbolData[idx-1], nil
}

// Close implements DataSource.
func (ds *InMemoryDataSource) Close() error {
	return nil
}

// upperBound returns the number of bars with time <= t.
func upperBound(bars []types.MarketData, t time.Time) int {
	return sort.Search(len(bars), func(i int) bool {
		return bars[i].Time.After(t)
	})
}
