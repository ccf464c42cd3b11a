package datasource

import (
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
)

// DataSource serves per-symbol price history "as of" a point in time.
// Implementations never return bars later than the requested time.
type DataSource interface {
	// Symbols returns every symbol that has price history, sorted.
	Symbols() ([]string, error)
	// GetSeries returns the bars of symbol with time <= end in ascending time order.
	// It fails with ErrCodeDataNotFound when there is no such bar.
	GetSeries(symbol string, end time.Time) ([]types.MarketData, error)
	// GetPriceAsOf returns the latest bar of symbol with time <= at.
	GetPriceAsOf(symbol string, at time.Time) (types.MarketData, error)
	// Close releases any resources held by the data source.
	Close() error
}
