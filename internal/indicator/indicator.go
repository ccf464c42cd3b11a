package indicator

import (
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/datasource"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
)

type IndicatorContext struct {
	DataSource datasource.DataSource
}

// Indicator interface defines methods that any indicator usable in a condition must implement
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// RawValue returns the reading of the indicator for symbol at the given time.
	// Only bars with time <= at are read.
	RawValue(ctx IndicatorContext, symbol string, at time.Time, window int) (float64, error)
}
