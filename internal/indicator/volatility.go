package indicator

import (
	"math"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// Volatility is the rolling sample standard deviation of simple returns.
type Volatility struct{}

// NewVolatility creates a new Volatility indicator.
func NewVolatility() Indicator {
	return &Volatility{}
}

// Name returns the name of the indicator.
func (v *Volatility) Name() types.IndicatorType {
	return types.IndicatorTypeVolatility
}

// RawValue implements the Indicator interface.
// A bar must exist exactly at the given time.
func (v *Volatility) RawValue(ctx IndicatorContext, symbol string, at time.Time, window int) (float64, error) {
	closes, err := closesEndingAt(ctx, symbol, at, window)
	if err != nil {
		return 0, err
	}

	series := VolatilitySeries(closes, window)

	value := series[len(series)-1]
	if math.IsNaN(value) {
		cause := errors.NewInsufficientDataErrorf(window+1, len(closes), symbol, "volatility needs %d closes, got %d", window+1, len(closes))
		if window < 2 {
			// a single return has no sample deviation however long the history
			cause = errors.NewInsufficientDataErrorf(2, window, symbol, "volatility needs a window of at least 2, got %d", window)
		}

		return 0, errors.Wrapf(errors.ErrCodeInsufficientData, cause,
			"Volatility(%s, %d) is undefined at %s", symbol, window, at.Format(time.DateOnly))
	}

	return value, nil
}
