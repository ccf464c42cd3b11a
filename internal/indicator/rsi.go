package indicator

import (
	"math"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// RSI represents the Relative Strength Index indicator.
type RSI struct{}

// NewRSI creates a new RSI indicator.
func NewRSI() Indicator {
	return &RSI{}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// RawValue implements the Indicator interface.
// A bar must exist exactly at the given time.
func (r *RSI) RawValue(ctx IndicatorContext, symbol string, at time.Time, window int) (float64, error) {
	closes, err := closesEndingAt(ctx, symbol, at, window)
	if err != nil {
		return 0, err
	}

	series := RSISeries(closes, window)

	value := series[len(series)-1]
	if math.IsNaN(value) {
		return 0, errors.Newf(errors.ErrCodeInsufficientData,
			"RSI(%s, %d) is undefined at %s", symbol, window, at.Format(time.DateOnly))
	}

	return value, nil
}

// closesEndingAt returns the closes of symbol up to at, requiring the last bar to be at exactly at.
func closesEndingAt(ctx IndicatorContext, symbol string, at time.Time, window int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window must be a positive integer, got %d", window)
	}

	if ctx.DataSource == nil {
		return nil, errors.New(errors.ErrCodeNoDatasource, "indicator context has no data source")
	}

	bars, err := ctx.DataSource.GetSeries(symbol, at)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeTimestampNotFound, err, "no history for %s at %s", symbol, at.Format(time.DateOnly))
	}

	if len(bars) == 0 || !bars[len(bars)-1].Time.Equal(at) {
		return nil, errors.Newf(errors.ErrCodeTimestampNotFound, "no bar for %s at %s", symbol, at.Format(time.DateOnly))
	}

	return types.Closes(bars), nil
}
