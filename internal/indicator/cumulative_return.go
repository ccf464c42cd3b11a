package indicator

import (
	"slices"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// CumulativeReturnIndicator is the compound return of the trailing window returns.
// Unlike RSI and Volatility it is read as of the given time, so no bar is needed
// exactly at that time.
type CumulativeReturnIndicator struct{}

// NewCumulativeReturn creates a new cumulative return indicator.
func NewCumulativeReturn() Indicator {
	return &CumulativeReturnIndicator{}
}

// Name returns the name of the indicator.
func (c *CumulativeReturnIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeCumulativeReturn
}

// RawValue implements the Indicator interface.
// It is 0 when the symbol has fewer than window returns up to the given time, including
// when its history starts after that time. A symbol without any history is a data error.
func (c *CumulativeReturnIndicator) RawValue(ctx IndicatorContext, symbol string, at time.Time, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "window must be a positive integer, got %d", window)
	}

	if ctx.DataSource == nil {
		return 0, errors.New(errors.ErrCodeNoDatasource, "indicator context has no data source")
	}

	bars, err := ctx.DataSource.GetSeries(symbol, at)
	if errors.HasCode(err, errors.ErrCodeDataNotFound) {
		symbols, symbolsErr := ctx.DataSource.Symbols()
		if symbolsErr == nil && slices.Contains(symbols, symbol) {
			return 0, nil
		}
	}

	if err != nil {
		return 0, err
	}

	return CumulativeReturn(types.Closes(bars), window), nil
}
