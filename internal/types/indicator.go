package types

import (
	"fmt"
	"slices"
	"strings"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

type IndicatorType string

const (
	IndicatorTypeRSI              IndicatorType = "rsi"
	IndicatorTypeVolatility       IndicatorType = "volatility"
	IndicatorTypeCumulativeReturn IndicatorType = "cumulative_return"
)

// AllIndicatorTypes lists every indicator a condition may reference.
var AllIndicatorTypes = []IndicatorType{
	IndicatorTypeRSI,
	IndicatorTypeVolatility,
	IndicatorTypeCumulativeReturn,
}

// ParseIndicatorType maps the names used in condition specs ("RSI", "Volatility",
// "Cumulative Return", "cumulative_return", ...) onto an IndicatorType.
func ParseIndicatorType(name string) (IndicatorType, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.Join(strings.Fields(strings.ReplaceAll(normalized, "_", " ")), "_")

	for _, t := range AllIndicatorTypes {
		if normalized == string(t) {
			return t, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeUnsupportedIndicator, "unsupported indicator: %s", name)
}

// Supported reports whether t is one of AllIndicatorTypes.
func (t IndicatorType) Supported() bool {
	return slices.Contains(AllIndicatorTypes, t)
}

// DisplayName is the label used when rendering conditions.
func (t IndicatorType) DisplayName() string {
	switch t {
	case IndicatorTypeRSI:
		return "RSI"
	case IndicatorTypeVolatility:
		return "Volatility"
	case IndicatorTypeCumulativeReturn:
		return "Cumulative Return"
	default:
		return string(t)
	}
}

// IndicatorRef identifies a time series and the transform applied to it.
type IndicatorRef struct {
	Name   IndicatorType `yaml:"name" json:"name"`
	Symbol string        `yaml:"symbol" json:"symbol"`
}

// ParseIndicatorRef resolves name with ParseIndicatorType. On failure the returned ref still
// carries name verbatim, so a caller can defer the error to evaluation.
func ParseIndicatorRef(name, symbol string) (IndicatorRef, error) {
	indicatorType, err := ParseIndicatorType(name)
	if err != nil {
		return IndicatorRef{Name: IndicatorType(name), Symbol: symbol}, err
	}

	return IndicatorRef{Name: indicatorType, Symbol: symbol}, nil
}

func (r IndicatorRef) String() string {
	return fmt.Sprintf("%s(%s)", r.Name.DisplayName(), r.Symbol)
}
