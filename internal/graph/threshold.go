package graph

import (
	"fmt"
	"strconv"

	"github.com/moznion/go-optional"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// Resolution is the value a threshold resolved to.
type Resolution struct {
	// Value is compared against the condition's indicator reading.
	Value float64
	// Reference is the etf1 reading of a dynamic threshold. It is observed only.
	Reference optional.Option[float64]
}

// ThresholdResolver turns a threshold into the right-hand side of a comparison.
type ThresholdResolver interface {
	Resolve(state *evaluationState) (Resolution, error)
	String() string
}

// ConstantThreshold always resolves to the same value.
type ConstantThreshold struct {
	value float64
}

// Resolve implements ThresholdResolver.
func (c ConstantThreshold) Resolve(_ *evaluationState) (Resolution, error) {
	return Resolution{Value: c.value, Reference: optional.None[float64]()}, nil
}

func (c ConstantThreshold) String() string {
	return strconv.FormatFloat(c.value, 'g', -1, 64)
}

// DynamicThreshold reads the same indicator on two symbols and resolves to the
// reading of the second one. The operator between the two readings only labels
// the threshold, it is never applied.
type DynamicThreshold struct {
	first    types.IndicatorRef
	second   types.IndicatorRef
	window   int
	operator types.Operator
}

// Resolve implements ThresholdResolver.
func (d DynamicThreshold) Resolve(state *evaluationState) (Resolution, error) {
	first, err := state.reading(d.first, d.window)
	if err != nil {
		return Resolution{}, err
	}

	second, err := state.reading(d.second, d.window)
	if err != nil {
		return Resolution{}, err
	}

	return Resolution{Value: second, Reference: optional.Some(first)}, nil
}

func (d DynamicThreshold) String() string {
	return fmt.Sprintf("%s(%s, %d) %s %s(%s, %d)",
		d.first.Name.DisplayName(), d.first.Symbol, d.window, d.operator,
		d.second.Name.DisplayName(), d.second.Symbol, d.window)
}

// Readings returns the two series the threshold reads. Only the second one becomes the threshold.
func (d DynamicThreshold) Readings() (types.IndicatorRef, types.IndicatorRef) {
	return d.first, d.second
}

// Operator is the operator written in the threshold. It does not take part in resolution.
func (d DynamicThreshold) Operator() types.Operator {
	return d.operator
}

// newThresholdResolver captures only the fields a threshold needs, never the evaluation context.
func newThresholdResolver(t *types.Threshold) (ThresholdResolver, error) {
	switch {
	case t == nil:
		return nil, errors.New(errors.ErrCodeMissingField, "threshold is required")
	case t.Dynamic.IsSome():
		d := t.Dynamic.Unwrap().WithDefaults()

		// an unsupported indicator name fails when the threshold is read
		first, _ := types.ParseIndicatorRef(d.Indicator, d.Symbol1)
		second, _ := types.ParseIndicatorRef(d.Indicator, d.Symbol2)

		return DynamicThreshold{
			first:    first,
			second:   second,
			window:   d.Window,
			operator: d.Operator,
		}, nil
	case t.Constant.IsSome():
		return ConstantThreshold{value: t.Constant.Unwrap()}, nil
	default:
		return nil, errors.New(errors.ErrCodeMissingField, "threshold has neither a constant nor a dynamic value")
	}
}
