package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDynamicWindow is used when a dynamic threshold omits its window.
	DefaultDynamicWindow = 60
	// DefaultDynamicOperator is used when a dynamic threshold omits its operator.
	DefaultDynamicOperator = OperatorGreaterThan
)

// ConditionSpec describes one decision node of a graph.
type ConditionSpec struct {
	NodeName    string     `yaml:"node_name" json:"node_name" validate:"required"`
	Indicator   string     `yaml:"indicator" json:"indicator" validate:"required"`
	Symbol      string     `yaml:"etf" json:"etf" validate:"required"`
	Window      int        `yaml:"window" json:"window" validate:"required,gt=0"`
	Operator    Operator   `yaml:"operator" json:"operator" validate:"required"`
	Threshold   *Threshold `yaml:"threshold" json:"threshold" validate:"required"`
	TrueBranch  string     `yaml:"true_branch" json:"true_branch" validate:"required"`
	FalseBranch string     `yaml:"false_branch" json:"false_branch" validate:"required"`
}

// DynamicThreshold derives a condition's threshold from a second indicator reading.
// The reading of Symbol2 is the threshold; Operator only labels the comparison.
type DynamicThreshold struct {
	Indicator string   `yaml:"indicator" json:"indicator"`
	Symbol1   string   `yaml:"etf1" json:"etf1"`
	Symbol2   string   `yaml:"etf2" json:"etf2"`
	Window    int      `yaml:"window,omitempty" json:"window,omitempty"`
	Operator  Operator `yaml:"operator,omitempty" json:"operator,omitempty"`
}

// WithDefaults fills the window and operator the way condition specs have always defaulted them.
func (d DynamicThreshold) WithDefaults() DynamicThreshold {
	if d.Window == 0 {
		d.Window = DefaultDynamicWindow
	}

	if d.Operator == "" {
		d.Operator = DefaultDynamicOperator
	}

	return d
}

// Threshold is either a constant or a dynamic comparison. Exactly one side is set.
type Threshold struct {
	Constant optional.Option[float64]
	Dynamic  optional.Option[DynamicThreshold]
}

// ConstantThreshold returns a threshold holding a literal value.
func ConstantThreshold(value float64) *Threshold {
	return &Threshold{
		Constant: optional.Some(value),
		Dynamic:  optional.None[DynamicThreshold](),
	}
}

// DynamicComparison returns a threshold resolved from two indicator readings.
func DynamicComparison(d DynamicThreshold) *Threshold {
	return &Threshold{
		Constant: optional.None[float64](),
		Dynamic:  optional.Some(d),
	}
}

// IsDynamic reports whether the threshold is resolved at evaluation time.
func (t *Threshold) IsDynamic() bool {
	return t != nil && t.Dynamic.IsSome()
}

func (t *Threshold) String() string {
	switch {
	case t == nil:
		return "<nil>"
	case t.Dynamic.IsSome():
		d := t.Dynamic.Unwrap().WithDefaults()

		return fmt.Sprintf("%s(%s, %d) %s %s(%s, %d)", d.Indicator, d.Symbol1, d.Window, d.Operator, d.Indicator, d.Symbol2, d.Window)
	case t.Constant.IsSome():
		return strconv.FormatFloat(t.Constant.Unwrap(), 'g', -1, 64)
	default:
		return "<empty>"
	}
}

// UnmarshalYAML decodes a scalar as a constant and a mapping as a dynamic comparison.
func (t *Threshold) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var constant float64
		if err := value.Decode(&constant); err != nil {
			return fmt.Errorf("threshold must be a number or a mapping: %w", err)
		}

		*t = *ConstantThreshold(constant)
	case yaml.MappingNode:
		var dynamic DynamicThreshold
		if err := value.Decode(&dynamic); err != nil {
			return fmt.Errorf("invalid dynamic threshold: %w", err)
		}

		*t = *DynamicComparison(dynamic)
	default:
		return fmt.Errorf("threshold must be a number or a mapping, got yaml kind %d", value.Kind)
	}

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Threshold) MarshalYAML() (any, error) {
	if t.Dynamic.IsSome() {
		return t.Dynamic.Unwrap(), nil
	}

	return t.Constant.TakeOr(0), nil
}

// UnmarshalJSON decodes a number as a constant and an object as a dynamic comparison.
func (t *Threshold) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var dynamic DynamicThreshold
		if err := json.Unmarshal(trimmed, &dynamic); err != nil {
			return fmt.Errorf("invalid dynamic threshold: %w", err)
		}

		*t = *DynamicComparison(dynamic)

		return nil
	}

	var constant float64
	if err := json.Unmarshal(trimmed, &constant); err != nil {
		return fmt.Errorf("threshold must be a number or an object: %w", err)
	}

	*t = *ConstantThreshold(constant)

	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Threshold) MarshalJSON() ([]byte, error) {
	if t.Dynamic.IsSome() {
		return json.Marshal(t.Dynamic.Unwrap())
	}

	return json.Marshal(t.Constant.TakeOr(0))
}
