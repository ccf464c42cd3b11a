package types

import "github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"

// Operator is the comparison applied between an indicator reading and its threshold.
type Operator string

const (
	OperatorGreaterThan        Operator = ">"
	OperatorLessThan           Operator = "<"
	OperatorGreaterThanOrEqual Operator = ">="
	OperatorLessThanOrEqual    Operator = "<="
	OperatorEqual              Operator = "=="
)

var AllOperators = []Operator{
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorGreaterThanOrEqual,
	OperatorLessThanOrEqual,
	OperatorEqual,
}

// Compare applies the operator to (left, right). NaN operands compare false.
func (o Operator) Compare(left, right float64) (bool, error) {
	switch o {
	case OperatorGreaterThan:
		return left > right, nil
	case OperatorLessThan:
		return left < right, nil
	case OperatorGreaterThanOrEqual:
		return left >= right, nil
	case OperatorLessThanOrEqual:
		return left <= right, nil
	case OperatorEqual:
		return left == right, nil
	default:
		return false, errors.Newf(errors.ErrCodeUnsupportedOperator, "unsupported operator: %s", string(o))
	}
}
