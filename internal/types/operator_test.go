package types

import (
	"math"
	"testing"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorCompare(t *testing.T) {
	tests := []struct {
		op       Operator
		left     float64
		right    float64
		expected bool
	}{
		{OperatorGreaterThan, 75, 70, true},
		{OperatorGreaterThan, 70, 70, false},
		{OperatorLessThan, 5, 10, true},
		{OperatorLessThan, 10, 10, false},
		{OperatorGreaterThanOrEqual, 70, 70, true},
		{OperatorGreaterThanOrEqual, 69.9, 70, false},
		{OperatorLessThanOrEqual, 10, 10, true},
		{OperatorLessThanOrEqual, 10.1, 10, false},
		{OperatorEqual, 0.025, 0.025, true},
		{OperatorEqual, 0.025, 0.026, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			got, err := tt.op.Compare(tt.left, tt.right)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOperatorCompareNaN(t *testing.T) {
	for _, op := range AllOperators {
		got, err := op.Compare(math.NaN(), 1)
		require.NoError(t, err)
		assert.False(t, got, string(op))
	}
}

func TestOperatorCompareUnsupported(t *testing.T) {
	_, err := Operator("!=").Compare(1, 2)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedOperator))
	assert.True(t, errors.IsConfigError(err))
}
