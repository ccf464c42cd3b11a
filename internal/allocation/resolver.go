// Package allocation turns the sizing produced by a graph evaluation into the
// order map handed to the harness.
package allocation

import (
	"sort"

	"github.com/moznion/go-optional"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Resolver maps allocations onto a fixed universe of tradable symbols.
type Resolver struct {
	logger *logger.Logger
}

// NewResolver creates a resolver. A nil logger discards the unknown symbol warnings.
func NewResolver(log *logger.Logger) *Resolver {
	return &Resolver{logger: logger.OrNop(log)}
}

// ToOrders returns one entry per universe symbol: the allocated value when the
// symbol is in allocations, 0 otherwise. Allocation symbols outside the universe
// are dropped with a warning and returned, sorted, as the second value.
func (r *Resolver) ToOrders(universe []string, allocations types.Allocation) (types.Allocation, []string) {
	orders := make(types.Allocation, len(universe))
	for _, symbol := range universe {
		orders[symbol] = 0
	}

	var dropped []string

	for symbol, value := range allocations {
		if _, ok := orders[symbol]; !ok {
			dropped = append(dropped, symbol)

			continue
		}

		orders[symbol] = value
	}

	sort.Strings(dropped)

	for _, symbol := range dropped {
		r.logger.Warn("Allocation references a symbol outside the universe, dropping it",
			zap.String("symbol", symbol),
			zap.Float64("value", allocations[symbol]))
	}

	return orders, dropped
}

// RoundQuantities truncates every order toward zero to the given number of decimal
// places. Orders are returned unchanged when no precision is set.
func RoundQuantities(orders types.Allocation, precision optional.Option[int]) types.Allocation {
	if precision.IsNone() {
		return orders.Clone()
	}

	places := int32(precision.Unwrap())
	rounded := make(types.Allocation, len(orders))

	for symbol, quantity := range orders {
		value, _ := decimal.NewFromFloat(quantity).Truncate(places).Float64()
		rounded[symbol] = value
	}

	return rounded
}
