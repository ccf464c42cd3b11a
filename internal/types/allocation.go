package types

import (
	"fmt"
	"sort"
	"strings"
)

// Allocation maps a symbol to a weight or, once sized, to an order quantity.
type Allocation map[string]float64

// ActionSpecs maps an action name to its target weights. Weights may be negative
// and are not required to sum to one.
type ActionSpecs map[string]Allocation

// Symbols returns the allocation's symbols in sorted order.
func (a Allocation) Symbols() []string {
	symbols := make([]string, 0, len(a))
	for symbol := range a {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Clone returns a copy that shares no storage with a.
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}

	c := make(Allocation, len(a))
	for symbol, weight := range a {
		c[symbol] = weight
	}

	return c
}

// String renders the weights as percentages, e.g. "SPY: 50.0%, TLT: 50.0%".
func (a Allocation) String() string {
	parts := make([]string, 0, len(a))
	for _, symbol := range a.Symbols() {
		parts = append(parts, fmt.Sprintf("%s: %.1f%%", symbol, a[symbol]*100))
	}

	return strings.Join(parts, ", ")
}
