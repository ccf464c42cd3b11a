package main

import (
	"fmt"
	"slices"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/marketdata"
)

type MarketProvider = string

type MarketWriter = string

const (
	MarketProviderPolygon MarketProvider = "polygon"
)

const (
	MarketWriterDuckDB MarketWriter = "duckdb"
)

// checkProvider rejects providers the market data package does not register.
func checkProvider(name MarketProvider) error {
	return checkSupported("provider", name, marketdata.GetSupportedProviders())
}

// checkWriter rejects output formats the market data client cannot write.
func checkWriter(name MarketWriter) error {
	return checkSupported("writer", name, marketdata.GetSupportedWriters())
}

func checkSupported(kind, name string, supported []string) error {
	if !slices.Contains(supported, name) {
		return fmt.Errorf("unsupported %s %q, supported: %v", kind, name, supported)
	}

	return nil
}
