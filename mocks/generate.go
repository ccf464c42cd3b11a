package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/datasource DataSource
//go:generate mockgen -destination=./mock_indicator.go -package=mocks github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/indicator Indicator
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/marketdata/provider Provider
