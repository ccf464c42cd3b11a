package marketdata

import (
	"maps"
	"slices"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/strategy"
)

// ProviderInfo describes a market data provider to CLI users.
type ProviderInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
}

type providerEntry struct {
	info   ProviderInfo
	schema func() (string, error)
	parse  func(jsonConfig string) (any, error)
}

var providers = map[ProviderType]providerEntry{
	ProviderPolygon: {
		info: ProviderInfo{
			Name:         string(ProviderPolygon),
			DisplayName:  "Polygon.io",
			Description:  "US stock and ETF daily OHLCV aggregates",
			RequiresAuth: true,
		},
		schema: func() (string, error) {
			//nolint:exhaustruct // zero value only drives schema reflection
			return strategy.SchemaOf(PolygonDownloadConfig{})
		},
		parse: func(jsonConfig string) (any, error) {
			config, err := ParsePolygonConfig(jsonConfig)
			if err != nil {
				return nil, err
			}

			return config, nil
		},
	},
}

func lookupProvider(name string) (providerEntry, error) {
	entry, ok := providers[ProviderType(name)]
	if !ok {
		return providerEntry{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", name)
	}

	return entry, nil
}

// GetSupportedProviders returns the registered provider names in sorted order.
func GetSupportedProviders() []string {
	names := make([]string, 0, len(providers))
	for _, providerType := range slices.Sorted(maps.Keys(providers)) {
		names = append(names, string(providerType))
	}

	return names
}

func GetProviderInfo(providerName string) (ProviderInfo, error) {
	entry, err := lookupProvider(providerName)
	if err != nil {
		return ProviderInfo{}, err
	}

	return entry.info, nil
}

// GetDownloadConfigSchema returns the JSON schema of the named provider's download config.
func GetDownloadConfigSchema(providerName string) (string, error) {
	entry, err := lookupProvider(providerName)
	if err != nil {
		return "", err
	}

	return entry.schema()
}

// ParseDownloadConfig parses jsonConfig into the named provider's config type,
// for example *PolygonDownloadConfig.
func ParseDownloadConfig(providerName string, jsonConfig string) (any, error) {
	entry, err := lookupProvider(providerName)
	if err != nil {
		return nil, err
	}

	return entry.parse(jsonConfig)
}
