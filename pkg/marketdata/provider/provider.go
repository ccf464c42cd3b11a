package provider

import (
	"context"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/marketdata/writer"
)

type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
)

// OnDownloadProgress receives the bars written so far, the expected total and a label for the ticker.
type OnDownloadProgress = func(current float64, total float64, message string)

// Credentials authenticate a provider. Providers without authentication ignore them.
type Credentials struct {
	APIKey string
}

// Provider downloads daily bars into a writer.
type Provider interface {
	// ConfigWriter sets the destination of Download. The caller owns the writer's lifecycle.
	ConfigWriter(writer writer.MarketDataWriter)

	// Download writes the daily bars of ticker between startDate and endDate, both inclusive,
	// and returns how many were written. Cancelling ctx stops the download between pages.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (int, error)
}

// NewMarketDataProvider returns the provider registered under providerType.
func NewMarketDataProvider(providerType ProviderType, credentials Credentials) (Provider, error) {
	switch providerType {
	case ProviderPolygon:
		return NewPolygonClient(credentials.APIKey)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
