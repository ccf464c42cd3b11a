package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/marketdata/provider"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// ProviderType names a provider registered in the provider package.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
)

// WriterType defines the type of market data writer.
type WriterType string

const (
	WriterDuckDB WriterType = "duckdb"
)

// GetSupportedWriters returns the writer names setupWriter accepts.
func GetSupportedWriters() []string {
	return []string{string(WriterDuckDB)}
}

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  ProviderType `validate:"required,oneof=polygon"`
	WriterType    WriterType   `validate:"required,oneof=duckdb"`
	DataPath      string       `validate:"required"`
	PolygonApiKey string       `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Tickers   []string  `validate:"required,min=1,dive,required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtefield=StartDate"`
}

// Client downloads the tickers of a request from one provider into a single Parquet file.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
	log        *logger.Logger
}

// NewClient validates config and creates the provider it names.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress, log *logger.Logger) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	marketProvider, err := provider.NewMarketDataProvider(provider.ProviderType(config.ProviderType), provider.Credentials{
		APIKey: config.PolygonApiKey,
	})
	if err != nil {
		return nil, err
	}

	return NewClientWithProvider(config, marketProvider, onProgress, log), nil
}

// NewClientWithProvider creates a client on top of an existing provider.
// The configuration is not validated.
func NewClientWithProvider(config ClientConfig, marketProvider provider.Provider, onProgress provider.OnDownloadProgress, log *logger.Logger) *Client {
	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validator.New(),
		onProgress: onProgress,
		log:        logger.OrNop(log),
	}
}

// Download fetches the daily bars of every ticker and returns the path of the written file.
// The context can be used to cancel the download operation.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	marketWriter, err := c.setupWriter(params)
	if err != nil {
		return "", err
	}

	defer func() {
		if closeErr := marketWriter.Close(); closeErr != nil {
			c.log.Warn("Failed to close writer", zap.Error(closeErr))
		}
	}()

	c.provider.ConfigWriter(marketWriter)

	for _, ticker := range params.Tickers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		count, err := c.provider.Download(ctx, ticker, params.StartDate, params.EndDate, c.onProgress)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "download of %s failed", ticker)
		}

		c.log.Info("Downloaded daily bars",
			zap.String("ticker", ticker),
			zap.Int("bars", count),
		)
	}

	return marketWriter.Finalize()
}

// setupWriter initializes the appropriate market data writer based on configuration.
func (c *Client) setupWriter(params DownloadParams) (writer.MarketDataWriter, error) {
	switch c.config.WriterType {
	case WriterDuckDB:
		outputPath := filepath.Join(c.config.DataPath, OutputFileName(params))

		if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create %s", c.config.DataPath)
		}

		duckdbWriter := writer.NewDuckDBWriter(outputPath, c.log)

		if err := duckdbWriter.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize DuckDB writer at %s: %w", outputPath, err)
		}

		return duckdbWriter, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported writer type: %s", c.config.WriterType)
	}
}

// OutputFileName names the Parquet file of a download: daily_START_END.parquet.
func OutputFileName(params DownloadParams) string {
	return fmt.Sprintf("daily_%s_%s.parquet",
		params.StartDate.Format(time.DateOnly),
		params.EndDate.Format(time.DateOnly))
}
