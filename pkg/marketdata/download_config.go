package marketdata

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// PolygonDownloadConfig is the JSON form of a Polygon.io download request.
type PolygonDownloadConfig struct {
	Tickers   []string `json:"tickers" jsonschema:"title=Tickers,description=Symbols to download daily bars for,required" validate:"required,min=1,dive,required"`
	StartDate string   `json:"startDate" jsonschema:"title=Start Date,description=First trading date (YYYY-MM-DD),format=date,required" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"endDate" jsonschema:"title=End Date,description=Last trading date (YYYY-MM-DD),format=date,required" validate:"required,datetime=2006-01-02"`
	ApiKey    string   `json:"apiKey" jsonschema:"title=API Key,description=Polygon.io API key for authentication,required" validate:"required"`
}

// Validate checks the required fields and that the date range is not reversed.
func (c *PolygonDownloadConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	_, err := c.ToDownloadParams()

	return err
}

// ToDownloadParams parses the dates and normalizes the tickers to trimmed upper case,
// dropping duplicates.
func (c *PolygonDownloadConfig) ToDownloadParams() (DownloadParams, error) {
	startDate, err := time.Parse(time.DateOnly, c.StartDate)
	if err != nil {
		return DownloadParams{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid startDate, expected YYYY-MM-DD", err)
	}

	endDate, err := time.Parse(time.DateOnly, c.EndDate)
	if err != nil {
		return DownloadParams{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid endDate, expected YYYY-MM-DD", err)
	}

	if endDate.Before(startDate) {
		return DownloadParams{}, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"endDate %s is before startDate %s", c.EndDate, c.StartDate)
	}

	tickers := make([]string, 0, len(c.Tickers))
	for _, ticker := range c.Tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker != "" && !slices.Contains(tickers, ticker) {
			tickers = append(tickers, ticker)
		}
	}

	return DownloadParams{Tickers: tickers, StartDate: startDate, EndDate: endDate}, nil
}

// ToClientConfig returns the client configuration that writes the download under dataPath.
func (c *PolygonDownloadConfig) ToClientConfig(dataPath string) ClientConfig {
	return ClientConfig{
		ProviderType:  ProviderPolygon,
		WriterType:    WriterDuckDB,
		DataPath:      dataPath,
		PolygonApiKey: c.ApiKey,
	}
}

// ParsePolygonConfig decodes and validates a JSON download config.
func ParsePolygonConfig(jsonConfig string) (*PolygonDownloadConfig, error) {
	var config PolygonDownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// String hides the API key.
func (c *PolygonDownloadConfig) String() string {
	return fmt.Sprintf("polygon %v %s..%s", c.Tickers, c.StartDate, c.EndDate)
}
