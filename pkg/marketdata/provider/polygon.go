package provider

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/marketdata/writer"
)

// PolygonAggsIterator is the part of the polygon aggregates iterator the client reads.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the part of the polygon REST client used for downloads.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPIAdapter struct {
	client *polygon.Client
}

func (a *polygonAPIAdapter) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return a.client.ListAggs(ctx, params, options...)
}

type PolygonClient struct {
	apiClient PolygonAPIClient
	writer    writer.MarketDataWriter
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "apiKey is required")
	}

	return NewPolygonClientWithAPI(&polygonAPIAdapter{client: polygon.New(apiKey)}), nil
}

// NewPolygonClientWithAPI creates a client on top of the given API, used by tests.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: apiClient,
		writer:    nil,
	}
}

func (c *PolygonClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download implements Provider. Bars are split-adjusted and stamped at midnight UTC
// of their trading date.
func (c *PolygonClient) Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (int, error) {
	if c.writer == nil {
		return 0, errors.New(errors.ErrCodeMarketDataWriteFailed, "no writer configured for PolygonClient. Call ConfigWriter first")
	}

	totalDays := endDate.Sub(startDate).Hours()/24 + 1
	message := fmt.Sprintf("Downloading %s", ticker)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithAdjusted(true).WithOrder(models.Asc).WithLimit(50000)

	iter := c.apiClient.ListAggs(ctx, params)

	written := 0

	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		agg := iter.Item()
		day := tradingDate(time.Time(agg.Timestamp))

		err := c.writer.Write(types.MarketData{
			Id:     "",
			Symbol: ticker,
			Time:   day,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
		if err != nil {
			return written, err
		}

		written++

		if onProgress != nil {
			onProgress(day.Sub(startDate).Hours()/24+1, totalDays, message)
		}
	}

	if err := iter.Err(); err != nil {
		return written, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "error iterating polygon aggregates of %s", ticker)
	}

	if onProgress != nil {
		onProgress(totalDays, totalDays, message)
	}

	return written, nil
}

// tradingDate maps a daily aggregate timestamp, which polygon reports at the
// exchange's midnight, to midnight UTC of the same calendar date.
func tradingDate(t time.Time) time.Time {
	year, month, day := t.In(newYork).Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var newYork = mustLoadLocation("America/New_York")

// mustLoadLocation panics when name is not in the embedded time zone database.
func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load time zone %s: %v", name, err))
	}

	return loc
}
