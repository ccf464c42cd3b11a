package datasource

import (
	"sync"
	"testing"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// countingDataSource records how often each method reaches the wrapped source.
type countingDataSource struct {
	DataSource
	mu          sync.Mutex
	seriesCalls int
	priceCalls  int
	symbolCalls int
}

func (c *countingDataSource) Symbols() ([]string, error) {
	c.mu.Lock()
	c.symbolCalls++
	c.mu.Unlock()

	return c.DataSource.Symbols()
}

func (c *countingDataSource) GetSeries(symbol string, end time.Time) ([]types.MarketData, error) {
	c.mu.Lock()
	c.seriesCalls++
	c.mu.Unlock()

	return c.DataSource.GetSeries(symbol, end)
}

func (c *countingDataSource) GetPriceAsOf(symbol string, at time.Time) (types.MarketData, error) {
	c.mu.Lock()
	c.priceCalls++
	c.mu.Unlock()

	return c.DataSource.GetPriceAsOf(symbol, at)
}

type CachedDataSourceTestSuite struct {
	suite.Suite
	counting *countingDataSource
	cached   *CachedDataSource
	base     time.Time
}

func TestCachedDataSourceSuite(t *testing.T) {
	suite.Run(t, new(CachedDataSourceTestSuite))
}

func (suite *CachedDataSourceTestSuite) SetupTest() {
	suite.base = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	bars := make([]types.MarketData, 0, 50)
	for i := 0; i < 50; i++ {
		bars = append(bars, types.MarketData{
			Symbol: "AAPL",
			Time:   suite.base.AddDate(0, 0, i),
			Close:  100.5 + float64(i),
		})
	}

	suite.counting = &countingDataSource{DataSource: NewInMemoryDataSource(bars)}
	suite.cached = NewCachedDataSource(suite.counting)
}

func (suite *CachedDataSourceTestSuite) TestCachingSeries() {
	end := suite.base.AddDate(0, 0, 10)

	first, err := suite.cached.GetSeries("AAPL", end)
	suite.Require().NoError(err)
	second, err := suite.cached.GetSeries("AAPL", end)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Equal(1, suite.counting.seriesCalls)

	_, err = suite.cached.GetSeries("AAPL", end.AddDate(0, 0, 1))
	suite.Require().NoError(err)
	suite.Equal(2, suite.counting.seriesCalls)
}

func (suite *CachedDataSourceTestSuite) TestCachingErrors() {
	_, err := suite.cached.GetSeries("MSFT", suite.base)
	suite.Require().Error(err)
	_, err = suite.cached.GetSeries("MSFT", suite.base)
	suite.Require().Error(err)

	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
	suite.Equal(1, suite.counting.seriesCalls)
}

func (suite *CachedDataSourceTestSuite) TestCachingPriceAsOf() {
	at := suite.base.AddDate(0, 0, 3)

	for i := 0; i < 3; i++ {
		bar, err := suite.cached.GetPriceAsOf("AAPL", at)
		suite.Require().NoError(err)
		suite.Equal(103.5, bar.Close)
	}

	suite.Equal(1, suite.counting.priceCalls)
}

func (suite *CachedDataSourceTestSuite) TestCachingSymbols() {
	for i := 0; i < 3; i++ {
		symbols, err := suite.cached.Symbols()
		suite.Require().NoError(err)
		suite.Equal([]string{"AAPL"}, symbols)
	}

	suite.Equal(1, suite.counting.symbolCalls)
}

func (suite *CachedDataSourceTestSuite) TestClearCache() {
	end := suite.base.AddDate(0, 0, 5)

	_, err := suite.cached.GetSeries("AAPL", end)
	suite.Require().NoError(err)
	_, err = suite.cached.Symbols()
	suite.Require().NoError(err)

	suite.cached.ClearCache()

	_, err = suite.cached.GetSeries("AAPL", end)
	suite.Require().NoError(err)
	_, err = suite.cached.Symbols()
	suite.Require().NoError(err)

	suite.Equal(2, suite.counting.seriesCalls)
	suite.Equal(2, suite.counting.symbolCalls)
}

func (suite *CachedDataSourceTestSuite) TestConcurrentAccess() {
	end := suite.base.AddDate(0, 0, 20)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			series, err := suite.cached.GetSeries("AAPL", end)
			suite.NoError(err)
			suite.Len(series, 21)
		}()
	}

	wg.Wait()
	suite.Equal(1, suite.counting.seriesCalls)
}
