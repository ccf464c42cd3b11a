package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	ds     *DuckDBDataSource
	tmpDir string
	base   time.Time
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupSuite() {
	suite.tmpDir = suite.T().TempDir()
	suite.base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var data []types.MarketData
	for i := 0; i < 10; i++ {
		data = append(data,
			types.MarketData{
				Symbol: "SPY",
				Time:   suite.base.AddDate(0, 0, i),
				Open:   100 + float64(i),
				High:   101 + float64(i),
				Low:    99 + float64(i),
				Close:  100.5 + float64(i),
				Volume: 1000,
			},
			types.MarketData{
				Symbol: "TLT",
				Time:   suite.base.AddDate(0, 0, i+5),
				Open:   90,
				High:   91,
				Low:    89,
				Close:  90 + float64(i),
				Volume: 500,
			},
		)
	}

	path := filepath.Join(suite.tmpDir, "market.parquet")
	suite.Require().NoError(writeTestDataToParquet(data, path))

	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(ds.Initialize(path))
	suite.ds = ds
}

func (suite *DuckDBDataSourceTestSuite) TearDownSuite() {
	if suite.ds != nil {
		suite.ds.Close()
	}
}

// writeTestDataToParquet writes test data to a parquet file
func writeTestDataToParquet(data []types.MarketData, filePath string) error {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE market_data (
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return err
	}

	for _, d := range data {
		_, err = db.Exec(`
			INSERT INTO market_data VALUES (?, ?, ?, ?, ?, ?, ?)
		`, d.Time, d.Symbol, d.Open, d.High, d.Low, d.Close, d.Volume)
		if err != nil {
			return err
		}
	}

	_, err = db.Exec(fmt.Sprintf(`
		COPY market_data TO '%s' (FORMAT PARQUET)
	`, filePath))

	return err
}

func (suite *DuckDBDataSourceTestSuite) TestSymbols() {
	symbols, err := suite.ds.Symbols()
	suite.Require().NoError(err)
	suite.Equal([]string{"SPY", "TLT"}, symbols)
}

func (suite *DuckDBDataSourceTestSuite) TestGetSeries() {
	series, err := suite.ds.GetSeries("SPY", suite.base.AddDate(0, 0, 4))
	suite.Require().NoError(err)
	suite.Require().Len(series, 5)
	suite.Equal([]float64{100.5, 101.5, 102.5, 103.5, 104.5}, types.Closes(series))
	suite.True(series[0].Time.Equal(suite.base))
	suite.Equal("SPY", series[0].Symbol)
}

func (suite *DuckDBDataSourceTestSuite) TestGetSeriesNoData() {
	_, err := suite.ds.GetSeries("TLT", suite.base.AddDate(0, 0, 2))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))

	_, err = suite.ds.GetSeries("QQQ", suite.base.AddDate(0, 1, 0))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *DuckDBDataSourceTestSuite) TestGetPriceAsOf() {
	bar, err := suite.ds.GetPriceAsOf("TLT", suite.base.AddDate(0, 0, 7).Add(12*time.Hour))
	suite.Require().NoError(err)
	suite.Equal(92.0, bar.Close)

	_, err = suite.ds.GetPriceAsOf("TLT", suite.base)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoPriceAsOf))
}

func (suite *DuckDBDataSourceTestSuite) TestInitializeCSV() {
	path := filepath.Join(suite.tmpDir, "market.csv")
	content := "time,symbol,open,high,low,close,volume\n" +
		"2024-01-01 00:00:00,IEF,95,96,94,95.5,100\n" +
		"2024-01-02 00:00:00,IEF,96,97,95,96.5,100\n"
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	ds, err := NewDataSource(":memory:", nil)
	suite.Require().NoError(err)
	defer ds.Close()

	suite.Require().NoError(ds.Initialize(path))

	bar, err := ds.GetPriceAsOf("IEF", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	suite.Require().NoError(err)
	suite.Equal(96.5, bar.Close)
}

func (suite *DuckDBDataSourceTestSuite) TestInitializeMissingFile() {
	ds, err := NewDataSource(":memory:", nil)
	suite.Require().NoError(err)
	defer ds.Close()

	err = ds.Initialize(filepath.Join(suite.tmpDir, "missing.parquet"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}
