package main

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ProviderTestSuite struct {
	suite.Suite
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

func (suite *ProviderTestSuite) TestCheckProvider() {
	suite.NoError(checkProvider(MarketProviderPolygon))

	err := checkProvider("binance")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "unsupported provider")
	suite.Contains(err.Error(), "polygon")
}

func (suite *ProviderTestSuite) TestCheckWriter() {
	suite.NoError(checkWriter(MarketWriterDuckDB))

	err := checkWriter("csv")
	suite.Require().Error(err)
	suite.Contains(err.Error(), `unsupported writer "csv"`)
	suite.Contains(err.Error(), "duckdb")
}
