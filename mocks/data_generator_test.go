package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DataGeneratorTestSuite struct {
	suite.Suite
}

func TestDataGeneratorSuite(t *testing.T) {
	suite.Run(t, new(DataGeneratorTestSuite))
}

func (suite *DataGeneratorTestSuite) TestGenerateWeekdayBars() {
	config := DefaultConfig()
	config.Days = 100

	bars := NewDataGenerator(42).Generate(config)
	suite.Require().Len(bars, 100)

	for i, bar := range bars {
		suite.Equal(config.Symbol, bar.Symbol)
		suite.Positive(bar.Close)
		suite.LessOrEqual(bar.Low, bar.High)
		suite.NotContains([]time.Weekday{time.Saturday, time.Sunday}, bar.Time.Weekday(), "bar %d", i)
		suite.Equal(0, bar.Time.Hour())

		if i > 0 {
			gap := bar.Time.Sub(bars[i-1].Time)
			suite.Contains([]time.Duration{24 * time.Hour, 72 * time.Hour}, gap, "bar %d", i)
			// each bar opens at the previous close
			suite.InDelta(bars[i-1].Close, bar.Open, 1e-4)
		}
	}
}

func (suite *DataGeneratorTestSuite) TestWeekendStartMovesToMonday() {
	config := DefaultConfig()
	config.StartDate = time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC) // Saturday
	config.Days = 1

	bars := NewDataGenerator(1).Generate(config)

	suite.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), bars[0].Time)
}

func (suite *DataGeneratorTestSuite) TestIncludeWeekends() {
	config := DefaultConfig()
	config.IncludeWeekends = true
	config.Days = 14

	bars := NewDataGenerator(42).Generate(config)

	for i := 1; i < len(bars); i++ {
		suite.Equal(24*time.Hour, bars[i].Time.Sub(bars[i-1].Time))
	}
}

func (suite *DataGeneratorTestSuite) TestRegimes() {
	config := DefaultConfig()
	config.Days = 20
	config.Regimes = []Regime{
		{Days: 10, Drift: 0.01, Volatility: 0},
		{Days: 10, Drift: -0.01, Volatility: 0},
	}

	bars := NewDataGenerator(7).Generate(config)

	for i := 1; i < 10; i++ {
		suite.Greater(bars[i].Close, bars[i-1].Close, "bar %d", i)
	}

	for i := 11; i < 20; i++ {
		suite.Less(bars[i].Close, bars[i-1].Close, "bar %d", i)
	}
}

func (suite *DataGeneratorTestSuite) TestReproducibility() {
	config := DefaultConfig()
	config.Days = 10

	suite.Equal(NewDataGenerator(42).Generate(config), NewDataGenerator(42).Generate(config))
	suite.NotEqual(NewDataGenerator(42).Generate(config), NewDataGenerator(123).Generate(config))
}

func (suite *DataGeneratorTestSuite) TestGenerateMultiSymbol() {
	symbols := []string{"SPY", "TLT", "QQQ"}
	config := DefaultConfig()
	config.Days = 50

	bars := NewDataGenerator(42).GenerateMultiSymbol(symbols, config)
	suite.Len(bars, len(symbols)*config.Days)

	counts := make(map[string]int)
	for _, bar := range bars {
		counts[bar.Symbol]++
	}

	for _, symbol := range symbols {
		suite.Equal(config.Days, counts[symbol], symbol)
	}
}

func (suite *DataGeneratorTestSuite) TestGenerateYear() {
	bars := GenerateYear("SPY", "TLT")

	suite.Len(bars, 2*260)
	suite.Equal("SPY", bars[0].Symbol)
	suite.Equal("TLT", bars[len(bars)-1].Symbol)
	// 2024-01-01 is a Monday
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time)
}

func (suite *DataGeneratorTestSuite) TestDefaultConfig() {
	config := DefaultConfig()

	suite.Equal("TEST", config.Symbol)
	suite.Equal(260, config.Days)
	suite.False(config.IncludeWeekends)
	suite.Equal(100.0, config.InitialPrice)
}
