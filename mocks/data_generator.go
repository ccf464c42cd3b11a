package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
)

// DataGenerator produces deterministic daily bars for indicator and engine tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Regime overrides the drift and volatility of a span of consecutive trading days.
type Regime struct {
	Days       int
	Drift      float64
	Volatility float64
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	Symbol string

	// StartDate is truncated to midnight UTC. A weekend start moves to the next Monday
	// unless IncludeWeekends is set.
	StartDate time.Time

	// Days is the number of bars to generate.
	Days            int
	IncludeWeekends bool
	InitialPrice    float64

	// Drift and Volatility are the mean and standard deviation of the daily log return.
	Drift      float64
	Volatility float64

	// Regimes are applied in order from the first bar; days past the last regime use
	// Drift and Volatility.
	Regimes    []Regime
	VolumeBase float64
}

// DefaultConfig returns a year of weekday bars starting on Monday 2024-01-01.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:          "TEST",
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:            260,
		IncludeWeekends: false,
		InitialPrice:    100.0,
		Drift:           0.0,
		Volatility:      0.01,
		Regimes:         nil,
		VolumeBase:      1000000,
	}
}

// Generate returns config.Days bars in chronological order. Prices follow a
// geometric random walk, so they stay positive.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	bars := make([]types.MarketData, 0, config.Days)
	day := nextDay(truncateUTC(config.StartDate), config.IncludeWeekends)
	price := config.InitialPrice

	for i := 0; i < config.Days; i++ {
		drift, volatility := config.regimeAt(i)

		open := price
		price = open * math.Exp(drift+volatility*g.rng.NormFloat64())

		wick := math.Abs(g.rng.NormFloat64()) * volatility / 2

		bars = append(bars, types.MarketData{
			Id:     "",
			Symbol: config.Symbol,
			Time:   day,
			Open:   round(open, 4),
			High:   round(math.Max(open, price)*(1+wick), 4),
			Low:    round(math.Min(open, price)*(1-wick), 4),
			Close:  round(price, 4),
			Volume: round(config.VolumeBase*(0.7+0.6*g.rng.Float64()), 0),
		})

		day = nextDay(day.AddDate(0, 0, 1), config.IncludeWeekends)
	}

	return bars
}

// GenerateMultiSymbol generates one series per symbol, varying the initial price
// and volatility of each by up to 20%.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.MarketData {
	var bars []types.MarketData

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		bars = append(bars, g.Generate(config)...)
	}

	return bars
}

// GenerateYear generates a year of daily bars for each symbol with a fixed seed.
func GenerateYear(symbols ...string) []types.MarketData {
	return NewDataGenerator(42).GenerateMultiSymbol(symbols, DefaultConfig())
}

func (c GeneratorConfig) regimeAt(index int) (float64, float64) {
	for _, regime := range c.Regimes {
		if index < regime.Days {
			return regime.Drift, regime.Volatility
		}

		index -= regime.Days
	}

	return c.Drift, c.Volatility
}

func nextDay(t time.Time, includeWeekends bool) time.Time {
	for !includeWeekends && (t.Weekday() == time.Saturday || t.Weekday() == time.Sunday) {
		t = t.AddDate(0, 0, 1)
	}

	return t
}

func truncateUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(value*pow) / pow
}
