package graph

import (
	"bytes"
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/datasource"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/indicator"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(i int) time.Time {
	return base.AddDate(0, 0, i)
}

// seriesSource builds a data source where closes[i] is the close of day i.
func seriesSource(series map[string][]float64) *datasource.InMemoryDataSource {
	points := make(map[string]map[time.Time]float64, len(series))

	for symbol, closes := range series {
		points[symbol] = make(map[time.Time]float64, len(closes))
		for i, c := range closes {
			points[symbol][day(i)] = c
		}
	}

	return datasource.NewInMemoryDataSourceFromSeries(points)
}

func rsiCondition(name string, threshold float64, trueBranch, falseBranch string) types.ConditionSpec {
	return types.ConditionSpec{
		NodeName:    name,
		Indicator:   "RSI",
		Symbol:      "QQQ",
		Window:      20,
		Operator:    types.OperatorGreaterThan,
		Threshold:   types.ConstantThreshold(threshold),
		TrueBranch:  trueBranch,
		FalseBranch: falseBranch,
	}
}

type GraphTestSuite struct {
	suite.Suite
	actions types.ActionSpecs
}

func TestGraphSuite(t *testing.T) {
	suite.Run(t, new(GraphTestSuite))
}

func (suite *GraphTestSuite) SetupTest() {
	suite.actions = types.ActionSpecs{
		"act1": {"SPY": 1.0},
		"act2": {"TLT": 1.0},
	}
}

func (suite *GraphTestSuite) evaluationContext(ds datasource.DataSource) EvaluationContext {
	return EvaluationContext{
		Time:        day(2),
		SizingDate:  day(3),
		InitialCash: 10000,
		DataSource:  ds,
	}
}

func (suite *GraphTestSuite) TestEndToEndRSIAboveThreshold() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	// RSI(QQQ, 20) on day 2 is 75
	ds := seriesSource(map[string][]float64{
		"QQQ": {100, 103, 102.05},
		"SPY": {390, 395, 400, 500},
		"TLT": {90, 95, 99, 100},
	})

	result, err := g.Evaluate(context.Background(), suite.evaluationContext(ds))
	suite.Require().NoError(err)

	suite.Equal("act1", result.Action)
	suite.Equal(types.Allocation{"SPY": 1.0 * 10000 / 500}, result.Allocation)

	suite.Require().Len(result.Trace, 2)
	suite.Equal("root", result.Trace[0].Node)
	suite.InDelta(75.0, result.Trace[0].IndicatorValue, 1e-9)
	suite.Equal(70.0, result.Trace[0].ThresholdValue)
	suite.True(result.Trace[0].Result)
	suite.Equal("act1", result.Trace[0].Branch)
	suite.Equal(StepKindAction, result.Trace[1].Kind)
}

func (suite *GraphTestSuite) TestEndToEndRSIBelowThreshold() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	// RSI(QQQ, 20) on day 2 is 40
	ds := seriesSource(map[string][]float64{
		"QQQ": {100, 102, 99.15},
		"SPY": {390, 395, 400, 500},
		"TLT": {90, 95, 99, 100},
	})

	result, err := g.Evaluate(context.Background(), suite.evaluationContext(ds))
	suite.Require().NoError(err)

	suite.Equal("act2", result.Action)
	suite.Equal(types.Allocation{"TLT": 1.0 * 10000 / 100}, result.Allocation)
	suite.InDelta(40.0, result.Trace[0].IndicatorValue, 1e-9)
	suite.False(result.Trace[0].Result)
}

func (suite *GraphTestSuite) TestSizingUsesPriceAsOfSizingDate() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, types.ActionSpecs{
		"act1": {"SPY": 0.5, "TLT": -0.25},
		"act2": {"TLT": 1.0},
	}, BuildOptions{})
	suite.Require().NoError(err)

	// no bar on the sizing date, the day 2 prices apply
	ds := seriesSource(map[string][]float64{
		"QQQ": {100, 103, 102.05},
		"SPY": {390, 395, 400},
		"TLT": {90, 95, 80},
	})

	result, err := g.Evaluate(context.Background(), suite.evaluationContext(ds))
	suite.Require().NoError(err)
	suite.InDelta(0.5*10000/400, result.Allocation["SPY"], 1e-12)
	suite.InDelta(-0.25*10000/80, result.Allocation["TLT"], 1e-12)
}

func (suite *GraphTestSuite) TestDynamicThresholdResolvesToSecondReading() {
	bnd := make([]float64, 80)
	bil := make([]float64, 80)

	for i := range bnd {
		bnd[i] = 100 + 5*math.Sin(float64(i)/7)
		bil[i] = 100 * math.Pow(1.0002, float64(i))
	}

	ones := make([]float64, 80)
	for i := range ones {
		ones[i] = 1
	}

	ds := seriesSource(map[string][]float64{"BND": bnd, "BIL": bil, "SPY": ones, "TLT": ones})
	at := day(79)
	expected := indicator.CumulativeReturn(bil, 60)
	bndReading := indicator.CumulativeReturn(bnd, 60)

	for _, op := range types.AllOperators {
		resolver, err := newThresholdResolver(types.DynamicComparison(types.DynamicThreshold{
			Indicator: "Cumulative Return",
			Symbol1:   "BND",
			Symbol2:   "BIL",
			Window:    60,
			Operator:  op,
		}))
		suite.Require().NoError(err)

		state := &evaluationState{
			ec:           EvaluationContext{Time: at, SizingDate: at, InitialCash: 1, DataSource: ds},
			registry:     indicator.NewDefaultRegistry(),
			indicatorCtx: indicator.IndicatorContext{DataSource: ds},
		}

		resolution, err := resolver.Resolve(state)
		suite.Require().NoError(err)
		suite.Equal(expected, resolution.Value, "operator %s", op)
		suite.InDelta(bndReading, resolution.Reference.Unwrap(), 1e-15)
	}

	// the first reading is reported in the trace and the log, never compared
	core, logs := observer.New(zapcore.DebugLevel)
	g, err := Build([]types.ConditionSpec{{
		NodeName:  "root",
		Indicator: "RSI",
		Symbol:    "BND",
		Window:    20,
		Operator:  types.OperatorGreaterThan,
		Threshold: types.DynamicComparison(types.DynamicThreshold{
			Indicator: "Cumulative Return",
			Symbol1:   "BND",
			Symbol2:   "BIL",
			Window:    60,
		}),
		TrueBranch:  "act1",
		FalseBranch: "act2",
	}}, suite.actions, BuildOptions{Logger: &logger.Logger{Logger: zap.New(core)}})
	suite.Require().NoError(err)

	result, err := g.Evaluate(context.Background(), EvaluationContext{Time: at, SizingDate: at, InitialCash: 1, DataSource: ds})
	suite.Require().NoError(err)

	step := result.Trace[0]
	suite.Equal(expected, step.ThresholdValue)
	suite.Require().NotNil(step.ReferenceValue)
	suite.InDelta(bndReading, *step.ReferenceValue, 1e-15)

	resolved := logs.FilterMessage("Condition resolved").All()
	suite.Require().Len(resolved, 1)
	suite.InDelta(bndReading, resolved[0].ContextMap()["reference_value"], 1e-15)
}

func (suite *GraphTestSuite) TestConstantThresholdHasNoReferenceValue() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	result, err := g.Evaluate(context.Background(), suite.evaluationContext(seriesSource(map[string][]float64{
		"QQQ": {100, 103, 102.05},
		"SPY": {1, 1, 1, 1},
	})))
	suite.Require().NoError(err)
	suite.Nil(result.Trace[0].ReferenceValue)
	suite.Equal("RSI", result.Trace[0].Indicator)
}

func (suite *GraphTestSuite) TestIndicatorNamesAreNormalized() {
	condition := rsiCondition("root", 70, "act1", "act2")
	condition.Indicator = "rsi"

	g, err := Build([]types.ConditionSpec{condition}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	root, ok := g.Root().(*DecisionNode)
	suite.Require().True(ok)
	suite.Equal(types.IndicatorRef{Name: types.IndicatorTypeRSI, Symbol: "QQQ"}, root.Indicator())
	suite.Equal("RSI(QQQ, 20) > 70", root.Label())
}

func (suite *GraphTestSuite) TestDynamicThresholdInCondition() {
	// the threshold's operator is not applied, BND > BIL still decides the branch
	conditions := []types.ConditionSpec{{
		NodeName:  "bond_trend",
		Indicator: "Cumulative Return",
		Symbol:    "BND",
		Window:    3,
		Operator:  types.OperatorGreaterThan,
		Threshold: types.DynamicComparison(types.DynamicThreshold{
			Indicator: "Cumulative Return",
			Symbol1:   "BND",
			Symbol2:   "BIL",
			Window:    3,
			Operator:  types.OperatorLessThan,
		}),
		TrueBranch:  "act1",
		FalseBranch: "act2",
	}}

	g, err := Build(conditions, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	ds := seriesSource(map[string][]float64{
		"BND": {100, 101, 102, 103},
		"BIL": {100, 100, 100, 100.1},
		"SPY": {1, 1, 1, 1},
		"TLT": {1, 1, 1, 1},
	})

	ec := suite.evaluationContext(ds)
	ec.Time = day(3)

	result, err := g.Evaluate(context.Background(), ec)
	suite.Require().NoError(err)
	suite.Equal("act1", result.Action)
	suite.InDelta(0.001, result.Trace[0].ThresholdValue, 1e-12)
	suite.Equal("Cumulative Return(BND, 3) > Cumulative Return(BND, 3) < Cumulative Return(BIL, 3)", result.Trace[0].Label)
}

func (suite *GraphTestSuite) TestDataErrorFailsEvaluation() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	ds := seriesSource(map[string][]float64{
		"QQQ": {100, 103},
		"SPY": {1, 1, 1, 1},
	})

	result, err := g.Evaluate(context.Background(), suite.evaluationContext(ds))
	suite.Require().Error(err)
	suite.True(errors.IsDataError(err))
	suite.True(errors.HasCode(err, errors.ErrCodeTimestampNotFound))
	suite.Nil(result.Allocation)
}

func (suite *GraphTestSuite) TestMissingSizingPriceFailsEvaluation() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	ds := seriesSource(map[string][]float64{"QQQ": {100, 103, 102.05}})

	_, err = g.Evaluate(context.Background(), suite.evaluationContext(ds))
	suite.Require().Error(err)
	suite.True(errors.IsDataError(err))
}

func (suite *GraphTestSuite) TestUnsupportedOperatorAndIndicatorFailAtEvaluation() {
	ds := seriesSource(map[string][]float64{"QQQ": {100, 103, 102.05}, "SPY": {1, 1, 1, 1}})

	badOperator := rsiCondition("root", 70, "act1", "act2")
	badOperator.Operator = types.Operator("!=")

	g, err := Build([]types.ConditionSpec{badOperator}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	_, err = g.Evaluate(context.Background(), suite.evaluationContext(ds))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedOperator))
	suite.True(errors.IsConfigError(err))

	badIndicator := rsiCondition("root", 70, "act1", "act2")
	badIndicator.Indicator = "MACD"

	g, err = Build([]types.ConditionSpec{badIndicator}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	_, err = g.Evaluate(context.Background(), suite.evaluationContext(ds))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedIndicator))
}

func (suite *GraphTestSuite) TestCancelledContext() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Evaluate(ctx, suite.evaluationContext(seriesSource(nil)))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEvaluationAborted))
	suite.ErrorIs(err, context.Canceled)
}

func (suite *GraphTestSuite) TestNoDataSource() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	_, err = g.Evaluate(context.Background(), EvaluationContext{Time: day(2)})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoDatasource))
}

func (suite *GraphTestSuite) TestTraversalIsBoundedByNodeCount() {
	// a chain of conditions that are all false until the last action
	const depth = 25

	conditions := make([]types.ConditionSpec, 0, depth)
	for i := 0; i < depth; i++ {
		next := "act2"
		if i+1 < depth {
			next = nodeName(i + 1)
		}

		conditions = append(conditions, rsiCondition(nodeName(i), 99, "act1", next))
	}

	g, err := Build(conditions, suite.actions, BuildOptions{})
	suite.Require().NoError(err)
	suite.Equal(depth+2, g.Nodes())

	ds := seriesSource(map[string][]float64{
		"QQQ": {100, 103, 102.05},
		"TLT": {1, 1, 1, 1},
	})

	result, err := g.Evaluate(context.Background(), suite.evaluationContext(ds))
	suite.Require().NoError(err)
	suite.Equal("act2", result.Action)
	suite.Len(result.Trace, depth+1)
	suite.LessOrEqual(len(result.Trace), g.Nodes())
}

func (suite *GraphTestSuite) TestConcurrentEvaluation() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	high := seriesSource(map[string][]float64{"QQQ": {100, 103, 102.05}, "SPY": {1, 1, 1, 500}})
	low := seriesSource(map[string][]float64{"QQQ": {100, 102, 99.15}, "TLT": {1, 1, 1, 100}})

	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			ds, action := datasource.DataSource(high), "act1"
			if i%2 == 1 {
				ds, action = low, "act2"
			}

			result, err := g.Evaluate(context.Background(), suite.evaluationContext(ds))
			suite.NoError(err)
			suite.Equal(action, result.Action)
		}(i)
	}

	wg.Wait()
}

func (suite *GraphTestSuite) TestUniverseAndLabels() {
	g, err := Build([]types.ConditionSpec{rsiCondition("root", 70, "act1", "act2")}, types.ActionSpecs{
		"act1": {"SPY": 0.5, "TLT": 0.5},
		"act2": {"GLD": 1.0},
	}, BuildOptions{})
	suite.Require().NoError(err)

	suite.Equal([]string{"GLD", "SPY", "TLT"}, g.Universe())
	suite.Equal("RSI(QQQ, 20) > 70", g.Root().Label())

	act1, ok := g.Node("act1")
	suite.Require().True(ok)
	suite.Equal("Allocate SPY: 50.0%, TLT: 50.0%", act1.Label())
}

func (suite *GraphTestSuite) TestPrint() {
	conditions := []types.ConditionSpec{
		rsiCondition("root", 70, "act1", "child"),
		rsiCondition("child", 30, "act2", "act1"),
	}

	g, err := Build(conditions, suite.actions, BuildOptions{})
	suite.Require().NoError(err)

	var buf bytes.Buffer
	suite.Require().NoError(g.Print(&buf))

	expected := "root: RSI(QQQ, 20) > 70\n" +
		"    True -> act1: Allocate SPY: 100.0%\n" +
		"    False -> child: RSI(QQQ, 20) > 30\n" +
		"        True -> act2: Allocate TLT: 100.0%\n" +
		"        False -> act1: Allocate SPY: 100.0%\n"
	suite.Equal(expected, buf.String())
}

func nodeName(i int) string {
	return "node_" + string(rune('a'+i))
}
