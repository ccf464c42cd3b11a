package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/allocation"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/datasource"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/engine"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/graph"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/indicator"
	declog "github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/log"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type DecisionEngineV1 struct {
	config            DecisionEngineV1Config
	log               *logger.Logger
	indicatorRegistry indicator.IndicatorRegistry
	resolver          *allocation.Resolver
	graph             *graph.Graph
	strategyName      string
	datasource        datasource.DataSource
	decisionLog       declog.Log
	schedule          map[string]struct{}
}

// Option configures a DecisionEngineV1.
type Option func(*DecisionEngineV1)

// WithLogger replaces the production logger created by Initialize.
func WithLogger(log *logger.Logger) Option {
	return func(e *DecisionEngineV1) {
		e.log = log
	}
}

// WithDecisionLog replaces the in-memory decision log.
func WithDecisionLog(decisionLog declog.Log) Option {
	return func(e *DecisionEngineV1) {
		e.decisionLog = decisionLog
	}
}

func NewDecisionEngineV1(opts ...Option) *DecisionEngineV1 {
	e := &DecisionEngineV1{
		config:            EmptyConfig(),
		log:               nil,
		indicatorRegistry: nil,
		resolver:          nil,
		graph:             nil,
		strategyName:      "",
		datasource:        nil,
		decisionLog:       declog.NewInMemoryLog(),
		schedule:          nil,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

var _ engine.Engine = (*DecisionEngineV1)(nil)

// Initialize implements engine.Engine.
func (e *DecisionEngineV1) Initialize(config string) error {
	cfg := EmptyConfig()
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine configuration", err)
	}

	return e.InitializeWithConfig(cfg)
}

// InitializeWithConfig initializes the engine with an already decoded configuration.
func (e *DecisionEngineV1) InitializeWithConfig(config DecisionEngineV1Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if e.log == nil {
		var err error

		e.log, err = logger.NewLogger()
		if err != nil {
			return err
		}
	}

	e.config = config
	e.indicatorRegistry = indicator.NewDefaultRegistry()
	e.resolver = allocation.NewResolver(e.log)
	e.graph = nil

	e.schedule = nil
	if len(config.RebalanceDates) > 0 {
		e.schedule = make(map[string]struct{}, len(config.RebalanceDates))
		for _, d := range config.RebalanceDates {
			e.schedule[dateKey(d)] = struct{}{}
		}
	}

	e.log.Debug("Decision engine initialized",
		zap.Float64("initial_capital", config.InitialCapital),
		zap.String("build_mode", string(config.BuildMode)),
		zap.Int("sizing_lag_days", config.SizingLagDays),
		zap.Int("scheduled_dates", len(config.RebalanceDates)),
	)

	return nil
}

// LoadStrategy implements engine.Engine.
func (e *DecisionEngineV1) LoadStrategy(doc strategy.Document) error {
	if e.log == nil {
		return errors.New(errors.ErrCodeEngineNotReady, "engine is not initialized")
	}

	g, err := graph.Build(doc.Conditions, doc.Actions, graph.BuildOptions{
		Mode:     e.config.BuildMode,
		Registry: e.indicatorRegistry,
		Logger:   e.log,
	})
	if err != nil {
		e.log.Error("Failed to build strategy",
			zap.String("strategy", doc.Name),
			zap.Error(err),
		)

		return err
	}

	e.graph = g
	e.strategyName = doc.Name

	e.log.Debug("Strategy loaded",
		zap.String("strategy", doc.Name),
		zap.Int("nodes", g.Nodes()),
	)

	return nil
}

// LoadStrategyFromFile implements engine.Engine.
func (e *DecisionEngineV1) LoadStrategyFromFile(strategyPath string) error {
	doc, err := strategy.LoadFile(strategyPath)
	if err != nil {
		return err
	}

	return e.LoadStrategy(doc)
}

// SetDataSource implements engine.Engine.
func (e *DecisionEngineV1) SetDataSource(dataSource datasource.DataSource) error {
	if dataSource == nil {
		return errors.New(errors.ErrCodeNoDatasource, "data source must not be nil")
	}

	e.datasource = dataSource

	return nil
}

// Graph returns the loaded decision graph, or nil before LoadStrategy succeeds.
func (e *DecisionEngineV1) Graph() *graph.Graph {
	return e.graph
}

// DecisionLog returns the sink every rebalance call writes its trace to.
func (e *DecisionEngineV1) DecisionLog() declog.Log {
	return e.decisionLog
}

// Rebalance implements engine.Engine.
func (e *DecisionEngineV1) Rebalance(ctx context.Context, decisionTime time.Time) engine.RebalanceResult {
	decisionDate := Midnight(decisionTime)
	result := engine.RebalanceResult{
		RunID:        uuid.New().String(),
		DecisionTime: decisionDate,
		SizingDate:   AddBusinessDays(decisionDate, e.config.SizingLagDays),
		Scheduled:    true,
		Orders:       types.Allocation{},
	}

	if err := e.preRebalanceCheck(); err != nil {
		result.Err = err

		return result
	}

	if e.schedule != nil {
		if _, ok := e.schedule[dateKey(decisionDate)]; !ok {
			result.Scheduled = false

			e.log.Debug("Date is not scheduled, skipping",
				zap.String("run_id", result.RunID),
				zap.Time("decision_time", decisionDate),
			)

			return result
		}
	}

	err := e.rebalance(ctx, &result)
	if err != nil {
		result.Orders = types.Allocation{}
		result.Dropped = nil
		result.Err = err

		e.log.Warn("Rebalance failed, no trade this period",
			zap.String("run_id", result.RunID),
			zap.Time("decision_time", decisionDate),
			zap.String("category", string(errors.CategoryOf(err))),
			zap.Error(err),
		)
	}

	e.writeDecisionLog(result)

	return result
}

func (e *DecisionEngineV1) rebalance(ctx context.Context, result *engine.RebalanceResult) error {
	if e.config.EvaluationTimeout.IsSome() {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.config.EvaluationTimeout.Unwrap())
		defer cancel()
	}

	// one cache per call, so the readings of a call never outlive it
	ds := datasource.NewCachedDataSource(e.datasource)

	evaluation, err := e.graph.Evaluate(ctx, graph.EvaluationContext{
		Time:        result.DecisionTime,
		SizingDate:  result.SizingDate,
		InitialCash: e.config.InitialCapital,
		DataSource:  ds,
	})
	result.Trace = evaluation.Trace

	if err != nil {
		return err
	}

	universe := e.config.Universe
	if len(universe) == 0 {
		universe, err = ds.Symbols()
		if err != nil {
			return err
		}
	}

	orders, dropped := e.resolver.ToOrders(universe, evaluation.Allocation)
	result.Action = evaluation.Action
	result.Orders = allocation.RoundQuantities(orders, e.config.QuantityPrecision)
	result.Dropped = dropped

	e.log.Info("Rebalanced",
		zap.String("run_id", result.RunID),
		zap.String("strategy", e.strategyName),
		zap.Time("decision_time", result.DecisionTime),
		zap.Time("sizing_date", result.SizingDate),
		zap.String("action", result.Action),
		zap.Any("orders", result.Orders),
	)

	return nil
}

// Run implements engine.Engine.
func (e *DecisionEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (results []engine.RebalanceResult, err error) {
	if callbacks.OnRunEnd != nil {
		defer func() {
			(*callbacks.OnRunEnd)(err)
		}()
	}

	if err := e.preRebalanceCheck(); err != nil {
		return nil, err
	}

	dates, err := e.Schedule()
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	runLog := e.log.With(zap.String("run_id", runID))

	runLog.Info("Run started",
		zap.String("strategy", e.strategyName),
		zap.Int("dates", len(dates)),
		zap.Int("concurrency", e.config.Concurrency),
	)

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, len(dates)); err != nil {
			return nil, err
		}
	}

	results = make([]engine.RebalanceResult, len(dates))

	var (
		mu        sync.Mutex
		completed int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.config.Concurrency)

	for i, date := range dates {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			result := e.Rebalance(groupCtx, date)
			results[i] = result

			if callbacks.OnRebalance == nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()

			completed++

			return (*callbacks.OnRebalance)(completed, len(dates), result)
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// a cancelled parent is reported even when every goroutine had already started
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runLog.Info("Run finished", zap.Int("dates", len(dates)))

	return results, nil
}

// Schedule returns the dates Run rebalances on: the explicit rebalance dates, or
// every business day between start_time and end_time.
func (e *DecisionEngineV1) Schedule() ([]time.Time, error) {
	if len(e.config.RebalanceDates) > 0 {
		return normalizeDates(e.config.RebalanceDates), nil
	}

	if e.config.StartTime.IsNone() || e.config.EndTime.IsNone() {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"a run needs rebalance_dates or both start_time and end_time")
	}

	return BusinessDays(e.config.StartTime.Unwrap(), e.config.EndTime.Unwrap()), nil
}

// GetConfigSchema implements engine.Engine.
func (e *DecisionEngineV1) GetConfigSchema() (string, error) {
	config := e.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

func (e *DecisionEngineV1) preRebalanceCheck() error {
	if e.log == nil {
		return errors.New(errors.ErrCodeEngineNotReady, "engine is not initialized")
	}

	if e.graph == nil {
		e.log.Error("No strategy loaded")

		return errors.New(errors.ErrCodeStrategyNotLoaded, "no strategy loaded")
	}

	if e.datasource == nil {
		e.log.Error("No data source set")

		return errors.New(errors.ErrCodeNoDatasource, "no data source set")
	}

	return nil
}

func (e *DecisionEngineV1) writeDecisionLog(result engine.RebalanceResult) {
	entries := make([]declog.LogEntry, 0, len(result.Trace)+1)

	for _, step := range result.Trace {
		fields := map[string]string{
			"kind":  string(step.Kind),
			"label": step.Label,
		}

		if step.Kind == graph.StepKindDecision {
			fields["indicator_value"] = strconv.FormatFloat(step.IndicatorValue, 'g', -1, 64)
			fields["threshold_value"] = strconv.FormatFloat(step.ThresholdValue, 'g', -1, 64)
			fields["branch"] = step.Branch
		}

		entries = append(entries, declog.LogEntry{
			Timestamp: result.DecisionTime,
			RunID:     result.RunID,
			Node:      step.Node,
			Message:   step.Label,
			Fields:    fields,
		})
	}

	summary := declog.LogEntry{
		Timestamp: result.DecisionTime,
		RunID:     result.RunID,
		Node:      "",
		Message:   "rebalanced",
		Fields: map[string]string{
			"action":      result.Action,
			"sizing_date": result.SizingDate.Format(time.DateOnly),
		},
	}

	if result.Err != nil {
		summary.Message = "rebalance failed"
		summary.Fields["error"] = result.Err.Error()
	}

	entries = append(entries, summary)

	for _, entry := range entries {
		if err := e.decisionLog.Log(entry); err != nil {
			e.log.Warn("Failed to write decision log", zap.String("run_id", result.RunID), zap.Error(err))

			return
		}
	}
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
