package engine

import (
	"context"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/datasource"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/graph"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/strategy"
)

// Lifecycle callback types for run phases
// All callbacks with error return can abort execution if they return an error

// OnRunStartCallback is called once the rebalance schedule of a run is known.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, totalDates int) error

// OnRebalanceCallback is called after each rebalance call completes.
// Calls are serialized; with concurrency above one they arrive in completion order.
type OnRebalanceCallback func(completed int, total int, result RebalanceResult) error

// OnRunEndCallback is called when the run completes (always called via defer).
type OnRunEndCallback func(err error)

// LifecycleCallbacks holds all lifecycle callback functions for the engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart  *OnRunStartCallback
	OnRebalance *OnRebalanceCallback
	OnRunEnd    *OnRunEndCallback
}

// RebalanceResult is what one rebalance call hands to the harness.
// A failed call has empty Orders and Err set; the harness treats it as no trade
// for the period.
type RebalanceResult struct {
	RunID string `json:"run_id" yaml:"run_id"`
	// DecisionTime is the requested time truncated to midnight.
	DecisionTime time.Time `json:"decision_time" yaml:"decision_time"`
	SizingDate   time.Time `json:"sizing_date" yaml:"sizing_date"`
	// Scheduled is false when an explicit schedule exists and does not contain the date.
	Scheduled bool   `json:"scheduled" yaml:"scheduled"`
	Action    string `json:"action,omitempty" yaml:"action,omitempty"`
	// Orders has one entry per universe symbol.
	Orders  types.Allocation `json:"orders" yaml:"orders"`
	Dropped []string         `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Trace   []graph.Step     `json:"trace,omitempty" yaml:"trace,omitempty"`
	Err     error            `json:"-" yaml:"-"`
}

// Failed reports whether the call produced no orders because of an error.
func (r RebalanceResult) Failed() bool {
	return r.Err != nil
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Initialize the engine with the given configuration (YAML).
	Initialize(config string) error
	// LoadStrategy builds the decision graph of the given strategy document.
	LoadStrategy(doc strategy.Document) error
	// LoadStrategyFromFile loads the strategy document at the given path (.yaml, .yml or .json).
	LoadStrategyFromFile(strategyPath string) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// Rebalance evaluates the graph for one decision time. It never returns an error;
	// failures are reported in the result.
	Rebalance(ctx context.Context, decisionTime time.Time) RebalanceResult
	// Run rebalances on every date of the configured schedule and returns the
	// results ordered by date.
	// The context can be used to cancel the run.
	Run(ctx context.Context, callbacks LifecycleCallbacks) ([]RebalanceResult, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
