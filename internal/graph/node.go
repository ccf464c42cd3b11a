package graph

import (
	"fmt"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/datasource"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/indicator"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// Node is a node of a decision graph. The only implementations are
// *DecisionNode and *ActionNode.
type Node interface {
	Name() string
	// Label renders the node for logs and tree printing.
	Label() string
	isNode()
}

// EvaluationContext is the read-only input of one evaluation.
type EvaluationContext struct {
	// Time is the decision instant indicators are read at.
	Time time.Time
	// SizingDate is the date whose as-of prices convert weights into quantities.
	SizingDate  time.Time
	InitialCash float64
	DataSource  datasource.DataSource
}

// StepKind tells which kind of node produced a step.
type StepKind string

const (
	StepKindDecision StepKind = "decision"
	StepKindAction   StepKind = "action"
)

// Step records one node visited during an evaluation.
type Step struct {
	Node  string   `json:"node"`
	Kind  StepKind `json:"kind"`
	Label string   `json:"label"`

	// decision steps
	Indicator      string         `json:"indicator,omitempty"`
	Symbol         string         `json:"symbol,omitempty"`
	Window         int            `json:"window,omitempty"`
	IndicatorValue float64        `json:"indicator_value,omitempty"`
	Operator       types.Operator `json:"operator,omitempty"`
	Threshold      string         `json:"threshold,omitempty"`
	ThresholdValue float64        `json:"threshold_value,omitempty"`

	// ReferenceValue is the first reading of a dynamic threshold. The comparison never uses it.
	ReferenceValue *float64 `json:"reference_value,omitempty"`
	Result         bool     `json:"result,omitempty"`
	Branch         string   `json:"branch,omitempty"`

	// action steps
	Allocation types.Allocation `json:"allocation,omitempty"`
}

// evaluationState is scoped to a single Evaluate call.
type evaluationState struct {
	ec           EvaluationContext
	registry     indicator.IndicatorRegistry
	indicatorCtx indicator.IndicatorContext
}

func (s *evaluationState) reading(ref types.IndicatorRef, window int) (float64, error) {
	ind, err := indicator.Lookup(s.registry, ref.Name)
	if err != nil {
		return 0, err
	}

	return ind.RawValue(s.indicatorCtx, ref.Symbol, s.ec.Time, window)
}

// DecisionNode compares an indicator reading against a threshold and
// continues with one of its two branches.
type DecisionNode struct {
	name      string
	ref       types.IndicatorRef
	window    int
	operator  types.Operator
	threshold ThresholdResolver

	trueName  string
	falseName string
	// nil when the branch could not be resolved at build time
	trueBranch  Node
	falseBranch Node
}

func (d *DecisionNode) isNode() {}

// Name implements Node.
func (d *DecisionNode) Name() string {
	return d.name
}

// Label implements Node.
func (d *DecisionNode) Label() string {
	return fmt.Sprintf("%s(%s, %d) %s %s", d.ref.Name.DisplayName(), d.ref.Symbol, d.window, d.operator, d.threshold)
}

// Indicator returns the series the node reads.
func (d *DecisionNode) Indicator() types.IndicatorRef {
	return d.ref
}

// Threshold returns the resolver of the node's right-hand side.
func (d *DecisionNode) Threshold() ThresholdResolver {
	return d.threshold
}

// Branches returns the names of the true and false branches.
func (d *DecisionNode) Branches() (string, string) {
	return d.trueName, d.falseName
}

func (d *DecisionNode) evaluate(state *evaluationState) (Step, Node, error) {
	step := Step{
		Node:      d.name,
		Kind:      StepKindDecision,
		Label:     d.Label(),
		Indicator: d.ref.Name.DisplayName(),
		Symbol:    d.ref.Symbol,
		Window:    d.window,
		Operator:  d.operator,
		Threshold: d.threshold.String(),
	}

	value, err := state.reading(d.ref, d.window)
	if err != nil {
		return step, nil, errors.Wrapf(errors.GetCode(err), err, "node %s", d.name)
	}

	step.IndicatorValue = value

	resolved, err := d.threshold.Resolve(state)
	if err != nil {
		return step, nil, errors.Wrapf(errors.GetCode(err), err, "node %s threshold", d.name)
	}

	step.ThresholdValue = resolved.Value
	if resolved.Reference.IsSome() {
		reference := resolved.Reference.Unwrap()
		step.ReferenceValue = &reference
	}

	result, err := d.operator.Compare(value, resolved.Value)
	if err != nil {
		return step, nil, errors.Wrapf(errors.GetCode(err), err, "node %s", d.name)
	}

	step.Result = result

	next, branch := d.falseBranch, d.falseName
	if result {
		next, branch = d.trueBranch, d.trueName
	}

	step.Branch = branch

	if next == nil {
		return step, nil, errors.Newf(errors.ErrCodeUnresolvedBranch,
			"node %s: branch %s was not resolved when the graph was built", d.name, branch)
	}

	return step, next, nil
}

// ActionNode is a terminal node holding target weights.
type ActionNode struct {
	name        string
	allocations types.Allocation
}

func (a *ActionNode) isNode() {}

// Name implements Node.
func (a *ActionNode) Name() string {
	return a.name
}

// Label implements Node.
func (a *ActionNode) Label() string {
	return "Allocate " + a.allocations.String()
}

// Allocations returns a copy of the node's weights.
func (a *ActionNode) Allocations() types.Allocation {
	return a.allocations.Clone()
}

// evaluate sizes every weight as weight * initial cash / price as of the sizing date.
func (a *ActionNode) evaluate(state *evaluationState) (Step, types.Allocation, error) {
	step := Step{
		Node:  a.name,
		Kind:  StepKindAction,
		Label: a.Label(),
	}

	orders := make(types.Allocation, len(a.allocations))

	for _, symbol := range a.allocations.Symbols() {
		bar, err := state.ec.DataSource.GetPriceAsOf(symbol, state.ec.SizingDate)
		if err != nil {
			return step, nil, errors.Wrapf(errors.GetCode(err), err, "action %s: no price for %s", a.name, symbol)
		}

		if bar.Close <= 0 {
			return step, nil, errors.Newf(errors.ErrCodeInvalidPrice,
				"action %s: price of %s as of %s is %v", a.name, symbol, state.ec.SizingDate.Format(time.DateOnly), bar.Close)
		}

		orders[symbol] = a.allocations[symbol] * state.ec.InitialCash / bar.Close
	}

	step.Allocation = orders

	return step, orders, nil
}
