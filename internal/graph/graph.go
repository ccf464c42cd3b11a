package graph

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/indicator"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"go.uber.org/zap"
)

// UnresolvedBranch is a branch whose target did not exist when its node was built.
type UnresolvedBranch struct {
	Node   string
	Branch string
	Target string
}

// Result is the outcome of one evaluation.
type Result struct {
	// Allocation maps every symbol of the reached action to its order size.
	Allocation types.Allocation
	// Action is the name of the reached action node.
	Action string
	// Trace lists the visited nodes from the root to the action.
	Trace []Step
}

// Graph is a built decision graph. It is never modified after Build returns,
// so one Graph can serve concurrent Evaluate calls.
type Graph struct {
	root       Node
	nodes      map[string]Node
	unresolved []UnresolvedBranch
	registry   indicator.IndicatorRegistry
	logger     *logger.Logger
}

// Root returns the node evaluation starts from.
func (g *Graph) Root() Node {
	return g.root
}

// Node returns the node with the given name.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]

	return n, ok
}

// Nodes returns the number of nodes in the graph.
func (g *Graph) Nodes() int {
	return len(g.nodes)
}

// UnresolvedBranches returns the branches left empty by a reverse declaration build.
func (g *Graph) UnresolvedBranches() []UnresolvedBranch {
	out := make([]UnresolvedBranch, len(g.unresolved))
	copy(out, g.unresolved)

	return out
}

// Universe returns every symbol some action allocates to, sorted.
func (g *Graph) Universe() []string {
	seen := make(map[string]struct{})

	for _, n := range g.nodes {
		if action, ok := n.(*ActionNode); ok {
			for symbol := range action.allocations {
				seen[symbol] = struct{}{}
			}
		}
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Evaluate walks the graph from the root and returns the sizing of the reached action.
// A walk takes at most one step per node, and ctx is checked before every step.
func (g *Graph) Evaluate(ctx context.Context, ec EvaluationContext) (Result, error) {
	if ec.DataSource == nil {
		return Result{}, errors.New(errors.ErrCodeNoDatasource, "evaluation context has no data source")
	}

	state := &evaluationState{
		ec:           ec,
		registry:     g.registry,
		indicatorCtx: indicator.IndicatorContext{DataSource: ec.DataSource},
	}

	trace := make([]Step, 0, 8)
	current := g.root

	for steps := 0; ; steps++ {
		if steps >= len(g.nodes) {
			return Result{Trace: trace}, errors.Newf(errors.ErrCodeStepLimitExceeded,
				"evaluation did not reach an action within %d steps", len(g.nodes))
		}

		if err := ctx.Err(); err != nil {
			return Result{Trace: trace}, errors.Wrap(errors.ErrCodeEvaluationAborted, "evaluation aborted", err)
		}

		switch n := current.(type) {
		case *DecisionNode:
			step, next, err := n.evaluate(state)
			trace = append(trace, step)

			if err != nil {
				g.logger.Debug("Condition failed",
					zap.String("node", n.name),
					zap.Time("time", ec.Time),
					zap.Error(err))

				return Result{Trace: trace}, err
			}

			g.logger.Debug("Condition resolved",
				zap.String("node", step.Node),
				zap.String("indicator", step.Indicator),
				zap.String("symbol", step.Symbol),
				zap.Int("window", step.Window),
				zap.Float64("indicator_value", step.IndicatorValue),
				zap.String("threshold", step.Threshold),
				zap.Float64("threshold_value", step.ThresholdValue),
				zap.Float64p("reference_value", step.ReferenceValue),
				zap.String("operator", string(step.Operator)),
				zap.Bool("result", step.Result),
				zap.String("branch", step.Branch))

			current = next
		case *ActionNode:
			step, orders, err := n.evaluate(state)
			trace = append(trace, step)

			if err != nil {
				return Result{Trace: trace}, err
			}

			g.logger.Debug("Action reached",
				zap.String("action", n.name),
				zap.Any("allocations", n.allocations),
				zap.Any("orders", orders))

			return Result{Allocation: orders, Action: n.name, Trace: trace}, nil
		default:
			return Result{Trace: trace}, errors.Newf(errors.ErrCodeUnresolvedBranch, "unexpected node %v", current)
		}
	}
}

// Print writes the tree rooted at the graph's root, one node per line.
// Shared subtrees are printed under every parent.
func (g *Graph) Print(w io.Writer) error {
	return printNode(w, g.root, "", 0, len(g.nodes))
}

func printNode(w io.Writer, n Node, edge string, depth, maxDepth int) error {
	indent := strings.Repeat("    ", depth)

	if n == nil {
		_, err := fmt.Fprintf(w, "%s%s<unresolved>\n", indent, edge)

		return err
	}

	if _, err := fmt.Fprintf(w, "%s%s%s: %s\n", indent, edge, n.Name(), n.Label()); err != nil {
		return err
	}

	decision, ok := n.(*DecisionNode)
	if !ok || depth >= maxDepth {
		return nil
	}

	if err := printNode(w, decision.trueBranch, "True -> ", depth+1, maxDepth); err != nil {
		return err
	}

	return printNode(w, decision.falseBranch, "False -> ", depth+1, maxDepth)
}
