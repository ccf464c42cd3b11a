package graph

import (
	"sort"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/indicator"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"go.uber.org/zap"
)

// BuildMode selects how branch references are resolved.
type BuildMode string

const (
	// BuildModeTwoPass creates every node first and wires branches afterwards,
	// so declaration order does not matter.
	BuildModeTwoPass BuildMode = "two_pass"
	// BuildModeReverseDeclaration builds conditions from the last to the first and
	// resolves a branch only if its target was already built. A branch to a
	// condition declared earlier in the list stays unresolved.
	BuildModeReverseDeclaration BuildMode = "reverse_declaration"
)

// BuildOptions configures Build. The zero value builds in two passes with the
// default indicator registry and no logging.
type BuildOptions struct {
	Mode     BuildMode
	Registry indicator.IndicatorRegistry
	Logger   *logger.Logger
}

// Build validates the specs and links them into a graph rooted at the first condition.
// Validation failures are returned as one BuildFailed error wrapping every violation.
func Build(conditions []types.ConditionSpec, actions types.ActionSpecs, opts BuildOptions) (*Graph, error) {
	log := logger.OrNop(opts.Logger)

	registry := opts.Registry
	if registry == nil {
		registry = indicator.NewDefaultRegistry()
	}

	mode := opts.Mode
	if mode == "" {
		mode = BuildModeTwoPass
	}

	if err := Validate(conditions, actions, log); err != nil {
		log.Error("Specification validation failed, aborting graph construction", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeBuildFailed, "specification validation failed", err)
	}

	b := &builder{
		nodes:      make(map[string]Node, len(conditions)+len(actions)),
		unresolved: nil,
	}

	if err := b.addActions(actions); err != nil {
		return nil, err
	}

	var err error

	switch mode {
	case BuildModeTwoPass:
		err = b.buildTwoPass(conditions)
	case BuildModeReverseDeclaration:
		err = b.buildReverse(conditions)
	default:
		err = errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown build mode: %s", mode)
	}

	if err != nil {
		return nil, err
	}

	if err := checkAcyclic(b.nodes); err != nil {
		return nil, err
	}

	for _, u := range b.unresolved {
		log.Warn("Branch left unresolved",
			zap.String("node", u.Node),
			zap.String("branch", u.Branch),
			zap.String("target", u.Target))
	}

	g := &Graph{
		root:       b.nodes[conditions[0].NodeName],
		nodes:      b.nodes,
		unresolved: b.unresolved,
		registry:   registry,
		logger:     log,
	}

	log.Debug("Decision graph built",
		zap.String("mode", string(mode)),
		zap.String("root", conditions[0].NodeName),
		zap.Int("nodes", len(b.nodes)))

	return g, nil
}

type builder struct {
	nodes      map[string]Node
	unresolved []UnresolvedBranch
}

func (b *builder) addActions(actions types.ActionSpecs) error {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if name == "" {
			return errors.New(errors.ErrCodeMissingField, "action name is required")
		}

		b.nodes[name] = &ActionNode{
			name:        name,
			allocations: actions[name].Clone(),
		}
	}

	return nil
}

func (b *builder) newDecision(spec types.ConditionSpec) (*DecisionNode, error) {
	if _, exists := b.nodes[spec.NodeName]; exists {
		return nil, errors.Newf(errors.ErrCodeDuplicateNode, "node name %s is used more than once", spec.NodeName)
	}

	threshold, err := newThresholdResolver(spec.Threshold)
	if err != nil {
		return nil, errors.Wrapf(errors.GetCode(err), err, "node %s", spec.NodeName)
	}

	// an unsupported indicator name fails when the node is evaluated
	ref, _ := types.ParseIndicatorRef(spec.Indicator, spec.Symbol)

	return &DecisionNode{
		name:        spec.NodeName,
		ref:         ref,
		window:      spec.Window,
		operator:    spec.Operator,
		threshold:   threshold,
		trueName:    spec.TrueBranch,
		falseName:   spec.FalseBranch,
		trueBranch:  nil,
		falseBranch: nil,
	}, nil
}

// buildTwoPass allocates every decision node, then wires branches by name.
func (b *builder) buildTwoPass(conditions []types.ConditionSpec) error {
	decisions := make([]*DecisionNode, 0, len(conditions))

	for _, spec := range conditions {
		d, err := b.newDecision(spec)
		if err != nil {
			return err
		}

		b.nodes[d.name] = d
		decisions = append(decisions, d)
	}

	for _, d := range decisions {
		d.trueBranch = b.nodes[d.trueName]
		d.falseBranch = b.nodes[d.falseName]

		if d.trueBranch == nil || d.falseBranch == nil {
			// Validate guarantees every target exists
			return errors.Newf(errors.ErrCodeUnknownReference, "node %s has a branch to an unknown node", d.name)
		}
	}

	return nil
}

// buildReverse builds decision nodes from the last declared to the first,
// resolving each branch against the nodes built so far.
func (b *builder) buildReverse(conditions []types.ConditionSpec) error {
	declared := make(map[string]struct{}, len(conditions))

	for _, spec := range conditions {
		if _, exists := declared[spec.NodeName]; exists {
			return errors.Newf(errors.ErrCodeDuplicateNode, "node name %s is used more than once", spec.NodeName)
		}

		declared[spec.NodeName] = struct{}{}
	}

	for i := len(conditions) - 1; i >= 0; i-- {
		d, err := b.newDecision(conditions[i])
		if err != nil {
			return err
		}

		d.trueBranch = b.resolve(d, "true_branch", d.trueName)
		d.falseBranch = b.resolve(d, "false_branch", d.falseName)
		b.nodes[d.name] = d
	}

	return nil
}

func (b *builder) resolve(d *DecisionNode, branch, target string) Node {
	n, ok := b.nodes[target]
	if !ok {
		b.unresolved = append(b.unresolved, UnresolvedBranch{Node: d.name, Branch: branch, Target: target})

		return nil
	}

	return n
}

// checkAcyclic runs a depth first search over the decision nodes.
func checkAcyclic(nodes map[string]Node) error {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(nodes))

	var visit func(n Node, path []string) error

	visit = func(n Node, path []string) error {
		d, ok := n.(*DecisionNode)
		if !ok {
			return nil
		}

		switch state[d.name] {
		case visiting:
			return errors.Newf(errors.ErrCodeCycleDetected, "cycle detected: %s", formatCycle(append(path, d.name)))
		case done:
			return nil
		}

		state[d.name] = visiting
		path = append(path, d.name)

		for _, child := range []Node{d.trueBranch, d.falseBranch} {
			if child == nil {
				continue
			}

			if err := visit(child, path); err != nil {
				return err
			}
		}

		state[d.name] = done

		return nil
	}

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if state[name] != unvisited {
			continue
		}

		if err := visit(nodes[name], nil); err != nil {
			return err
		}
	}

	return nil
}

func formatCycle(path []string) string {
	last := path[len(path)-1]

	start := 0

	for i, name := range path {
		if name == last {
			start = i

			break
		}
	}

	out := path[start]
	for _, name := range path[start+1:] {
		out += " -> " + name
	}

	return out
}
