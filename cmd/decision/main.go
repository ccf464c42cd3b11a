package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/datasource"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/engine"
	enginev1 "github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/engine/engine_v1"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/graph"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/version"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/strategy"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	schemaKindConfig   = "config"
	schemaKindStrategy = "strategy"
)

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	if cmd.Bool("quiet") {
		return logger.NewNopLogger(), nil
	}

	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	return logger.NewLoggerWithLevel(level)
}

// validateAction reports every violation of the strategy document, then checks that it builds.
func validateAction(_ context.Context, cmd *cli.Command) error {
	doc, err := strategy.LoadFile(cmd.String("strategy"))
	if err != nil {
		return err
	}

	w := output(cmd)

	if err := graph.Validate(doc.Conditions, doc.Actions, nil); err != nil {
		for _, violation := range multierr.Errors(err) {
			fmt.Fprintf(w, "invalid: %v\n", violation)
		}

		return fmt.Errorf("strategy %s has %d violation(s)", doc.Name, len(multierr.Errors(err)))
	}

	g, err := graph.Build(doc.Conditions, doc.Actions, graph.BuildOptions{
		Mode: graph.BuildMode(cmd.String("build-mode")),
	})
	if err != nil {
		return err
	}

	for _, unresolved := range g.UnresolvedBranches() {
		fmt.Fprintf(w, "warning: %s %s branch %s is unresolved\n", unresolved.Node, unresolved.Branch, unresolved.Target)
	}

	fmt.Fprintf(w, "ok: %s has %d nodes over %s\n", doc.Name, g.Nodes(), strings.Join(g.Universe(), ","))

	return nil
}

func printAction(_ context.Context, cmd *cli.Command) error {
	doc, err := strategy.LoadFile(cmd.String("strategy"))
	if err != nil {
		return err
	}

	if !graph.Valid(doc.Conditions, doc.Actions, nil) {
		return fmt.Errorf("strategy %s is invalid, run validate to list the violations", doc.Name)
	}

	g, err := graph.Build(doc.Conditions, doc.Actions, graph.BuildOptions{
		Mode: graph.BuildMode(cmd.String("build-mode")),
	})
	if err != nil {
		return err
	}

	return g.Print(output(cmd))
}

// newEngine initializes an engine from the config, strategy and data flags.
// The returned close function releases the data source.
func newEngine(cmd *cli.Command, appLog *logger.Logger) (*enginev1.DecisionEngineV1, func(), error) {
	config, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read engine config: %w", err)
	}

	e := enginev1.NewDecisionEngineV1(enginev1.WithLogger(appLog))
	if err := e.Initialize(string(config)); err != nil {
		return nil, nil, err
	}

	if err := e.LoadStrategyFromFile(cmd.String("strategy")); err != nil {
		return nil, nil, err
	}

	ds, err := datasource.NewDataSource(":memory:", appLog)
	if err != nil {
		return nil, nil, err
	}

	if err := ds.Initialize(cmd.String("data")); err != nil {
		_ = ds.Close()

		return nil, nil, err
	}

	if err := e.SetDataSource(ds); err != nil {
		_ = ds.Close()

		return nil, nil, err
	}

	return e, func() { _ = ds.Close() }, nil
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}

// resultView adds the error message that RebalanceResult leaves out of its JSON form.
type resultView struct {
	engine.RebalanceResult
	Error string `json:"error,omitempty"`
}

func viewOf(result engine.RebalanceResult) resultView {
	view := resultView{RebalanceResult: result}
	if result.Err != nil {
		view.Error = result.Err.Error()
	}

	return view
}

func evaluateAction(ctx context.Context, cmd *cli.Command) error {
	appLog, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = appLog.Sync() }()

	e, closeData, err := newEngine(cmd, appLog)
	if err != nil {
		return err
	}

	defer closeData()

	result := e.Rebalance(ctx, cmd.Timestamp("date"))
	if err := writeJSON(output(cmd), viewOf(result)); err != nil {
		return err
	}

	if result.Failed() && cmd.Bool("strict") {
		return result.Err
	}

	return nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	appLog, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = appLog.Sync() }()

	e, closeData, err := newEngine(cmd, appLog)
	if err != nil {
		return err
	}

	defer closeData()

	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(runID string, totalDates int) error {
		appLog.Info("Run started", zap.String("run_id", runID), zap.Int("dates", totalDates))

		bar = progressbar.NewOptions(totalDates,
			progressbar.OptionSetDescription("Rebalancing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
		)

		return nil
	})
	onRebalance := engine.OnRebalanceCallback(func(completed int, _ int, _ engine.RebalanceResult) error {
		return bar.Set(completed)
	})
	onRunEnd := engine.OnRunEndCallback(func(_ error) {
		if bar != nil {
			_ = bar.Finish()
		}
	})

	results, err := e.Run(ctx, engine.LifecycleCallbacks{
		OnRunStart:  &onRunStart,
		OnRebalance: &onRebalance,
		OnRunEnd:    &onRunEnd,
	})
	if err != nil {
		return err
	}

	views := make([]resultView, 0, len(results))
	failed := 0

	for _, result := range results {
		if result.Failed() {
			failed++
		}

		views = append(views, viewOf(result))
	}

	appLog.Info("Run finished", zap.Int("dates", len(results)), zap.Int("failed", failed))

	w := output(cmd)

	if path := cmd.String("output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}

		defer file.Close()

		w = file
	}

	return writeJSON(w, views)
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	switch kind := cmd.String("kind"); kind {
	case schemaKindConfig:
		schema, err = enginev1.NewDecisionEngineV1().GetConfigSchema()
	case schemaKindStrategy:
		schema, err = strategy.DocumentJSONSchema()
	default:
		return fmt.Errorf("unknown schema kind %q, expected %s or %s", kind, schemaKindConfig, schemaKindStrategy)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(output(cmd), schema)

	return err
}

func strategyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "strategy",
		Aliases:  []string{"s"},
		Usage:    "Path to the strategy document (.yaml, .yml or .json)",
		Required: true,
	}
}

func buildModeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "build-mode",
		Usage: fmt.Sprintf("Branch resolution mode (%s or %s)", graph.BuildModeTwoPass, graph.BuildModeReverseDeclaration),
		Value: string(graph.BuildModeTwoPass),
	}
}

// engineFlags are shared by the commands that evaluate a strategy against market data.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		strategyFlag(),
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to the market data file (Parquet or CSV)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to the engine configuration (YAML)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Disable logging",
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "decision",
		Usage:   "Build and evaluate decision graph strategies",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Report every violation in a strategy document",
				Flags:  []cli.Flag{strategyFlag(), buildModeFlag()},
				Action: validateAction,
			},
			{
				Name:   "print",
				Usage:  "Print the decision graph of a strategy",
				Flags:  []cli.Flag{strategyFlag(), buildModeFlag()},
				Action: printAction,
			},
			{
				Name:  "evaluate",
				Usage: "Rebalance once at the given date and print the orders",
				Flags: slices.Concat(engineFlags(), []cli.Flag{
					&cli.TimestampFlag{
						Name:     "date",
						Usage:    "Decision date in `YYYY-MM-DD` format",
						Required: true,
						Config: cli.TimestampConfig{
							Timezone: time.UTC,
							Layouts:  []string{time.DateOnly},
						},
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Exit with an error when the rebalance fails",
					},
				}),
				Action: evaluateAction,
			},
			{
				Name:  "run",
				Usage: "Rebalance on every date of the configured schedule",
				Flags: slices.Concat(engineFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the results as JSON to this file instead of stdout",
					},
				}),
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the engine config or the strategy document",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: fmt.Sprintf("Schema to print (%s or %s)", schemaKindConfig, schemaKindStrategy),
						Value: schemaKindStrategy,
					},
				},
				Action: schemaAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
