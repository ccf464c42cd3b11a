package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/marketdata"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/marketdata/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// progressReporter renders one progress bar per ticker.
type progressReporter struct {
	bar     *progressbar.ProgressBar
	current string
}

func (p *progressReporter) onProgress() provider.OnDownloadProgress {
	return func(current float64, total float64, message string) {
		if p.bar == nil || p.current != message {
			if p.bar != nil {
				_ = p.bar.Finish()
			}

			p.bar = progressbar.NewOptions64(int64(total),
				progressbar.OptionSetDescription(message),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stderr),
			)
			p.current = message
		}

		_ = p.bar.Set64(int64(current))
	}
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// downloadParams builds the client configuration and request from either a JSON config file or flags.
func downloadParams(cmd *cli.Command) (marketdata.ClientConfig, marketdata.DownloadParams, error) {
	dataPath := cmd.String("data")

	if configPath := cmd.String("config"); configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return marketdata.ClientConfig{}, marketdata.DownloadParams{}, fmt.Errorf("failed to read download config: %w", err)
		}

		config, err := marketdata.ParsePolygonConfig(string(raw))
		if err != nil {
			return marketdata.ClientConfig{}, marketdata.DownloadParams{}, err
		}

		params, err := config.ToDownloadParams()
		if err != nil {
			return marketdata.ClientConfig{}, marketdata.DownloadParams{}, err
		}

		return config.ToClientConfig(dataPath), params, nil
	}

	var tickers []string

	for _, value := range cmd.StringSlice("tickers") {
		for _, ticker := range strings.Split(value, ",") {
			if ticker = strings.TrimSpace(ticker); ticker != "" {
				tickers = append(tickers, strings.ToUpper(ticker))
			}
		}
	}

	clientConfig := marketdata.ClientConfig{
		ProviderType:  marketdata.ProviderType(cmd.String("provider")),
		WriterType:    marketdata.WriterType(cmd.String("writer")),
		DataPath:      dataPath,
		PolygonApiKey: cmd.String("api-key"),
	}

	params := marketdata.DownloadParams{
		Tickers:   tickers,
		StartDate: cmd.Timestamp("start"),
		EndDate:   cmd.Timestamp("end"),
	}

	return clientConfig, params, nil
}

// downloadAction is the core logic executed by the download command.
// It parses arguments, sets up the market data client, and starts the download process.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	if err := checkProvider(cmd.String("provider")); err != nil {
		return err
	}

	if err := checkWriter(cmd.String("writer")); err != nil {
		return err
	}

	clientConfig, params, err := downloadParams(cmd)
	if err != nil {
		return err
	}

	appLog, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = appLog.Sync() }()

	reporter := &progressReporter{}
	defer reporter.finish()

	client, err := marketdata.NewClient(clientConfig, reporter.onProgress(), appLog)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	appLog.Info("Starting download",
		zap.Strings("tickers", params.Tickers),
		zap.String("start", params.StartDate.Format(time.DateOnly)),
		zap.String("end", params.EndDate.Format(time.DateOnly)),
		zap.String("provider", string(clientConfig.ProviderType)),
		zap.String("writer", string(clientConfig.WriterType)),
	)

	outputPath, err := client.Download(ctx, params)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	appLog.Info("Download completed", zap.String("path", outputPath))

	return nil
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

// providersAction lists the registered providers, or prints the download config schema of one.
func providersAction(_ context.Context, cmd *cli.Command) error {
	w := output(cmd)
	name := cmd.String("schema")
	if name == "" {
		for _, providerName := range marketdata.GetSupportedProviders() {
			info, err := marketdata.GetProviderInfo(providerName)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.DisplayName, info.Description)
		}

		return nil
	}

	schema, err := marketdata.GetDownloadConfigSchema(name)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, schema)

	return err
}

func newApp() *cli.Command {
	dateConfig := cli.TimestampConfig{
		Timezone: time.UTC,
		Layouts:  []string{time.DateOnly},
	}

	return &cli.Command{
		Name:  "market",
		Usage: "Download historical daily market data",
		Commands: []*cli.Command{
			{
				Name:  "download",
				Usage: "Download daily bars for one or more tickers into a Parquet file",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "tickers",
						Aliases: []string{"t"},
						Usage:   "Ticker symbols, comma separated or repeated",
					},
					&cli.TimestampFlag{
						Name:    "start",
						Aliases: []string{"s"},
						Usage:   "Start date in `YYYY-MM-DD` format",
						Config:  dateConfig,
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
						Value:   time.Now(),
						Config:  dateConfig,
					},
					&cli.StringFlag{
						Name:  "config",
						Usage: "Path to a JSON download config; replaces the tickers, dates and API key flags",
					},
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "Polygon.io API key",
						Sources: cli.EnvVars("POLYGON_API_KEY"),
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   fmt.Sprintf("Data provider to use (e.g., %s)", MarketProviderPolygon),
						Value:   MarketProviderPolygon,
					},
					&cli.StringFlag{
						Name:    "writer",
						Aliases: []string{"w"},
						Usage:   fmt.Sprintf("Data writer format (e.g., %s)", MarketWriterDuckDB),
						Value:   MarketWriterDuckDB,
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Path to the data output directory",
						Value:   "data",
					},
				},
				Action: downloadAction,
			},
			{
				Name:  "providers",
				Usage: "List market data providers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "schema",
						Usage: "Print the JSON schema of the named provider's download config",
					},
				},
				Action: providersAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
