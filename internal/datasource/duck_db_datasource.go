package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"go.uber.org/zap"
)

var barColumns = []string{"time", "symbol", "open", "high", "low", "close", "volume"}

// DuckDBDataSource serves bars from a Parquet or CSV file through an in-process DuckDB view.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource opens the DuckDB database at path, ":memory:" for an in-process one.
// No market data is visible until Initialize is called.
func NewDataSource(path string, log *logger.Logger) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger.OrNop(log),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize exposes the market data file at path as the market_data view.
// Parquet is the default format; files ending in .csv are read with read_csv_auto.
// The file needs time, symbol, open, high, low, close and volume columns.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	reader := "read_parquet"
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		reader = "read_csv_auto"
	}

	// squirrel has no DDL builder
	query := fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT * FROM %s('%s');
	`, reader, strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load market data from %s", path)
	}

	return nil
}

// Symbols implements DataSource.
func (d *DuckDBDataSource) Symbols() ([]string, error) {
	query, args, err := d.sq.
		Select("symbol").
		Distinct().
		From("market_data").
		OrderBy("symbol ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbols", err)
	}

	return symbols, nil
}

// GetSeries implements DataSource.
func (d *DuckDBDataSource) GetSeries(symbol string, end time.Time) ([]types.MarketData, error) {
	d.logger.Debug("Getting series",
		zap.String("symbol", symbol),
		zap.Time("end", end))

	query, args, err := d.barsUpTo(symbol, end).OrderBy("time ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	result, err := d.queryBars(query, args...)
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no data found for symbol %s at or before %s", symbol, end.Format(time.RFC3339))
	}

	return result, nil
}

// GetPriceAsOf implements DataSource.
func (d *DuckDBDataSource) GetPriceAsOf(symbol string, at time.Time) (types.MarketData, error) {
	query, args, err := d.barsUpTo(symbol, at).OrderBy("time DESC").Limit(1).ToSql()
	if err != nil {
		return types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	result, err := d.queryBars(query, args...)
	if err != nil {
		return types.MarketData{}, err
	}

	if len(result) == 0 {
		return types.MarketData{}, errors.Newf(errors.ErrCodeNoPriceAsOf,
			"no price for symbol %s at or before %s", symbol, at.Format(time.RFC3339))
	}

	return result[0], nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

// barsUpTo selects the bars of symbol with time <= at.
func (d *DuckDBDataSource) barsUpTo(symbol string, at time.Time) squirrel.SelectBuilder {
	return d.sq.
		Select(barColumns...).
		From("market_data").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.LtOrEq{"time": at},
		})
}

func (d *DuckDBDataSource) queryBars(query string, args ...any) ([]types.MarketData, error) {
	stmt, err := d.db.Prepare(query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to prepare query", err)
	}
	defer stmt.Close()

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query market data", err)
	}
	defer rows.Close()

	result := make([]types.MarketData, 0, 256)

	for rows.Next() {
		var (
			timestamp                      time.Time
			symbol                         string
			open, high, low, close, volume float64
		)

		if err := rows.Scan(&timestamp, &symbol, &open, &high, &low, &close, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err)
		}

		result = append(result, types.MarketData{
			Id:     "",
			Symbol: symbol,
			Time:   timestamp,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating rows", err)
	}

	return result, nil
}
