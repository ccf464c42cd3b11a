package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/graph"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultSizingLagDays = 1
	defaultConcurrency   = 1
)

type DecisionEngineV1Config struct {
	InitialCapital    float64                        `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Cash every action is sized against,minimum=0"`
	StartTime         optional.Option[time.Time]     `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=First day of the business day schedule"`
	EndTime           optional.Option[time.Time]     `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Last day of the business day schedule"`
	RebalanceDates    []time.Time                    `yaml:"rebalance_dates" json:"rebalance_dates" jsonschema:"title=Rebalance Dates,description=Explicit schedule. Decision times outside it are skipped"`
	SizingLagDays     int                            `yaml:"sizing_lag_days" json:"sizing_lag_days" validate:"gte=0" jsonschema:"title=Sizing Lag Days,description=Business days between the decision date and the sizing date,minimum=0,default=1"`
	BuildMode         graph.BuildMode                `yaml:"build_mode" json:"build_mode" validate:"oneof=two_pass reverse_declaration" jsonschema:"title=Build Mode,description=How branch references are resolved,default=two_pass"`
	QuantityPrecision optional.Option[int]           `yaml:"quantity_precision" json:"quantity_precision" jsonschema:"title=Quantity Precision,description=Decimal places order quantities are truncated to"`
	Universe          []string                       `yaml:"universe" json:"universe" validate:"dive,required" jsonschema:"title=Universe,description=Tradable symbols. Defaults to every symbol of the data source"`
	Concurrency       int                            `yaml:"concurrency" json:"concurrency" validate:"gte=1" jsonschema:"title=Concurrency,description=Rebalance dates evaluated in parallel,minimum=1,default=1"`
	EvaluationTimeout optional.Option[time.Duration] `yaml:"evaluation_timeout" json:"evaluation_timeout" jsonschema:"title=Evaluation Timeout,description=Deadline of a single rebalance call"`
}

// UnmarshalYAML implements custom unmarshaling for DecisionEngineV1Config.
// Omitted fields keep their defaults.
func (c *DecisionEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type Config struct {
		InitialCapital    float64        `yaml:"initial_capital"`
		StartTime         *time.Time     `yaml:"start_time"`
		EndTime           *time.Time     `yaml:"end_time"`
		RebalanceDates    []time.Time    `yaml:"rebalance_dates"`
		SizingLagDays     *int           `yaml:"sizing_lag_days"`
		BuildMode         string         `yaml:"build_mode"`
		QuantityPrecision *int           `yaml:"quantity_precision"`
		Universe          []string       `yaml:"universe"`
		Concurrency       *int           `yaml:"concurrency"`
		EvaluationTimeout *time.Duration `yaml:"evaluation_timeout"`
	}

	var config Config
	if err := value.Decode(&config); err != nil {
		return err
	}

	*c = EmptyConfig()
	c.InitialCapital = config.InitialCapital
	c.RebalanceDates = config.RebalanceDates
	c.Universe = config.Universe

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	if config.SizingLagDays != nil {
		c.SizingLagDays = *config.SizingLagDays
	}

	if config.BuildMode != "" {
		c.BuildMode = graph.BuildMode(config.BuildMode)
	}

	if config.QuantityPrecision != nil {
		c.QuantityPrecision = optional.Some(*config.QuantityPrecision)
	}

	if config.Concurrency != nil {
		c.Concurrency = *config.Concurrency
	}

	if config.EvaluationTimeout != nil {
		c.EvaluationTimeout = optional.Some(*config.EvaluationTimeout)
	}

	return nil
}

// Validate checks field constraints and the consistency of the schedule.
func (c DecisionEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine configuration", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "end_time %s is before start_time %s",
			c.EndTime.Unwrap().Format(time.DateOnly), c.StartTime.Unwrap().Format(time.DateOnly))
	}

	if c.QuantityPrecision.IsSome() && c.QuantityPrecision.Unwrap() < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "quantity_precision must not be negative, got %d",
			c.QuantityPrecision.Unwrap())
	}

	return nil
}

// GenerateSchema generates a JSON schema for the DecisionEngineV1Config
func (c *DecisionEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t.String() {
			case "optional.Option[time.Time]":
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			case "optional.Option[int]":
				return &jsonschema.Schema{
					Type: "integer",
				}
			case "optional.Option[time.Duration]":
				return &jsonschema.Schema{
					Type:        "string",
					Description: "Go duration, for example 5s",
				}
			case "graph.BuildMode":
				return &jsonschema.Schema{
					Type: "string",
					Enum: []any{string(graph.BuildModeTwoPass), string(graph.BuildModeReverseDeclaration)},
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "decision-engine-v1-config"
	schema.Description = "Configuration schema for DecisionEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the DecisionEngineV1Config
func (c *DecisionEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func TestConfig(startTime time.Time, endTime time.Time, initialCapital float64) DecisionEngineV1Config {
	config := EmptyConfig()
	config.InitialCapital = initialCapital
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a DecisionEngineV1Config with default values
func EmptyConfig() DecisionEngineV1Config {
	return DecisionEngineV1Config{
		InitialCapital:    0,
		StartTime:         optional.None[time.Time](),
		EndTime:           optional.None[time.Time](),
		RebalanceDates:    nil,
		SizingLagDays:     defaultSizingLagDays,
		BuildMode:         graph.BuildModeTwoPass,
		QuantityPrecision: optional.None[int](),
		Universe:          nil,
		Concurrency:       defaultConcurrency,
		EvaluationTimeout: optional.None[time.Duration](),
	}
}
