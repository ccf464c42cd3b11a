package strategy

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
)

// mapStrategyTypes gives thresholds and operators the schema they have in a document,
// wherever they are embedded.
func mapStrategyTypes(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(types.Threshold{}):
		return thresholdSchema()
	case reflect.TypeOf(types.Operator("")):
		return &jsonschema.Schema{
			Type: "string",
			Enum: operatorEnum(),
		}
	}

	return nil
}

// GenerateSchema generates a JSON schema for strategy documents.
func GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: false,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper:                     mapStrategyTypes,
	}

	schema := reflector.Reflect(&Document{})

	schema.Title = "decision-graph-strategy"
	schema.Description = "Conditions and actions of a decision graph strategy"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// DocumentJSONSchema generates the strategy document schema as indented JSON.
func DocumentJSONSchema() (string, error) {
	schemaBytes, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// SchemaOf reflects value into a compact JSON schema with every nested type inlined.
// It serves the download and provider configs listed next to strategies.
func SchemaOf(value any) (string, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		Mapper:         mapStrategyTypes,
	}

	schemaBytes, err := json.Marshal(reflector.Reflect(value))
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func thresholdSchema() *jsonschema.Schema {
	dynamic := jsonschema.NewProperties()
	dynamic.Set("indicator", &jsonschema.Schema{Type: "string", Description: "Indicator read on both symbols"})
	dynamic.Set("etf1", &jsonschema.Schema{Type: "string", Description: "Symbol of the observed reading"})
	dynamic.Set("etf2", &jsonschema.Schema{Type: "string", Description: "Symbol whose reading becomes the threshold"})
	dynamic.Set("window", &jsonschema.Schema{Type: "integer", Default: types.DefaultDynamicWindow})
	dynamic.Set("operator", &jsonschema.Schema{Type: "string", Enum: operatorEnum(), Default: string(types.DefaultDynamicOperator)})

	return &jsonschema.Schema{
		Description: "A constant, or the reading of a second symbol",
		OneOf: []*jsonschema.Schema{
			{Type: "number"},
			{
				Type:                 "object",
				Properties:           dynamic,
				Required:             []string{"indicator", "etf1", "etf2"},
				AdditionalProperties: jsonschema.FalseSchema,
			},
		},
	}
}

func operatorEnum() []any {
	values := make([]any, 0, len(types.AllOperators))
	for _, op := range types.AllOperators {
		values = append(values, string(op))
	}

	return values
}
