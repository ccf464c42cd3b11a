// Package strategy reads decision graph strategy documents: an ordered list of
// conditions plus the actions they branch to.
package strategy

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/version"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a strategy document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Document is a strategy: the first condition is the root of the graph.
type Document struct {
	Name          string                `yaml:"name" json:"name" jsonschema:"title=Name,description=Name of the strategy"`
	SchemaVersion string                `yaml:"schema_version,omitempty" json:"schema_version,omitempty" jsonschema:"title=Schema Version,description=Version of the document schema the strategy was written for"`
	Description   string                `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description"`
	Conditions    []types.ConditionSpec `yaml:"conditions" json:"conditions" jsonschema:"title=Conditions,description=Decision nodes; the first one is the root"`
	Actions       types.ActionSpecs     `yaml:"actions" json:"actions" jsonschema:"title=Actions,description=Target weights by action name"`
}

// FormatFromPath picks the document format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidSpecFormat, "unsupported strategy file extension: %s", filepath.Ext(path))
	}
}

// Parse decodes a document and checks that its schema version is supported.
// Unknown fields are rejected.
func Parse(data []byte, format Format) (Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)

		if err := decoder.Decode(&doc); err != nil {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidSpecFormat, "failed to decode strategy yaml", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(&doc); err != nil {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidSpecFormat, "failed to decode strategy json", err)
		}
	default:
		return Document{}, errors.Newf(errors.ErrCodeInvalidSpecFormat, "unsupported strategy format: %s", format)
	}

	if err := version.CheckSchemaCompatibility(version.SchemaVersion, doc.SchemaVersion); err != nil {
		return Document{}, err
	}

	return doc, nil
}

// LoadFile reads and parses the document at path.
func LoadFile(path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Document{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errors.Wrapf(errors.ErrCodeInvalidSpecFormat, err, "failed to read strategy file %s", path)
	}

	return Parse(data, format)
}

// Marshal encodes the document in the given format.
func (d Document) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidSpecFormat, "unsupported strategy format: %s", format)
	}
}
