package graph

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/logger"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/types"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var specValidator = newSpecValidator()

func newSpecValidator() *validator.Validate {
	validate := validator.New()

	// report fields by the names used in condition documents
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	return validate
}

// Validate checks that every condition has its required fields and that every
// branch names a condition or an action. All violations are logged and returned
// together; use multierr.Errors to list them.
//
// Node name uniqueness, cycles, reachability and the fields of dynamic
// thresholds are not checked here.
func Validate(conditions []types.ConditionSpec, actions types.ActionSpecs, log *logger.Logger) error {
	log = logger.OrNop(log)

	if len(conditions) == 0 {
		err := errors.New(errors.ErrCodeEmptyGraph, "at least one condition is required")
		log.Error("Invalid specification", zap.Error(err))

		return err
	}

	nodeNames := make(map[string]struct{}, len(conditions))
	for _, spec := range conditions {
		nodeNames[spec.NodeName] = struct{}{}
	}

	var result error

	for i, spec := range conditions {
		for _, err := range fieldErrors(i, spec) {
			log.Error("Missing field in condition specification",
				zap.Int("index", i),
				zap.String("node", spec.NodeName),
				zap.Error(err))

			result = multierr.Append(result, err)
		}

		for _, branch := range []struct {
			field  string
			target string
		}{
			{field: "true_branch", target: spec.TrueBranch},
			{field: "false_branch", target: spec.FalseBranch},
		} {
			// an empty branch is already reported as a missing field
			if branch.target == "" {
				continue
			}

			_, isNode := nodeNames[branch.target]
			_, isAction := actions[branch.target]

			if !isNode && !isAction {
				err := errors.Newf(errors.ErrCodeUnknownReference,
					"branch %s in node %s references unknown node/action %s", branch.field, spec.NodeName, branch.target)
				log.Error("Unknown branch reference",
					zap.String("node", spec.NodeName),
					zap.String("branch", branch.field),
					zap.String("target", branch.target))

				result = multierr.Append(result, err)
			}
		}
	}

	return result
}

// Valid reports whether Validate finds no violation.
func Valid(conditions []types.ConditionSpec, actions types.ActionSpecs, log *logger.Logger) bool {
	return Validate(conditions, actions, log) == nil
}

func fieldErrors(index int, spec types.ConditionSpec) []error {
	var errs []error

	if err := specValidator.Struct(spec); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return []error{errors.Wrapf(errors.ErrCodeInvalidSpec, err, "condition %d", index)}
		}

		for _, fe := range validationErrors {
			if fe.Tag() == "required" {
				errs = append(errs, errors.Newf(errors.ErrCodeMissingField,
					"missing field %s in condition %d (%s)", fe.Field(), index, spec.NodeName))

				continue
			}

			errs = append(errs, errors.Newf(errors.ErrCodeInvalidSpec,
				"field %s in condition %d (%s) fails %s=%s", fe.Field(), index, spec.NodeName, fe.Tag(), fe.Param()))
		}
	}

	// a threshold decoded from an empty value holds neither side
	if spec.Threshold != nil && !spec.Threshold.Constant.IsSome() && !spec.Threshold.Dynamic.IsSome() {
		errs = append(errs, errors.Newf(errors.ErrCodeMissingField,
			"missing field threshold in condition %d (%s)", index, spec.NodeName))
	}

	return errs
}
