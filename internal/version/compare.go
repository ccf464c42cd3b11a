package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/salimtlemcani/conditional-decision-graph-based-strategies/pkg/errors"
)

// CheckSchemaCompatibility checks whether a strategy document written for
// documentVersion can be read by an engine supporting engineVersion.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - An empty document version is treated as compatible (documents written before versioning)
//   - Major versions must match exactly
//   - The document minor version must not be newer than the engine's
//   - Patch versions can differ
//
// Examples:
//   - Engine 1.1.0, Document 1.1.0 -> OK (exact match)
//   - Engine 1.1.0, Document 1.0.3 -> OK (older minor)
//   - Engine 1.1.0, Document 1.2.0 -> ERROR (document is newer)
//   - Engine 1.1.0, Document 2.0.0 -> ERROR (major differs)
func CheckSchemaCompatibility(engineVersion, documentVersion string) error {
	// Strip 'v' prefix if present for consistency
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	documentVersion = strings.TrimPrefix(documentVersion, "v")

	if documentVersion == "" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine schema version '%s'", engineVersion)
	}

	documentSemver, err := semver.NewVersion(documentVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid document schema version '%s'", documentVersion)
	}

	// Check major version match
	if engineSemver.Major() != documentSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: engine reads %d.x.x but document is %d.x.x",
			engineSemver.Major(), documentSemver.Major())
	}

	if documentSemver.Minor() > engineSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "document schema %d.%d.x is newer than the supported %d.%d.x",
			documentSemver.Major(), documentSemver.Minor(),
			engineSemver.Major(), engineSemver.Minor())
	}

	return nil
}
