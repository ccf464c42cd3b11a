package version

// Version is the current version of the decision engine.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/salimtlemcani/conditional-decision-graph-based-strategies/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// SchemaVersion is the newest strategy document schema the engine reads.
const SchemaVersion = "1.1.0"

// GetVersion returns the current version of the engine.
func GetVersion() string {
	return Version
}
