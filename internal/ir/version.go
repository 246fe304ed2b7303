package ir

// Version constants for the persisted schema and the core.
const (
	// IRVersion is the persisted reference-bundle schema version.
	IRVersion = "1"

	// EngineVersion is the rebuild core version.
	EngineVersion = "0.1.0"
)
