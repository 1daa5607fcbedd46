package ir

// Version constants for the record schema and engine.
const (
	// SchemaVersion is the version of the delta/snapshot wire records.
	SchemaVersion = "1"

	// EngineVersion is the sbomgraph engine version.
	EngineVersion = "0.1.0"
)
