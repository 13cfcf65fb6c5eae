package ir

// Version constants for IR schema and engine.
const (
	// IRVersion is the resolved document schema version.
	IRVersion = "1"

	// EngineVersion is the CUI engine version.
	EngineVersion = "0.1.0"
)
