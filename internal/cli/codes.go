package cli

// Error codes for CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Invalid configuration or flags
	ErrCodeJournal     = "E003" // Journal open/read failure
	ErrCodeNotFound    = "E004" // Path not found
	ErrCodeNoFiles     = "E005" // No documents given
	ErrCodeLoad        = "E006" // Document failed to load
	ErrCodeMergeFailed = "E010" // One or more documents not merged
	ErrCodeCycles      = "E011" // check found cycles
	ErrCodeTestsFailed = "E020" // Scenario failures
)
