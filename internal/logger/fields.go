package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields. These are injected into the context at the edge
// (HTTP middleware, CLI entry) and propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldTurnID is the chat turn ID
	FieldTurnID = "turn_id"

	// FieldTurnMode is the resolved turn state (sassy, meme, chat)
	FieldTurnMode = "turn_mode"

	// FieldStage is the pipeline stage (analyze, retrieve, compose)
	FieldStage = "stage"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldQuery is the image search query being processed
	FieldQuery = "query"
)

// Standard metric fields, attached at the log call site for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
