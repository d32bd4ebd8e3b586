package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the scrape job ID
	FieldJobID = "job_id"

	// FieldPlatform is the travel platform being scraped
	FieldPlatform = "platform"

	// FieldHotelKey is the configured hotel key
	FieldHotelKey = "hotel_key"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldStrategy is the extraction strategy that produced a result
	FieldStrategy = "strategy"

	// FieldAttempt is the 1-based attempt number of a retried call
	FieldAttempt = "attempt"
)
