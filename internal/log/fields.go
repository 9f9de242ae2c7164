package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldProvider  = "provider"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Catalog fields
	FieldStreamClass = "stream_class"
	FieldGroup       = "group"
	FieldChannels    = "channels"
	FieldMovies      = "movies"
	FieldSeries      = "series"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
