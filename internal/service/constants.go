package service

// Health status constants
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// Client-facing error messages
const (
	MsgExpectedJSON     = "Invalid input format, expected JSON"
	MsgExpectedList     = "Invalid input format, expected list"
	MsgBodyTooLarge     = "Request body too large"
	MsgRateLimited      = "Rate limit exceeded: %s"
	MsgInternal         = "Internal server error"
	MsgNotFound         = "Not found"
	MsgMethodNotAllowed = "Method not allowed"
	MsgForbidden        = "Forbidden"
	MsgKeyRequired      = "Invalid input, key is required"
)
