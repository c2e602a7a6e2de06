package github

// API configuration.
const (
	DefaultBaseURL = "https://api.github.com"
	AcceptHeader   = "application/vnd.github+json"
	APIVersion     = "2022-11-28"
)

// Pagination.
const (
	// MaxPerPage is the largest page size the REST API accepts.
	MaxPerPage = 100
)

// Security status values.
const (
	StatusEnabled = "enabled"
)

// Alert states used as list filters.
const (
	StateOpen     = "open"
	StateFixed    = "fixed"
	StateResolved = "resolved"
)

// Rate limit response headers.
const (
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)
