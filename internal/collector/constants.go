package collector

import "time"

// Pattern constants.
const DefaultIncludePattern = "*"

// DefaultCacheTTL is how long aggregated results stay fresh.
const DefaultCacheTTL = 10 * time.Minute

// CachePrefix namespaces this service's keys on a shared cache backend.
const CachePrefix = "ghas-metrics"

// Cache operations; keys are "<operation>:<org>".
const (
	opDependabot     = "dependabot"
	opCoverage       = "coverage"
	opPushProtection = "push-protection"
	opCommitters     = "committers"
)

// UnknownBucket collects alerts without a severity or ecosystem.
const UnknownBucket = "unknown"

// ReasonManualBypass is the only push protection bypass reason attributed.
const ReasonManualBypass = "manual_bypass"

// MTTR constants.
const (
	// MaxMTTRHours drops resolution times above one year as bad data.
	MaxMTTRHours = 8760
	// DependabotFallbackHours is reported when no measured MTTR exists.
	DependabotFallbackHours = 48
	// ImprovingBelowHours and DegradingAboveHours bound the stable trend.
	ImprovingBelowHours = 24
	DegradingAboveHours = 72
)

// Security features count for coverage calculation.
const NumSecurityFeatures = 4

// Percentage constants.
const MaxPercentage = 100
