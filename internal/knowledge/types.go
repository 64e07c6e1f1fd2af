// Package knowledge provides the durable store of error patterns and fix
// outcomes that the decision engine learns from across runs.
package knowledge

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Category classifies the subsystem an error pattern belongs to.
type Category string

const (
	CategoryBuild      Category = "build"
	CategoryLint       Category = "lint"
	CategoryDependency Category = "dependency"
	CategoryRuntime    Category = "runtime"
	CategoryUnknown    Category = "unknown"
)

// Severity ranks how urgent an error pattern is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsActionable reports whether the severity justifies aggressive remediation.
func (s Severity) IsActionable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// MaxExamples caps the example list per pattern so the store file stays
// bounded over long-term operation. Counts are never pruned.
const MaxExamples = 5

// ErrorPattern is one normalized failure signature with its history.
// Identity is the stable hash of the normalized pattern text, so
// semantically identical errors collapse into a single record.
type ErrorPattern struct {
	// ID is the stable hash of the normalized pattern text.
	ID string `json:"id"`

	// Pattern is the normalized pattern text itself.
	Pattern string `json:"pattern"`

	Category Category `json:"category"`
	Severity Severity `json:"severity"`

	// Count is the number of times this pattern has been observed.
	// It only ever increases.
	Count int `json:"count"`

	// Examples holds up to MaxExamples raw occurrences, oldest first.
	Examples []string `json:"examples"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// FixRecord tracks the historical outcomes of one remediation action.
// The success rate is always derived from the two counters so the
// counters and the rate can never drift apart.
type FixRecord struct {
	Action string `json:"action"`

	TimesUsed int `json:"times_used"`
	Successes int `json:"successes"`

	LastUsed time.Time `json:"last_used"`

	// AvgDurationSeconds is a running mean over all executions.
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
}

// SuccessRate returns Successes/TimesUsed, or the 0.5 prior when the
// action has never been used.
func (f *FixRecord) SuccessRate() float64 {
	if f == nil || f.TimesUsed == 0 {
		return 0.5
	}
	return float64(f.Successes) / float64(f.TimesUsed)
}

// PatternID computes the stable identifier for a normalized pattern text.
// First 12 hex chars of the SHA-1, matching the on-disk knowledge files.
func PatternID(normalized string) string {
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])[:12]
}
