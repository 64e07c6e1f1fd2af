// Package triage scans agent log output for failure markers and distills
// matches into normalized failure signatures. Scanning is a pure function
// of the log lines passed in; nothing here touches the knowledge store.
package triage

import (
	"regexp"
	"strings"

	"github.com/steveyegge/mechanic/internal/knowledge"
)

// WindowLines bounds how much recent log output a scan considers. Keeping
// the window small bounds matching cost and avoids re-alerting on errors
// that scrolled past long ago.
const WindowLines = 40

// Signature is the normalized representation of an observed failure.
// It is transient: the supervisor hands it to the decision engine, which
// resolves PatternID against the knowledge store. Signatures are never
// persisted on their own.
type Signature struct {
	// Raw is the log line that matched a failure marker.
	Raw string `json:"raw"`

	// Normalized is Raw with volatile content (timestamps, paths, UUIDs,
	// addresses, line numbers) stripped.
	Normalized string `json:"normalized"`

	// PatternID is the stable hash of Normalized. Whether it matches a
	// known pattern is decided by the engine, not here.
	PatternID string `json:"pattern_id"`

	Category knowledge.Category `json:"category"`
	Severity knowledge.Severity `json:"severity"`

	// Agent and Project identify where the failure was observed.
	Agent   string `json:"agent,omitempty"`
	Project string `json:"project,omitempty"`
}

// marker pairs a lowercase substring with the severity it implies.
// Ordered most severe first so the strongest marker on a line wins.
type marker struct {
	substr   string
	severity knowledge.Severity
}

var markers = []marker{
	{"panic:", knowledge.SeverityCritical},
	{"fatal", knowledge.SeverityCritical},
	{"critical", knowledge.SeverityCritical},
	{"exception", knowledge.SeverityHigh},
	{"build failed", knowledge.SeverityHigh},
	{"tests failed", knowledge.SeverityHigh},
	{"test failed", knowledge.SeverityHigh},
	{"assertion failed", knowledge.SeverityHigh},
	{"segfault", knowledge.SeverityHigh},
	{"failed", knowledge.SeverityMedium},
	{"error", knowledge.SeverityMedium},
	{"timeout", knowledge.SeverityMedium},
	{"❌", knowledge.SeverityMedium},
}

// categoryHints maps substrings in the normalized line to a category.
// First hit wins; ordered specific to general.
var categoryHints = []struct {
	substr   string
	category knowledge.Category
}{
	{"build", knowledge.CategoryBuild},
	{"compile", knowledge.CategoryBuild},
	{"link", knowledge.CategoryBuild},
	{"lint", knowledge.CategoryLint},
	{"format", knowledge.CategoryLint},
	{"dependency", knowledge.CategoryDependency},
	{"package", knowledge.CategoryDependency},
	{"resolve", knowledge.CategoryDependency},
	{"module", knowledge.CategoryDependency},
	{"panic", knowledge.CategoryRuntime},
	{"segfault", knowledge.CategoryRuntime},
	{"crash", knowledge.CategoryRuntime},
	{"timeout", knowledge.CategoryRuntime},
	{"test", knowledge.CategoryRuntime},
	{"exception", knowledge.CategoryRuntime},
}

var (
	ansiRe      = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	timestampRe = regexp.MustCompile(`^\[?[0-9]{2,4}[-/:][0-9]{2}[-/:][0-9]{2,4}[ T]?[0-9:.]*\]?\s*`)
	bracketTsRe = regexp.MustCompile(`\[[0-9: .\-]+\]`)
	uuidRe      = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	hexAddrRe   = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	pathRe      = regexp.MustCompile(`(/[\w.\-]+){2,}`)
	lineColRe   = regexp.MustCompile(`:\d+(:\d+)?`)
	lineWordRe  = regexp.MustCompile(`(?i)line \d+`)
	spacesRe    = regexp.MustCompile(`\s+`)
)

// Normalize strips volatile content from a raw log line so that
// semantically identical errors hash to the same pattern ID.
func Normalize(raw string) string {
	m := ansiRe.ReplaceAllString(raw, "")
	m = timestampRe.ReplaceAllString(m, "")
	m = bracketTsRe.ReplaceAllString(m, "")
	m = uuidRe.ReplaceAllString(m, "<uuid>")
	m = hexAddrRe.ReplaceAllString(m, "<addr>")
	m = pathRe.ReplaceAllString(m, "<path>")
	m = lineColRe.ReplaceAllString(m, ":<n>")
	m = lineWordRe.ReplaceAllString(m, "line <n>")
	m = spacesRe.ReplaceAllString(m, " ")
	return strings.ToLower(strings.TrimSpace(m))
}

// Scan examines the most recent WindowLines of the given log lines and
// returns a signature for the last (most recent) line that carries a
// failure marker, or nil if the window is clean.
func Scan(lines []string) *Signature {
	if len(lines) > WindowLines {
		lines = lines[len(lines)-WindowLines:]
	}

	for i := len(lines) - 1; i >= 0; i-- {
		sev, ok := matchMarker(lines[i])
		if !ok {
			continue
		}
		norm := Normalize(lines[i])
		if norm == "" {
			continue
		}
		return &Signature{
			Raw:        strings.TrimSpace(lines[i]),
			Normalized: norm,
			PatternID:  knowledge.PatternID(norm),
			Category:   categorize(norm),
			Severity:   sev,
		}
	}
	return nil
}

// ScanText splits a log fragment into lines and scans it.
func ScanText(text string) *Signature {
	return Scan(strings.Split(text, "\n"))
}

// Classify builds a signature for text the caller already knows is a
// failure, for surfaces that accept error text directly. Marker severity
// applies when present; unmarked text defaults to medium.
func Classify(raw string) *Signature {
	sev, ok := matchMarker(raw)
	if !ok {
		sev = knowledge.SeverityMedium
	}
	norm := Normalize(raw)
	if norm == "" {
		return nil
	}
	return &Signature{
		Raw:        strings.TrimSpace(raw),
		Normalized: norm,
		PatternID:  knowledge.PatternID(norm),
		Category:   categorize(norm),
		Severity:   sev,
	}
}

func matchMarker(line string) (knowledge.Severity, bool) {
	lower := strings.ToLower(line)
	for _, m := range markers {
		if strings.Contains(lower, m.substr) {
			return m.severity, true
		}
	}
	return "", false
}

func categorize(normalized string) knowledge.Category {
	for _, h := range categoryHints {
		if strings.Contains(normalized, h.substr) {
			return h.category
		}
	}
	return knowledge.CategoryUnknown
}
