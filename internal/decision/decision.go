// Package decision scores candidate remediation actions against the
// knowledge store and chooses an action plus a disposition.
package decision

import (
	"context"
	"fmt"
	"sort"

	"github.com/steveyegge/mechanic/internal/advisory"
	"github.com/steveyegge/mechanic/internal/fixer"
	"github.com/steveyegge/mechanic/internal/knowledge"
	"github.com/steveyegge/mechanic/internal/triage"
)

// Disposition is what the engine wants done with the chosen action.
type Disposition string

const (
	// AutoExecute: confidence is high enough to apply the fix unattended.
	AutoExecute Disposition = "auto_execute"
	// Suggest: surface the fix for a human or host system to approve.
	Suggest Disposition = "suggest"
	// Escalate: unknown-error path, needs qualitative help.
	Escalate Disposition = "escalate"
)

// Confidence term weights. The pattern-match term dominates on purpose:
// a signature with no stored pattern cannot reach the auto-execute
// threshold whatever its other terms, so novel failures are never
// auto-remediated.
const (
	matchWeight       = 0.40
	successRateSpread = 0.20
	occurrenceCap     = 0.15
	occurrenceStep    = 0.01
	severityBoost     = 0.15
)

// Thresholds holds the disposition cut-offs.
type Thresholds struct {
	AutoExecute float64
	Suggest     float64
}

// DefaultThresholds returns the standard cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoExecute: 0.75, Suggest: 0.50}
}

// Alternative is a runner-up action with its own confidence.
type Alternative struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Decision is the engine's answer for one failure signature.
type Decision struct {
	Signature    *triage.Signature `json:"signature"`
	Action       string            `json:"action"`
	Confidence   float64           `json:"confidence"`
	Disposition  Disposition       `json:"disposition"`
	Alternatives []Alternative     `json:"alternatives,omitempty"`
	Reasoning    string            `json:"reasoning"`

	// KnownPattern is true when the signature resolved to a stored
	// pattern.
	KnownPattern bool `json:"known_pattern"`

	// AIAvailable reports whether the advisory service answered.
	// Advisory text is supplementary; a Decision never depends on it.
	AIAvailable bool   `json:"ai_available"`
	Advisory    string `json:"advisory,omitempty"`
}

// Engine scores candidate actions against the knowledge store.
type Engine struct {
	store      *knowledge.Store
	registry   *fixer.Registry
	advisor    *advisory.Client
	thresholds Thresholds
}

// New creates an engine. advisor may be nil to disable advisory lookups.
func New(store *knowledge.Store, registry *fixer.Registry, advisor *advisory.Client, thresholds Thresholds) *Engine {
	return &Engine{
		store:      store,
		registry:   registry,
		advisor:    advisor,
		thresholds: thresholds,
	}
}

// Evaluate resolves the signature against the knowledge store, scores
// every candidate action, and returns the best with its disposition.
func (e *Engine) Evaluate(ctx context.Context, sig *triage.Signature) (*Decision, error) {
	pattern, err := e.store.Get(sig.PatternID)
	if err != nil {
		return nil, fmt.Errorf("resolving pattern: %w", err)
	}

	category := sig.Category
	severity := sig.Severity
	if pattern != nil {
		// The stored record carries the accumulated view of this error.
		category = pattern.Category
		severity = maxSeverity(severity, pattern.Severity)
	}

	candidates := e.registry.Candidates(category)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidate actions for category %q", category)
	}

	type scored struct {
		action     fixer.Action
		confidence float64
		record     *knowledge.FixRecord
	}
	ranked := make([]scored, 0, len(candidates))
	for _, a := range candidates {
		rec, err := e.store.GetFix(a.Name)
		if err != nil {
			return nil, fmt.Errorf("loading fix history for %s: %w", a.Name, err)
		}
		ranked = append(ranked, scored{
			action:     a,
			confidence: Confidence(pattern != nil, rec.SuccessRate(), occurrences(pattern), severity),
			record:     rec,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].confidence != ranked[j].confidence {
			return ranked[i].confidence > ranked[j].confidence
		}
		// Ties go to the action with more recorded successes.
		return successCount(ranked[i].record) > successCount(ranked[j].record)
	})

	best := ranked[0]
	d := &Decision{
		Signature:    sig,
		Action:       best.action.Name,
		Confidence:   best.confidence,
		Disposition:  e.disposition(best.confidence, pattern != nil),
		KnownPattern: pattern != nil,
		Reasoning:    reasoning(pattern, best.record, best.action.Name),
	}
	for _, s := range ranked[1:] {
		d.Alternatives = append(d.Alternatives, Alternative{
			Action:     s.action.Name,
			Confidence: s.confidence,
		})
	}

	e.consultAdvisor(ctx, d)
	return d, nil
}

// Confidence computes the weighted confidence score, each term clamped
// to its contribution range, then clamped overall to [0, 1]. Occurrence
// counts belong to a stored pattern, so that term contributes nothing
// for unknown signatures; their ceiling is 0.35.
func Confidence(patternKnown bool, successRate float64, occurrenceCount int, severity knowledge.Severity) float64 {
	var c float64
	if patternKnown {
		c += matchWeight

		occTerm := float64(occurrenceCount) * occurrenceStep
		if occTerm > occurrenceCap {
			occTerm = occurrenceCap
		}
		c += occTerm
	}

	rateTerm := (successRate - 0.5) * 0.4
	if rateTerm > successRateSpread {
		rateTerm = successRateSpread
	} else if rateTerm < -successRateSpread {
		rateTerm = -successRateSpread
	}
	c += rateTerm

	if severity.IsActionable() {
		c += severityBoost
	}

	if c < 0 {
		c = 0
	} else if c > 1 {
		c = 1
	}
	return c
}

func (e *Engine) disposition(confidence float64, patternKnown bool) Disposition {
	switch {
	case confidence >= e.thresholds.AutoExecute && patternKnown:
		return AutoExecute
	case confidence >= e.thresholds.Suggest:
		return Suggest
	default:
		return Escalate
	}
}

// consultAdvisor attaches qualitative advisory text when the service is
// reachable. Unreachable is not an error: the decision stands on the
// local knowledge base alone.
func (e *Engine) consultAdvisor(ctx context.Context, d *Decision) {
	if e.advisor == nil || !e.advisor.Enabled() {
		return
	}
	text, err := e.advisor.Explain(ctx, d.Signature.Normalized, d.Action)
	if err != nil {
		// The client logs the first failure itself; nothing to do here.
		return
	}
	d.AIAvailable = true
	d.Advisory = text
}

func reasoning(pattern *knowledge.ErrorPattern, rec *knowledge.FixRecord, action string) string {
	if pattern == nil {
		return "unknown error pattern, needs analysis before any automatic fix"
	}
	if rec == nil || rec.TimesUsed == 0 {
		return fmt.Sprintf("seen %d times (%s/%s), no fix history for %s yet",
			pattern.Count, pattern.Category, pattern.Severity, action)
	}
	return fmt.Sprintf("seen %d times; %s previously used %d times with %d%% success rate",
		pattern.Count, action, rec.TimesUsed, int(rec.SuccessRate()*100))
}

func occurrences(p *knowledge.ErrorPattern) int {
	if p == nil {
		return 0
	}
	return p.Count
}

func successCount(rec *knowledge.FixRecord) int {
	if rec == nil {
		return 0
	}
	return rec.Successes
}

func maxSeverity(a, b knowledge.Severity) knowledge.Severity {
	rank := map[knowledge.Severity]int{
		knowledge.SeverityLow:      0,
		knowledge.SeverityMedium:   1,
		knowledge.SeverityHigh:     2,
		knowledge.SeverityCritical: 3,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
