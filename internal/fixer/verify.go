package fixer

import "strings"

// Outcome classifies what a fix achieved.
type Outcome string

const (
	// OutcomeResolved means the failure no longer reproduces.
	OutcomeResolved Outcome = "resolved"

	// OutcomeUnresolved means the failure still reproduces.
	OutcomeUnresolved Outcome = "unresolved"

	// OutcomeAmbiguous means the post-check itself could not be
	// evaluated. Scored as a failure, but surfaced distinctly so it is
	// not conflated with a confirmed-bad fix.
	OutcomeAmbiguous Outcome = "ambiguous"
)

// Check is one evaluation of the caller-supplied failure predicate,
// taken immediately before or after an execution.
type Check struct {
	// Failing reports whether the failure marker was present.
	Failing bool
	// Err is set when the predicate itself could not be evaluated.
	Err error
}

// Probe produces a Check. The supervisor's probe rescans the agent's
// log tail; CLI callers can supply anything.
type Probe func() Check

// Verify compares the before/after predicate pair and classifies the
// outcome. A resolution can only be attributed to the fix when the
// failure was actually reproducing beforehand; a before check that
// errored or was not failing leaves the outcome ambiguous.
func Verify(before, after Check) Outcome {
	if before.Err != nil || after.Err != nil {
		return OutcomeAmbiguous
	}
	if !before.Failing {
		return OutcomeAmbiguous
	}
	if !after.Failing {
		return OutcomeResolved
	}
	return OutcomeUnresolved
}

// Indicator words used by the text-state verification below.
var (
	successIndicators = []string{"success", "passed", "completed", "✅", "fixed", "resolved"}
	failureIndicators = []string{"failed", "error", "❌", "timeout", "crashed", "panic"}
)

// VerifyStates classifies an outcome from free-form before/after state
// text, for callers that only have log fragments rather than a runnable
// predicate. More failure indicators than success indicators in the
// after-state means unresolved; the reverse means resolved; a tie is
// ambiguous.
func VerifyStates(before, after string) Outcome {
	lower := strings.ToLower(after)

	var successes, failures int
	for _, ind := range successIndicators {
		if strings.Contains(lower, ind) {
			successes++
		}
	}
	for _, ind := range failureIndicators {
		if strings.Contains(lower, ind) {
			failures++
		}
	}

	switch {
	case successes > failures:
		return OutcomeResolved
	case failures > successes:
		return OutcomeUnresolved
	default:
		return OutcomeAmbiguous
	}
}
