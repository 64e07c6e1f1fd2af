package fixer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/mechanic/internal/knowledge"
)

// ErrCooldown is returned when the same action was already attempted on
// the same signature within the cooldown period.
var ErrCooldown = errors.New("action in cooldown for this signature")

// ExecutionResult captures one handler invocation.
type ExecutionResult struct {
	ID       string        `json:"id"`
	Action   string        `json:"action"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"duration"`
	Started  time.Time     `json:"started"`
}

// Failed reports whether the execution itself errored (including timeout).
func (r *ExecutionResult) Failed() bool {
	return r.Err != nil
}

// Executor applies registered actions under a hard runtime limit and a
// per-(signature, action) cooldown.
type Executor struct {
	registry *Registry
	store    *knowledge.Store
	timeout  time.Duration
	cooldown time.Duration

	mu      sync.Mutex
	lastRun map[string]time.Time

	// now is stubbed in tests.
	now func() time.Time
}

// NewExecutor creates an executor. timeout bounds a single handler run;
// cooldown is the minimum gap before the same action may be retried on
// the same signature.
func NewExecutor(registry *Registry, store *knowledge.Store, timeout, cooldown time.Duration) *Executor {
	return &Executor{
		registry: registry,
		store:    store,
		timeout:  timeout,
		cooldown: cooldown,
		lastRun:  make(map[string]time.Time),
		now:      time.Now,
	}
}

// Apply runs the named action's handler, bounded by the configured
// timeout. It does not record the outcome in the knowledge store - the
// caller verifies first, then calls Record with the classified result.
func (x *Executor) Apply(ctx context.Context, actionName string, fctx Context) (*ExecutionResult, error) {
	action, err := x.registry.Lookup(actionName)
	if err != nil {
		return nil, err
	}

	key := fctx.PatternID + ":" + actionName
	now := x.now()

	x.mu.Lock()
	if last, ok := x.lastRun[key]; ok && now.Sub(last) < x.cooldown {
		x.mu.Unlock()
		return nil, fmt.Errorf("%w: %s retried %s after last attempt (cooldown %s)",
			ErrCooldown, actionName, now.Sub(last).Round(time.Second), x.cooldown)
	}
	x.lastRun[key] = now
	x.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	result := &ExecutionResult{
		ID:      uuid.NewString(),
		Action:  actionName,
		Started: now,
	}

	start := time.Now()
	err = action.Handler(runCtx, fctx)
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = err
		result.Error = err.Error()
		result.TimedOut = errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(runCtx.Err(), context.DeadlineExceeded)
	}
	return result, nil
}

// Record writes the classified outcome of an execution back to the
// knowledge store. Ambiguous outcomes count as failures for scoring.
// Every execution must be recorded, whatever its outcome.
func (x *Executor) Record(result *ExecutionResult, outcome Outcome) (*knowledge.FixRecord, error) {
	return x.store.RecordFixOutcome(result.Action, outcome == OutcomeResolved, result.Duration)
}

// ResetCooldown clears the cooldown for a (signature, action) pair.
// Used by manual intervention paths.
func (x *Executor) ResetCooldown(patternID, actionName string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.lastRun, patternID+":"+actionName)
}
