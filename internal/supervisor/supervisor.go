// Package supervisor owns the lifecycle of the supervised agent
// processes: spawning, failure detection, the decide/execute/verify
// pipeline, and the throttled restart policy.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/steveyegge/mechanic/internal/config"
	"github.com/steveyegge/mechanic/internal/decision"
	"github.com/steveyegge/mechanic/internal/eventbus"
	"github.com/steveyegge/mechanic/internal/fixer"
	"github.com/steveyegge/mechanic/internal/knowledge"
	"github.com/steveyegge/mechanic/internal/triage"
)

// ambiguousAlertThreshold is how many consecutive ambiguous
// verifications of the same signature raise an operator alert.
const ambiguousAlertThreshold = 2

// Supervisor runs the poll loop over all configured agents.
type Supervisor struct {
	cfg      *config.Config
	store    *knowledge.Store
	engine   *decision.Engine
	executor *fixer.Executor
	bus      *eventbus.Bus
	logger   *log.Logger
	throttle Throttle

	agents []*Agent

	ctx    context.Context
	cancel context.CancelFunc

	startedAt time.Time
	pollCount int
}

// New builds a supervisor from configuration and collaborators.
func New(cfg *config.Config, store *knowledge.Store, engine *decision.Engine, executor *fixer.Executor, bus *eventbus.Bus, logger *log.Logger) (*Supervisor, error) {
	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("no agents configured")
	}
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		executor: executor,
		bus:      bus,
		logger:   logger,
		throttle: Throttle{
			Limit:       cfg.Restart.Limit,
			Window:      cfg.RestartWindow(),
			MinInterval: cfg.MinRestartInterval(),
		},
		ctx:    ctx,
		cancel: cancel,
	}

	for _, spec := range cfg.Agents {
		logPath := spec.Log
		if logPath == "" {
			logPath = defaultLogPath(cfg.Supervisor.StateDir, spec.Name)
		}
		s.agents = append(s.agents, newAgent(spec.Name, spec.Project, spec.Command, spec.Args, logPath))
	}
	return s, nil
}

// Run starts all agents and polls them until a shutdown signal or
// context cancellation. Only one supervisor may run per state
// directory; a second invocation fails fast on the lock.
func (s *Supervisor) Run() error {
	if err := os.MkdirAll(s.cfg.Supervisor.StateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	fileLock := flock.New(filepath.Join(s.cfg.Supervisor.StateDir, "supervisor.lock"))
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring supervisor lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("supervisor already running (lock held by another process)")
	}
	defer fileLock.Unlock() //nolint:errcheck

	pidFile := filepath.Join(s.cfg.Supervisor.StateDir, "supervisor.pid")
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer os.Remove(pidFile) //nolint:errcheck

	s.startedAt = time.Now()
	s.logger.Printf("supervisor starting (pid %d, %d agents)", os.Getpid(), len(s.agents))

	for _, a := range s.agents {
		a.mu.Lock()
		err := a.start()
		a.mu.Unlock()
		if err != nil {
			// One agent failing to start must not take the others down.
			s.logger.Printf("agent %s failed to start: %v", a.Name, err)
			continue
		}
		s.bus.Publish(eventbus.EventAgentStarted, a.Name, nil)
		s.logger.Printf("agent %s started (pid %d)", a.Name, a.pid())
	}
	s.saveState()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Printf("supervisor context canceled, shutting down")
			return s.shutdown()
		case sig := <-sigChan:
			s.logger.Printf("received %v, shutting down", sig)
			return s.shutdown()
		case <-ticker.C:
			s.poll()
		}
	}
}

// Stop requests a shutdown from another goroutine.
func (s *Supervisor) Stop() {
	s.cancel()
}

// poll fans one health check out per agent and waits for all of them,
// so one stuck agent cannot stall detection for the rest.
func (s *Supervisor) poll() {
	var wg sync.WaitGroup
	for _, a := range s.agents {
		wg.Add(1)
		go func(a *Agent) {
			defer wg.Done()
			s.checkAgent(a)
		}(a)
	}
	wg.Wait()

	s.pollCount++
	s.saveState()
}

// checkAgent runs one detect/decide/execute/verify/restart cycle for a
// single agent. Holding the agent's lock for the whole cycle gives the
// strict per-agent ordering guarantee.
func (s *Supervisor) checkAgent(a *Agent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateHalted {
		// Window rollover re-enables a halted agent.
		if s.throttle.Rollover(&a.restarts, time.Now()) {
			s.logger.Printf("agent %s: restart window rolled over, leaving halted state", a.Name)
			a.haltedReason = ""
			s.restartLocked(a)
		}
		return
	}

	lines, err := tailLines(a.LogPath, s.cfg.Supervisor.LogWindowLines)
	if err != nil {
		s.logger.Printf("agent %s: reading log: %v", a.Name, err)
		return
	}

	sig := triage.Scan(lines)
	dead := !a.processAlive()

	if sig == nil && !dead {
		a.state = StateRunning
		return
	}

	if sig == nil && dead {
		// Died without leaving a recognizable failure in the window.
		s.logger.Printf("agent %s: process died with no failure marker in log tail", a.Name)
		a.state = StateFailing
		s.restartLocked(a)
		return
	}

	sig.Agent = a.Name
	sig.Project = a.Project
	a.state = StateFailing
	a.lastFailure = sig.Normalized

	// Every observed failure feeds the knowledge base: first sighting
	// creates the pattern, repeats accrue its count. The stored record
	// carries the accumulated category and escalated severity.
	pattern, err := s.store.UpsertPattern(sig.Normalized, sig.Category, sig.Severity, sig.Raw)
	if err != nil {
		s.logger.Printf("agent %s: recording pattern: %v", a.Name, err)
	} else {
		sig.Category = pattern.Category
		sig.Severity = pattern.Severity
	}

	s.bus.Publish(eventbus.EventFailureDetected, a.Name, sig)
	s.logger.Printf("agent %s: failure detected [%s/%s] %s", a.Name, sig.Category, sig.Severity, sig.Normalized)

	remediated := s.remediate(a, sig)

	if remediated && !dead {
		// The fix held and the process is still up; no restart needed.
		a.state = StateRunning
		return
	}
	s.restartLocked(a)
}

// remediate runs the decision pipeline for a signature and returns true
// if an auto-executed fix verified as resolved.
func (s *Supervisor) remediate(a *Agent, sig *triage.Signature) bool {
	d, err := s.engine.Evaluate(s.ctx, sig)
	if err != nil {
		s.logger.Printf("agent %s: decision failed: %v", a.Name, err)
		return false
	}
	s.logger.Printf("agent %s: decision %s for %s (confidence %.2f, ai=%v)",
		a.Name, d.Disposition, d.Action, d.Confidence, d.AIAvailable)

	switch d.Disposition {
	case decision.Suggest:
		s.logger.Printf("agent %s: suggested fix %s - not executing below auto threshold", a.Name, d.Action)
		return false
	case decision.Escalate:
		s.logger.Printf("agent %s: unknown or low-confidence failure, escalating", a.Name)
		return false
	}

	// Auto-execute path. Take the before-check and remember the log
	// offset so verification looks at output produced by the fix.
	before := s.probe(a, sig, 0)
	offset := fileSize(a.LogPath)

	result, err := s.executor.Apply(s.ctx, d.Action, fixer.Context{
		Agent:     a.Name,
		Project:   a.Project,
		PatternID: sig.PatternID,
	})
	if err != nil {
		if errors.Is(err, fixer.ErrCooldown) {
			s.logger.Printf("agent %s: %v", a.Name, err)
		} else {
			s.logger.Printf("agent %s: cannot apply %s: %v", a.Name, d.Action, err)
		}
		return false
	}
	s.bus.Publish(eventbus.EventFixApplied, a.Name, result)

	if result.Failed() {
		// The remediation itself errored. Recorded as a failure; the
		// cooldown stops an immediate retry.
		s.logger.Printf("agent %s: fix %s failed after %s: %v (timed out: %v)",
			a.Name, d.Action, result.Duration.Round(time.Millisecond), result.Err, result.TimedOut)
		if _, err := s.executor.Record(result, fixer.OutcomeUnresolved); err != nil {
			s.logger.Printf("agent %s: recording outcome: %v", a.Name, err)
		}
		return false
	}

	after := s.probe(a, sig, offset)
	outcome := fixer.Verify(before, after)
	s.bus.Publish(eventbus.EventFixVerified, a.Name, outcome)

	if _, err := s.executor.Record(result, outcome); err != nil {
		s.logger.Printf("agent %s: recording outcome: %v", a.Name, err)
	}

	switch outcome {
	case fixer.OutcomeResolved:
		delete(a.ambiguous, sig.PatternID)
		s.logger.Printf("agent %s: fix %s verified resolved in %s",
			a.Name, d.Action, result.Duration.Round(time.Millisecond))
		return true
	case fixer.OutcomeAmbiguous:
		a.ambiguous[sig.PatternID]++
		s.logger.Printf("agent %s: fix %s outcome ambiguous (post-check failed), scored as failure", a.Name, d.Action)
		if a.ambiguous[sig.PatternID] >= ambiguousAlertThreshold {
			s.alert(a, fmt.Sprintf("verification ambiguous %d times in a row for pattern %s",
				a.ambiguous[sig.PatternID], sig.PatternID))
		}
		return false
	default:
		delete(a.ambiguous, sig.PatternID)
		s.logger.Printf("agent %s: fix %s did not resolve the failure", a.Name, d.Action)
		return false
	}
}

// probe re-evaluates the failure predicate for a signature. With a
// positive offset only log output written after the fix started is
// considered; with no new output the check cannot be evaluated.
func (s *Supervisor) probe(a *Agent, sig *triage.Signature, offset int64) fixer.Check {
	var lines []string
	var err error
	if offset > 0 {
		lines, err = readFrom(a.LogPath, offset)
		if err == nil && len(lines) == 0 {
			return fixer.Check{Err: fmt.Errorf("no output after fix")}
		}
	} else {
		lines, err = tailLines(a.LogPath, s.cfg.Supervisor.LogWindowLines)
	}
	if err != nil {
		return fixer.Check{Err: err}
	}

	found := triage.Scan(lines)
	return fixer.Check{Failing: found != nil && found.PatternID == sig.PatternID}
}

// restartLocked applies the throttle policy and restarts or halts the
// agent. Caller holds the agent's lock.
func (s *Supervisor) restartLocked(a *Agent) {
	now := time.Now()
	ok, reason := s.throttle.Allow(&a.restarts, now)
	if !ok {
		a.state = StateHalted
		a.haltedReason = reason
		s.alert(a, "restarts halted: "+reason)
		s.bus.Publish(eventbus.EventAgentHalted, a.Name, reason)
		return
	}

	a.state = StateRestarting
	a.restarts.Record(now)
	a.stop(s.cfg.ShutdownGrace())

	if err := a.start(); err != nil {
		s.logger.Printf("agent %s: restart failed: %v", a.Name, err)
		return
	}
	s.bus.Publish(eventbus.EventAgentRestarted, a.Name, a.restarts)
	s.logger.Printf("agent %s restarted (pid %d, %d/%d in window)",
		a.Name, a.pid(), a.restarts.RestartCount, s.throttle.Limit)
}

// alert surfaces an operator-visible condition. These are the only two
// escalation paths out of the subsystem: restart budget exhaustion and
// repeated ambiguous verification.
func (s *Supervisor) alert(a *Agent, msg string) {
	s.logger.Printf("ALERT agent %s: %s", a.Name, msg)
	s.bus.Publish(eventbus.EventAlert, a.Name, msg)
}

// shutdown terminates all agents with the configured grace period.
// Knowledge store writes are synchronous, so by the time agents are
// down there is nothing in flight.
func (s *Supervisor) shutdown() error {
	var wg sync.WaitGroup
	for _, a := range s.agents {
		wg.Add(1)
		go func(a *Agent) {
			defer wg.Done()
			a.mu.Lock()
			defer a.mu.Unlock()
			a.stop(s.cfg.ShutdownGrace())
		}(a)
	}
	wg.Wait()

	snapshot := s.snapshot()
	snapshot.Running = false
	if err := SaveSnapshot(s.cfg.Supervisor.StateDir, snapshot); err != nil {
		s.logger.Printf("saving final state: %v", err)
	}
	s.logger.Printf("supervisor stopped")
	return nil
}

func (s *Supervisor) snapshot() *Snapshot {
	snap := &Snapshot{
		Running:   true,
		PID:       os.Getpid(),
		StartedAt: s.startedAt,
		LastPoll:  time.Now(),
		PollCount: s.pollCount,
		Agents:    make(map[string]AgentStatus, len(s.agents)),
	}
	for _, a := range s.agents {
		snap.Agents[a.Name] = a.status()
	}
	return snap
}

func (s *Supervisor) saveState() {
	if err := SaveSnapshot(s.cfg.Supervisor.StateDir, s.snapshot()); err != nil {
		s.logger.Printf("saving state: %v", err)
	}
}
