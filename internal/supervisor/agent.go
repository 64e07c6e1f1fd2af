package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// State is an agent's position in the supervision lifecycle.
type State string

const (
	StateStopped    State = "stopped"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateFailing    State = "failing"
	StateRestarting State = "restarting"
	// StateHalted is terminal until manual reset or window rollover.
	StateHalted State = "halted"
)

// Agent is one supervised process. All lifecycle operations hold mu, so
// the detect, decide, execute, verify, restart sequence for an agent is
// never interleaved with a concurrent restart of the same agent.
type Agent struct {
	Name    string
	Project string
	Command string
	Args    []string
	LogPath string

	mu           sync.Mutex
	state        State
	cmd          *exec.Cmd
	restarts     RestartState
	lastFailure  string
	haltedReason string

	// ambiguous counts consecutive ambiguous verifications per pattern
	// ID, so repeats can be escalated instead of silently retried.
	ambiguous map[string]int
}

func newAgent(name, project, command string, args []string, logPath string) *Agent {
	return &Agent{
		Name:      name,
		Project:   project,
		Command:   command,
		Args:      args,
		LogPath:   logPath,
		state:     StateStopped,
		ambiguous: make(map[string]int),
	}
}

// start spawns the agent process in its own process group, appending
// stdout and stderr to the agent's log file. Caller holds mu.
func (a *Agent) start() error {
	a.state = StateStarting

	if err := os.MkdirAll(filepath.Dir(a.LogPath), 0755); err != nil {
		a.state = StateStopped
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := os.OpenFile(a.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		a.state = StateStopped
		return fmt.Errorf("opening agent log: %w", err)
	}

	cmd := exec.Command(a.Command, a.Args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	sessionAttr(cmd)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		a.state = StateStopped
		return fmt.Errorf("spawning %s: %w", a.Name, err)
	}
	logFile.Close()

	a.cmd = cmd
	a.state = StateRunning

	// Reap the process so it never zombies; state transitions are
	// handled by the poll loop, not here.
	go cmd.Wait() //nolint:errcheck

	return nil
}

// stop terminates the agent process: SIGTERM, then SIGKILL after the
// grace period. Caller holds mu.
func (a *Agent) stop(grace time.Duration) {
	if a.cmd == nil || a.cmd.Process == nil {
		a.state = StateStopped
		return
	}
	pid := a.cmd.Process.Pid
	if !alive(pid) {
		a.cmd = nil
		a.state = StateStopped
		return
	}

	_ = terminate(pid)
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !alive(pid) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if alive(pid) {
		_ = kill(pid)
	}

	a.cmd = nil
	a.state = StateStopped
}

// pid returns the agent's process ID, or 0 when not running. Caller
// holds mu.
func (a *Agent) pid() int {
	if a.cmd == nil || a.cmd.Process == nil {
		return 0
	}
	return a.cmd.Process.Pid
}

// processAlive reports whether the spawned process still exists. Caller
// holds mu.
func (a *Agent) processAlive() bool {
	return alive(a.pid())
}

// status snapshots the agent for the state file.
func (a *Agent) status() AgentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AgentStatus{
		Name:         a.Name,
		State:        a.state,
		PID:          a.pid(),
		Restarts:     a.restarts,
		LastFailure:  a.lastFailure,
		HaltedReason: a.haltedReason,
	}
}

// defaultLogPath builds the log location for an agent with no explicit
// log setting.
func defaultLogPath(stateDir, name string) string {
	safe := strings.ReplaceAll(name, string(os.PathSeparator), "_")
	return filepath.Join(stateDir, "logs", safe+".log")
}
