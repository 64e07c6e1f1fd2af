package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AgentStatus is the externally visible snapshot of one agent.
type AgentStatus struct {
	Name         string       `json:"name"`
	State        State        `json:"state"`
	PID          int          `json:"pid,omitempty"`
	Restarts     RestartState `json:"restarts"`
	LastFailure  string       `json:"last_failure,omitempty"`
	HaltedReason string       `json:"halted_reason,omitempty"`
}

// Snapshot is persisted to state.json after every poll cycle so the
// status command can report on a running (or crashed) supervisor.
type Snapshot struct {
	Running   bool                   `json:"running"`
	PID       int                    `json:"pid"`
	StartedAt time.Time              `json:"started_at"`
	LastPoll  time.Time              `json:"last_poll,omitempty"`
	PollCount int                    `json:"poll_count"`
	Agents    map[string]AgentStatus `json:"agents"`
}

func statePath(stateDir string) string {
	return filepath.Join(stateDir, "state.json")
}

// SaveSnapshot writes the snapshot to the state directory.
func SaveSnapshot(stateDir string, s *Snapshot) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.WriteFile(statePath(stateDir), data, 0644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// LoadSnapshot reads the most recent snapshot. Returns nil if the
// supervisor has never run here.
func LoadSnapshot(stateDir string) (*Snapshot, error) {
	data, err := os.ReadFile(statePath(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}
	return &s, nil
}
