package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

const (
	patternsFile = "error_patterns.json"
	fixesFile    = "fix_history.json"
	lockFile     = "knowledge.lock"
)

// Store is the durable knowledge base. All mutation is read-modify-write
// under a cross-process advisory flock, written atomically (temp file,
// fsync, rename), so concurrent decision loops in separate processes
// cannot corrupt or clobber each other's updates.
type Store struct {
	dir  string
	lock *flock.Flock
}

// Open creates a Store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating knowledge directory: %w", err)
	}
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
	}, nil
}

// Dir returns the knowledge directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Get returns the pattern with the given ID, or nil if unknown.
func (s *Store) Get(patternID string) (*ErrorPattern, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking knowledge store: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	patterns, err := s.loadPatterns()
	if err != nil {
		return nil, err
	}
	p, ok := patterns[patternID]
	if !ok {
		return nil, nil
	}
	return p, nil
}

// UpsertPattern records an observation of the given normalized pattern
// text. Matching is by the stable hash of the text: an existing pattern
// gets its count bumped and the example appended (up to the cap), a new
// one is created. Returns the stored pattern.
func (s *Store) UpsertPattern(normalized string, category Category, severity Severity, example string) (*ErrorPattern, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking knowledge store: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	patterns, err := s.loadPatterns()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := PatternID(normalized)
	p, ok := patterns[id]
	if !ok {
		p = &ErrorPattern{
			ID:        id,
			Pattern:   normalized,
			Category:  category,
			Severity:  severity,
			FirstSeen: now,
		}
		patterns[id] = p
	}

	p.Count++
	p.LastSeen = now
	if severity.IsActionable() {
		// Escalate stored severity, never downgrade it.
		p.Severity = maxSeverity(p.Severity, severity)
	}
	if example != "" && len(p.Examples) < MaxExamples && !contains(p.Examples, example) {
		p.Examples = append(p.Examples, example)
	}

	if err := s.savePatterns(patterns); err != nil {
		return nil, err
	}
	return p, nil
}

// GetFix returns the fix record for an action, or nil if the action has
// never been recorded.
func (s *Store) GetFix(action string) (*FixRecord, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking knowledge store: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	fixes, err := s.loadFixes()
	if err != nil {
		return nil, err
	}
	f, ok := fixes[action]
	if !ok {
		return nil, nil
	}
	return f, nil
}

// RecordFixOutcome persists one execution outcome for an action. TimesUsed
// always increments; Successes only on success; the average duration is
// updated as a running mean. Returns the updated record.
func (s *Store) RecordFixOutcome(action string, success bool, duration time.Duration) (*FixRecord, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking knowledge store: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	fixes, err := s.loadFixes()
	if err != nil {
		return nil, err
	}

	f, ok := fixes[action]
	if !ok {
		f = &FixRecord{Action: action}
		fixes[action] = f
	}

	f.TimesUsed++
	if success {
		f.Successes++
	}
	f.LastUsed = time.Now().UTC()
	if secs := duration.Seconds(); secs > 0 {
		n := float64(f.TimesUsed)
		f.AvgDurationSeconds = (f.AvgDurationSeconds*(n-1) + secs) / n
	}

	if err := s.saveFixes(fixes); err != nil {
		return nil, err
	}
	return f, nil
}

// Patterns returns all known patterns, most frequently seen first.
func (s *Store) Patterns() ([]*ErrorPattern, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking knowledge store: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	patterns, err := s.loadPatterns()
	if err != nil {
		return nil, err
	}
	out := make([]*ErrorPattern, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Fixes returns all fix records, most used first.
func (s *Store) Fixes() ([]*FixRecord, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking knowledge store: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	fixes, err := s.loadFixes()
	if err != nil {
		return nil, err
	}
	out := make([]*FixRecord, 0, len(fixes))
	for _, f := range fixes {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimesUsed != out[j].TimesUsed {
			return out[i].TimesUsed > out[j].TimesUsed
		}
		return out[i].Action < out[j].Action
	})
	return out, nil
}

func (s *Store) loadPatterns() (map[string]*ErrorPattern, error) {
	patterns := make(map[string]*ErrorPattern)
	if err := loadJSON(filepath.Join(s.dir, patternsFile), &patterns); err != nil {
		return nil, fmt.Errorf("loading error patterns: %w", err)
	}
	return patterns, nil
}

func (s *Store) savePatterns(patterns map[string]*ErrorPattern) error {
	if err := saveJSON(filepath.Join(s.dir, patternsFile), patterns); err != nil {
		return fmt.Errorf("saving error patterns: %w", err)
	}
	return nil
}

func (s *Store) loadFixes() (map[string]*FixRecord, error) {
	fixes := make(map[string]*FixRecord)
	if err := loadJSON(filepath.Join(s.dir, fixesFile), &fixes); err != nil {
		return nil, fmt.Errorf("loading fix history: %w", err)
	}
	return fixes, nil
}

func (s *Store) saveFixes(fixes map[string]*FixRecord) error {
	if err := saveJSON(filepath.Join(s.dir, fixesFile), fixes); err != nil {
		return fmt.Errorf("saving fix history: %w", err)
	}
	return nil
}

// loadJSON reads a JSON file into v. A missing file is not an error - the
// store starts empty.
func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// saveJSON writes v atomically: temp file in the same directory, fsync,
// then rename over the target. A crash mid-update leaves the previous
// file intact.
func saveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func maxSeverity(a, b Severity) Severity {
	rank := map[Severity]int{
		SeverityLow:      0,
		SeverityMedium:   1,
		SeverityHigh:     2,
		SeverityCritical: 3,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
