package gateway

import (
	"sync"
	"time"

	"github.com/flemzord/botstrap/internal/bootstrap"
)

// Check states reported by /health.
const (
	StatePending = "pending"
	StateOK      = "ok"
	StateDrift   = "drift"
	StateError   = "error"
)

// DriftState holds the latest drift-check result. Writers are the cron job,
// readers the HTTP handlers.
type DriftState struct {
	mu     sync.RWMutex
	last   *bootstrap.Verification
	err    error
	at     time.Time
	checks int
}

// Publish records a check result. It matches cron.DriftCheckJob.Publish.
func (s *DriftState) Publish(v *bootstrap.Verification, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last, s.err = v, err
	s.at = time.Now()
	if v != nil {
		s.at = v.CheckedAt
	}
	s.checks++
}

// Snapshot returns a point-in-time view of the latest check.
func (s *DriftState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{State: StatePending, Checks: s.checks}
	if s.checks == 0 {
		return snap
	}
	snap.CheckedAt = s.at
	switch {
	case s.err != nil:
		snap.State = StateError
		snap.Error = s.err.Error()
	case s.last == nil:
		snap.State = StateError
	case s.last.OK():
		snap.State = StateOK
	default:
		snap.State = StateDrift
	}
	if s.last != nil {
		snap.Missing = s.last.Missing
		snap.EntryFound = s.last.EntryFound
		snap.Installed = len(s.last.Installed)
		snap.PythonVersion = s.last.PythonVersion
	}
	return snap
}

// Snapshot is the serializable view of DriftState.
type Snapshot struct {
	State         string    `json:"state"`
	CheckedAt     time.Time `json:"checked_at,omitzero"`
	Checks        int       `json:"checks"`
	Installed     int       `json:"installed"`
	Missing       []string  `json:"missing,omitempty"`
	EntryFound    bool      `json:"entry_found"`
	PythonVersion string    `json:"python_version,omitempty"`
	Error         string    `json:"error,omitempty"`
}
