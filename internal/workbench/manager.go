package workbench

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Manager keeps one workbench per login session.
type Manager struct {
	mu          sync.RWMutex
	benches     map[string]*Workbench
	idleTimeout time.Duration
	logger      *slog.Logger
}

// NewManager creates a manager that forgets workbenches idle longer than
// idleTimeout. Zero disables idle eviction.
func NewManager(idleTimeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		benches:     make(map[string]*Workbench),
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// Get returns the workbench of sessionID, creating it for owner if needed.
func (m *Manager) Get(sessionID, owner string) *Workbench {
	m.mu.RLock()
	wb, ok := m.benches[sessionID]
	m.mu.RUnlock()
	if ok && !m.idle(wb) {
		return wb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if wb, ok := m.benches[sessionID]; ok && !m.idle(wb) {
		return wb
	}
	wb = New(owner, m.logger)
	m.benches[sessionID] = wb
	return wb
}

// Remove forgets the workbench of sessionID.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	delete(m.benches, sessionID)
	m.mu.Unlock()
}

// Cleanup removes idle workbenches and returns how many it removed.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, wb := range m.benches {
		if m.idle(wb) {
			delete(m.benches, id)
			n++
		}
	}
	return n
}

// Len returns the number of live workbenches.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.benches)
}

func (m *Manager) idle(wb *Workbench) bool {
	return m.idleTimeout > 0 && time.Since(wb.IdleSince()) > m.idleTimeout
}
