package moderation

import (
	"context"
	"sync"
)

// Manager keeps one Monitor per live stream.
type Manager struct {
	ctx      context.Context
	analyzer Analyzer
	config   Config

	mu          sync.Mutex
	monitors    map[string]*Monitor
	onTerminate TerminateFunc
}

// NewManager creates a manager whose monitors live until ctx is cancelled
// or Shutdown is called.
func NewManager(ctx context.Context, analyzer Analyzer, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		ctx:      ctx,
		analyzer: analyzer,
		config:   cfg,
		monitors: make(map[string]*Monitor),
	}
}

// OnTerminate sets the callback for streams taken down by moderation.
// Set it before the first SetLive.
func (m *Manager) OnTerminate(fn TerminateFunc) {
	m.mu.Lock()
	m.onTerminate = fn
	m.mu.Unlock()
}

// SetLive starts monitoring a stream going live and stops it when the
// stream goes offline. A terminated stream is never monitored again.
func (m *Manager) SetLive(streamID string, live bool) {
	m.mu.Lock()
	existing := m.monitors[streamID]

	if !live {
		if existing != nil && existing.State() != StateTerminated {
			delete(m.monitors, streamID)
		}
		m.mu.Unlock()
		if existing != nil {
			existing.Stop()
		}
		return
	}

	if existing != nil {
		m.mu.Unlock()
		return
	}

	mon := NewMonitor(streamID, m.analyzer, m.config, m.onTerminate)
	if mon.Start(m.ctx, true) {
		m.monitors[streamID] = mon
	}
	m.mu.Unlock()
}

// IsMonitoring reports whether a stream is being polled.
func (m *Manager) IsMonitoring(streamID string) bool {
	m.mu.Lock()
	mon := m.monitors[streamID]
	m.mu.Unlock()
	return mon != nil && mon.State() == StateMonitoring
}

// Terminated reports whether moderation took the stream down, and why.
func (m *Manager) Terminated(streamID string) (Violation, bool) {
	m.mu.Lock()
	mon := m.monitors[streamID]
	m.mu.Unlock()
	if mon == nil || mon.State() != StateTerminated {
		return ViolationNone, false
	}
	return mon.Violation(), true
}

// Shutdown stops every monitor.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	monitors := make([]*Monitor, 0, len(m.monitors))
	for _, mon := range m.monitors {
		monitors = append(monitors, mon)
	}
	m.monitors = make(map[string]*Monitor)
	m.mu.Unlock()

	for _, mon := range monitors {
		mon.Stop()
	}
}
