package moderation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is a monitor's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateMonitoring
	StateTerminated
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMonitoring:
		return "monitoring"
	case StateTerminated:
		return "terminated"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Monitor polls an Analyzer for one stream.
//
// idle -> monitoring on Start; monitoring -> terminated on a verdict at or
// above the threshold; monitoring -> stopped on Stop. Terminated and stopped
// are final.
type Monitor struct {
	streamID    string
	analyzer    Analyzer
	config      Config
	onTerminate TerminateFunc
	logger      *slog.Logger

	mu        sync.Mutex
	state     State
	violation Violation
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMonitor creates an idle monitor. onTerminate may be nil.
func NewMonitor(streamID string, analyzer Analyzer, cfg Config, onTerminate TerminateFunc) *Monitor {
	cfg.applyDefaults()
	if analyzer == nil {
		analyzer = NoopAnalyzer{}
	}
	return &Monitor{
		streamID:    streamID,
		analyzer:    analyzer,
		config:      cfg,
		onTerminate: onTerminate,
		violation:   ViolationNone,
		logger:      slog.Default().With("component", "moderation", "stream", streamID),
	}
}

// Start begins polling if the stream is live. It does nothing for an empty
// stream id, a stream that is not live, or a monitor that already left idle,
// and reports whether polling started.
func (m *Monitor) Start(ctx context.Context, live bool) bool {
	if !live || m.streamID == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return false
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.state = StateMonitoring

	m.logger.Info("monitoring started", "interval", m.config.Interval, "threshold", m.config.Threshold)
	go m.run(ctx)
	return true
}

// Stop ends polling and waits for an in-flight analysis to return.
// After Stop returns the analyzer is not called again.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.state != StateMonitoring {
		if m.state == StateIdle {
			m.state = StateStopped
		}
		m.mu.Unlock()
		return
	}
	m.state = StateStopped
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("monitoring stopped")
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Violation returns the violation that terminated the stream, or ViolationNone.
func (m *Monitor) Violation() Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violation
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.cancelled()
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			m.cancelled()
			return
		}

		verdict, err := m.analyzer.Analyze(ctx, m.streamID)
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Warn("analysis failed", "error", err)
			}
			continue
		}

		kind, score := verdict.Worst(m.config.Threshold)
		if kind == ViolationNone {
			continue
		}

		m.mu.Lock()
		if m.state != StateMonitoring {
			// Stop won the race; it is waiting on done.
			m.mu.Unlock()
			close(m.done)
			return
		}
		m.state = StateTerminated
		m.violation = kind
		m.cancel()
		m.mu.Unlock()
		close(m.done)

		m.logger.Warn("stream terminated", "violation", string(kind), "score", score)
		if m.onTerminate != nil {
			m.onTerminate(m.streamID, kind, score)
		}
		return
	}
}

// cancelled ends run after its context is done. A cancelled parent stops the
// monitor just as Stop would.
func (m *Monitor) cancelled() {
	m.mu.Lock()
	if m.state == StateMonitoring {
		m.state = StateStopped
	}
	m.mu.Unlock()
	close(m.done)
}
