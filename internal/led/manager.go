package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/session"
)

// StatusLED is the logical LED the manager drives.
const StatusLED = "status"

// Subscriber is the part of the event bus the manager needs.
type Subscriber interface {
	Subscribe(handler any) func()
}

// Manager sets the status LED from session state events:
//
//	no sessions       off
//	any failed        blink
//	any buffering     heartbeat
//	all playing       solid
type Manager struct {
	controller  Controller
	bus         Subscriber
	unsubscribe func()
	logger      *slog.Logger

	mu      sync.Mutex
	states  map[string]string // session ID -> state
	current Pattern
}

// NewManager creates a manager. Nothing happens until Start.
func NewManager(controller Controller, bus Subscriber, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		controller: controller,
		bus:        bus,
		logger:     logger,
		states:     make(map[string]string),
	}
}

// Start subscribes to session state changes and turns the LED off.
func (m *Manager) Start() {
	m.mu.Lock()
	m.apply(PatternOff)
	m.mu.Unlock()

	m.unsubscribe = m.bus.Subscribe(func(e events.SessionStateEvent) {
		m.handleEvent(e)
	})
	m.logger.Info("LED manager started")
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.mu.Lock()
	m.apply(PatternOff)
	m.mu.Unlock()
	m.logger.Info("LED manager stopped")
}

// Pattern returns the pattern last applied.
func (m *Manager) Pattern() Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) handleEvent(e events.SessionStateEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.State(e.State) == session.StateClosed {
		delete(m.states, e.SessionID)
	} else {
		m.states[e.SessionID] = e.State
	}
	m.logger.Debug("Session state changed", "session_id", e.SessionID, "state", e.State)
	m.apply(aggregate(m.states))
}

func aggregate(states map[string]string) Pattern {
	if len(states) == 0 {
		return PatternOff
	}
	pattern := PatternSolid
	for _, state := range states {
		switch session.State(state) {
		case session.StateFailed:
			return PatternBlink
		case session.StateBuffering:
			pattern = PatternHeartbeat
		}
	}
	return pattern
}

// apply must be called with mu held. Unchanged patterns are not rewritten.
func (m *Manager) apply(p Pattern) {
	if p == m.current {
		return
	}
	if err := m.controller.Set(StatusLED, p); err != nil {
		m.logger.Warn("Failed to set status LED", "pattern", p, "error", err)
		return
	}
	m.current = p
}
