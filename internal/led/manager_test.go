package led

import (
	"sync"
	"testing"
	"time"

	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/session"
)

type mockController struct {
	mu    sync.Mutex
	calls []Pattern
}

func (m *mockController) Set(_ string, pattern Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, pattern)
	return nil
}

func (m *mockController) Available() []string {
	return []string{StatusLED}
}

func (m *mockController) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func waitForPattern(t *testing.T, mgr *Manager, want Pattern) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if mgr.Pattern() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Pattern() = %q, want %q", mgr.Pattern(), want)
}

func stateEvent(id string, s session.State) events.SessionStateEvent {
	return events.SessionStateEvent{SessionID: id, State: string(s)}
}

func TestManager_FollowsSessionStates(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, nil)
	mgr.Start()
	defer mgr.Stop()

	if got := mgr.Pattern(); got != PatternOff {
		t.Fatalf("initial Pattern() = %q, want off", got)
	}

	bus.Publish(stateEvent("cam0", session.StateBuffering))
	waitForPattern(t, mgr, PatternHeartbeat)

	bus.Publish(stateEvent("cam0", session.StatePlaying))
	waitForPattern(t, mgr, PatternSolid)

	bus.Publish(stateEvent("cam1", session.StateFailed))
	waitForPattern(t, mgr, PatternBlink)

	bus.Publish(stateEvent("cam1", session.StateClosed))
	waitForPattern(t, mgr, PatternSolid)

	bus.Publish(stateEvent("cam0", session.StateClosed))
	waitForPattern(t, mgr, PatternOff)
}

func TestManager_SkipsUnchangedPattern(t *testing.T) {
	ctrl := &mockController{}
	mgr := NewManager(ctrl, events.New(), nil)

	mgr.handleEvent(stateEvent("cam0", session.StatePlaying))
	mgr.handleEvent(stateEvent("cam1", session.StatePlaying))
	mgr.handleEvent(stateEvent("cam0", session.StatePlaying))

	if n := ctrl.count(); n != 1 {
		t.Errorf("Set called %d times, want 1", n)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		states map[string]string
		want   Pattern
	}{
		{"empty", map[string]string{}, PatternOff},
		{"all playing", map[string]string{"a": "playing", "b": "playing"}, PatternSolid},
		{"buffering", map[string]string{"a": "playing", "b": "buffering"}, PatternHeartbeat},
		{"failed wins", map[string]string{"a": "buffering", "b": "failed"}, PatternBlink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := aggregate(tt.states); got != tt.want {
				t.Errorf("aggregate() = %q, want %q", got, tt.want)
			}
		})
	}
}
