package nats

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/playout/internal/events"
)

// Subscriber is the part of the event bus the bridge needs.
type Subscriber interface {
	Subscribe(handler any) func()
}

// PacingHandler applies a pacing request and returns the number of
// sessions updated.
type PacingHandler func(targetQueueLength int) (int, error)

// Bridge forwards session events from the event bus to NATS and serves
// pacing control requests.
type Bridge struct {
	url    string
	bus    Subscriber
	pacing PacingHandler
	logger *slog.Logger

	mu     sync.Mutex
	conn   *nats.Conn
	sub    *nats.Subscription
	unsubs []func()
}

// NewBridge creates a bridge. pacing may be nil to disable control.
func NewBridge(url string, bus Subscriber, pacing PacingHandler, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		url:    url,
		bus:    bus,
		pacing: pacing,
		logger: logger.With("component", "nats-bridge"),
	}
}

// Start connects to NATS and begins forwarding.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return errors.New("bridge already started")
	}

	conn, err := nats.Connect(b.url,
		nats.Name("playout"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}
	b.conn = conn
	b.logger.Info("NATS bridge connected", "url", b.url)

	if b.pacing != nil {
		sub, err := conn.Subscribe(SubjectControlPacing, b.handlePacing)
		if err != nil {
			b.cleanup()
			return err
		}
		b.sub = sub
		// Wait for the server to register the subscription before returning
		if err := conn.Flush(); err != nil {
			b.cleanup()
			return err
		}
	}

	b.unsubs = []func(){
		b.bus.Subscribe(func(e events.SessionStateEvent) { b.publish(SubjectSession(e.SessionID, KindState), e) }),
		b.bus.Subscribe(func(e events.PrerollChangedEvent) { b.publish(SubjectSession(e.SessionID, KindPreroll), e) }),
		b.bus.Subscribe(func(e events.FrameDroppedEvent) { b.publish(SubjectSession(e.SessionID, KindDrops), e) }),
		b.bus.Subscribe(func(e events.DropReportEvent) { b.publish(SubjectSession(e.SessionID, KindDrops), e) }),
		b.bus.Subscribe(func(e events.FormatErrorEvent) { b.publish(SubjectSession(e.SessionID, KindError), e) }),
		b.bus.Subscribe(func(e events.PacerMetricsEvent) { b.publish(SubjectSession(e.SessionID, KindMetrics), e) }),
	}
	return nil
}

func (b *Bridge) publish(subject string, e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		b.logger.Warn("Failed to marshal event", "subject", subject, "error", err)
		return
	}

	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Debug("Failed to publish event", "subject", subject, "error", err)
	}
}

func (b *Bridge) handlePacing(msg *nats.Msg) {
	var reply PacingReply
	req, err := UnmarshalPacingRequest(msg.Data)
	if err != nil {
		reply.Error = "invalid request: " + err.Error()
	} else {
		n, err := b.pacing(req.TargetQueueLength)
		reply.Sessions = n
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.TargetQueueLength = req.TargetQueueLength
		}
	}

	if reply.Error != "" {
		b.logger.Warn("Pacing request rejected", "error", reply.Error)
	} else {
		b.logger.Info("Pacing request applied", "target_queue_length", reply.TargetQueueLength, "sessions", reply.Sessions)
	}

	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to reply to pacing request", "error", err)
	}
}

// cleanup must be called with mu held.
func (b *Bridge) cleanup() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
	if b.conn != nil {
		// Flush what was already published
		_ = b.conn.Drain()
		b.conn = nil
	}
}

// Stop unsubscribes and closes the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanup()
	b.logger.Info("NATS bridge stopped")
}

// IsConnected reports whether the bridge holds a live connection.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
