package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/playout/internal/api"
	"github.com/smazurov/playout/internal/config"
	"github.com/smazurov/playout/internal/events"
	"github.com/smazurov/playout/internal/led"
	"github.com/smazurov/playout/internal/logging"
	"github.com/smazurov/playout/internal/metrics/exporters"
	natsbus "github.com/smazurov/playout/internal/nats"
	"github.com/smazurov/playout/internal/session"
	"github.com/smazurov/playout/internal/systemd"
)

// shutdownTimeout bounds how long in-flight HTTP requests get on stop.
const shutdownTimeout = 5 * time.Second

// ServeSettings configures the long-running server.
type ServeSettings struct {
	ConfigPath   string
	Addr         string
	AuthUsername string
	AuthPassword string
	// MetricsSSE publishes pacer metrics on the event stream.
	MetricsSSE bool
	// LEDControl drives the board status LED from session states.
	LEDControl bool
	// NATSEnabled mirrors events to NATS. An empty NATSURL starts an
	// embedded server on NATSPort.
	NATSEnabled bool
	NATSURL     string
	NATSPort    int
}

// App wires the session pipeline and its outer surfaces together: config
// hot reload, metrics exporters, the status LED, the NATS bridge, systemd
// notification and the API server.
type App struct {
	settings ServeSettings
	logger   *slog.Logger

	mu       sync.Mutex
	pipeline *Pipeline
	server   *api.Server
	watcher  *config.Watcher[config.PacingConfig]
	exporter *exporters.SSEExporter
	leds     *led.Manager
	notifier *systemd.Notifier
	natsSrv  *natsbus.Server
	bridge   *natsbus.Bridge
	cancel   context.CancelFunc
	stopped  bool
}

// NewApp creates an App. Nothing runs until Setup.
func NewApp(settings ServeSettings) *App {
	return &App{
		settings: settings,
		logger:   logging.GetLogger("main"),
		notifier: systemd.NewNotifier(logging.GetLogger("main")),
	}
}

// Setup loads the configuration and starts every session. A missing config
// file yields a server with no sessions.
func (a *App) Setup(ctx context.Context) error {
	file, err := config.LoadFile(a.settings.ConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn("Config file not found, running without sessions", "path", a.settings.ConfigPath)
		file = config.File{Pacing: config.DefaultPacing()}
	} else if err != nil {
		return fmt.Errorf("invalid configuration %s: %w", a.settings.ConfigPath, err)
	}

	// Create event bus for in-process event handling
	eventBus := events.New()

	pipeline, err := NewPipeline(file, eventBus)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		pipeline.Stop()
		return errors.New("app stopped")
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.pipeline = pipeline

	// Subscribe before sessions start so the first state changes are seen
	if a.settings.LEDControl {
		a.leds = led.NewManager(led.New(logging.GetLogger("led")), eventBus, logging.GetLogger("led"))
		a.leds.Start()
	}
	if err := pipeline.Start(ctx); err != nil {
		return err
	}

	if a.settings.MetricsSSE {
		a.exporter = exporters.NewSSEExporter(eventBus)
		a.exporter.Start(ctx)
	}

	if a.settings.NATSEnabled {
		if err := a.startNATS(eventBus, pipeline); err != nil {
			a.logger.Warn("NATS bridge disabled", "error", err)
		}
	}

	a.watcher = config.NewConfigWatcher(a.settings.ConfigPath, config.LoadPacing, logging.GetLogger("config"))
	a.watcher.OnReload(func(p config.PacingConfig) {
		if err := pipeline.ApplyPacing(p); err != nil {
			a.logger.Warn("Failed to apply pacing", "error", err)
		}
	})
	if err := a.watcher.Start(ctx); err != nil {
		a.logger.Warn("Config hot reload disabled", "error", err)
	}

	a.server = api.NewServer(&api.Options{
		AuthUsername:      a.settings.AuthUsername,
		AuthPassword:      a.settings.AuthPassword,
		Registry:          pipeline.Registry,
		EventBus:          eventBus,
		PrometheusHandler: exporters.HTTPHandler(),
	})

	go a.notifier.RunWatchdog(ctx, func() string { return statusLine(pipeline.Registry.Stats()) })
	a.notifier.Ready()
	return nil
}

// startNATS must be called with mu held.
func (a *App) startNATS(bus *events.Bus, pipeline *Pipeline) error {
	logger := logging.GetLogger("nats")
	url := a.settings.NATSURL
	if url == "" {
		a.natsSrv = natsbus.NewServer(natsbus.ServerOptions{Port: a.settings.NATSPort, Logger: logger})
		if err := a.natsSrv.Start(); err != nil {
			a.natsSrv = nil
			return err
		}
		url = a.natsSrv.ClientURL()
	}

	a.bridge = natsbus.NewBridge(url, bus, pipeline.SetTargetQueueLength, logger)
	if err := a.bridge.Start(); err != nil {
		a.bridge = nil
		return err
	}
	return nil
}

// statusLine summarizes session states for systemctl status.
func statusLine(stats []session.Stats) string {
	counts := make(map[session.State]int)
	for _, st := range stats {
		counts[st.State]++
	}
	return fmt.Sprintf("%d sessions: %d playing, %d buffering, %d failed",
		len(stats), counts[session.StatePlaying], counts[session.StateBuffering], counts[session.StateFailed])
}

// Serve blocks serving the API until Stop.
func (a *App) Serve() error {
	a.mu.Lock()
	server := a.server
	a.mu.Unlock()
	if server == nil {
		return errors.New("app is not set up")
	}
	a.logger.Info("Starting HTTP server", "port", a.settings.Addr)
	return server.Start(a.settings.Addr)
}

// Stop shuts the API down first, then the watcher, the exporters and the
// sessions. It is safe to call more than once.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return nil
	}
	a.stopped = true
	a.notifier.Stopping()

	var errs []error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.server.Shutdown(ctx))
		cancel()
	}
	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop())
	}
	if a.exporter != nil {
		a.exporter.Stop()
	}
	if a.bridge != nil {
		a.bridge.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.pipeline != nil {
		errs = append(errs, a.pipeline.Stop())
	}
	if a.leds != nil {
		a.leds.Stop()
	}
	if a.natsSrv != nil {
		a.natsSrv.Stop()
	}
	return errors.Join(errs...)
}
