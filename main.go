package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/playout/cmd"
	"github.com/smazurov/playout/internal/config"
	"github.com/smazurov/playout/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"playout.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8091" toml:"server.port" env:"SERVER_PORT"`

	// Metrics settings
	MetricsSSEEnabled bool `help:"Publish pacer metrics on the event stream" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`

	// Features settings
	FeaturesLEDControl bool `help:"Drive the board status LED from session states" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`

	// NATS settings
	NATSEnabled   bool   `help:"Mirror session events to NATS" default:"false" toml:"nats.enabled" env:"NATS_ENABLED"`
	NATSServerURL string `help:"NATS server URL; empty starts an embedded server" default:"" toml:"nats.url" env:"NATS_URL"`
	NATSPort      int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingDrops   string `help:"Drop detector logging level" default:"info" toml:"logging.drops" env:"LOGGING_DROPS"`
	LoggingCapture string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingConfig  string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingLED     string `help:"LED control logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingNATS    string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"session": opts.LoggingSession,
				"drops":   opts.LoggingDrops,
				"capture": opts.LoggingCapture,
				"config":  opts.LoggingConfig,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
				"led":     opts.LoggingLED,
				"nats":    opts.LoggingNATS,
			},
		})

		logger := logging.GetLogger("main")

		app := cmd.NewApp(cmd.ServeSettings{
			ConfigPath:   opts.Config,
			Addr:         opts.Port,
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			MetricsSSE:   opts.MetricsSSEEnabled,
			LEDControl:   opts.FeaturesLEDControl,
			NATSEnabled:  opts.NATSEnabled,
			NATSURL:      opts.NATSServerURL,
			NATSPort:     opts.NATSPort,
		})

		hooks.OnStart(func() {
			if setupErr := app.Setup(context.Background()); setupErr != nil {
				logger.Error("Failed to start sessions", "error", setupErr)
				os.Exit(1)
			}
			if startErr := app.Serve(); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := app.Stop(); stopErr != nil {
				logger.Warn("Shutdown finished with errors", "error", stopErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateSimulateCmd())
	cli.Root().AddCommand(cmd.CreateFormatsCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	// Run the CLI
	cli.Run()
}
