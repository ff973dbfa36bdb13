// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute.
// Output goes to stdout (text or JSON) and, on hosts running journald, to
// the systemd journal as well.
//
// # Usage
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"pacer": "debug",
//			"api":   "warn",
//		},
//	})
//
// Get a logger for your module and add session context:
//
//	logger := logging.GetLogger("session").With("session_id", id)
//	logger.Warn("Capture queue starved", "queue_depth", depth)
//
// # Viewing Logs
//
//	journalctl -t playout -f
//	journalctl -t playout MODULE=session SESSION_ID=cam0
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	pacer = "debug"    # any other key is a module override
package logging
