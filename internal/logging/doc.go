// Package logging provides structured logging with per-module log levels.
//
// Logs are routed to stdout (text or JSON), to the systemd journal when
// journald is available, and into an in-memory ring buffer that backs the
// dashboard's log endpoint.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"session": "debug",
//			"api":     "warn",
//		},
//	})
//
// Then obtain a module logger anywhere:
//
//	logger := logging.GetLogger("session")
//	logger.Info("stream started", "name", name)
//
// When running under systemd, logs can be filtered with:
//
//	journalctl -t rcsm MODULE=session
package logging
