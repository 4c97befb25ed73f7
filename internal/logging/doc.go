// Package logging provides leveled, colorized status output for the CLI.
//
// All output goes to stderr as single lines with a bracketed level tag:
//
//	[INFO]  informational (cyan)
//	[WARN]  non-fatal advisory (yellow)
//	[FATAL] terminal condition (red)
//
// The handlers are built on log/slog. When the process runs under systemd,
// records are additionally sent to the journal, so
// `journalctl -t gphotocam` shows the same lines with structured fields.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{Level: "INFO"})
//
// then grab per-module loggers:
//
//	logger := logging.GetLogger("loopback")
//	logger.Info("device ready", "path", "/dev/video7")
package logging
