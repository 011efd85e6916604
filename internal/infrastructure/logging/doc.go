// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr by default so that stdout stays free for the terminal
// folder picker.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Proxy listening", zap.Int("port", 53122))
//	logger.Error("Import failed", zap.Error(err))
package logging
