// Command server runs the webview iframe bridge as a standalone sidecar.
//
// It binds a reverse proxy to a free loopback port, serves the panel as a
// browser tab from the control listener and imports generated projects when
// the embedded site starts a download.
//
//	Browser tab (panel) → iframe → local proxy → upstream site
//	                                   ↓
//	                         download → extract → open in editor
//
// Configuration:
//   - Environment variables, optionally from a .env file
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Embed start.spring.io and ask where to extract projects
//	./server
//
//	# Extract into a fixed directory, debug logging
//	./server --extract-dir ~/projects --log-level debug
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
