/*
Package monitoring provides metrics collection for the bridge.

# Overview

Metrics are registered on a private Prometheus registry owned by each
Metrics value, so several instances can coexist in one process (tests create
one per case).

# Metrics

  - Proxy traffic: requests by method and status, latency, stripped headers
  - Download interception: intercepted requests, import outcomes, import latency
  - Panel lifecycle: active panels, panels created, reveals
  - Process uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	control.GET("/metrics", gin.WrapH(metrics.Handler()))

All recording methods are safe to call on a nil *Metrics.
*/
package monitoring
