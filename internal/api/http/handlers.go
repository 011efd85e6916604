// Package http serves the control API: health, metrics and commands.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/api/middleware"
	"github.com/GriffinCanCode/webview-iframe/internal/domain/commands"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/monitoring"
)

// PanelState reports whether a panel is live.
type PanelState interface {
	Active() bool
}

// PortSource reports the proxy port.
type PortSource interface {
	Port() int
}

// CommandExecutor runs named commands.
type CommandExecutor interface {
	Execute(ctx context.Context, name string) error
	Names() []string
}

// Handlers contains all control API handlers.
type Handlers struct {
	commands CommandExecutor
	panel    PanelState
	port     PortSource
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandlers creates the handlers. metrics may be nil.
func NewHandlers(commands CommandExecutor, panel PanelState, port PortSource, metrics *monitoring.Metrics, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		commands: commands,
		panel:    panel,
		port:     port,
		metrics:  metrics,
		logger:   logger.Named("api"),
	}
}

// Register mounts the handlers on router.
func (h *Handlers) Register(router gin.IRoutes) {
	router.GET("/health", h.Health)
	router.GET("/commands", h.ListCommands)
	router.POST("/commands/:name", h.ExecuteCommand)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

// Health reports liveness plus the panel and proxy state.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"panel_active": h.panel.Active(),
		"proxy_port":   h.port.Port(),
	})
}

// ListCommands lists the registered commands.
func (h *Handlers) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": h.commands.Names()})
}

// ExecuteCommand runs the command named in the path.
func (h *Handlers) ExecuteCommand(c *gin.Context) {
	name := c.Param("name")

	err := h.commands.Execute(c.Request.Context(), name)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, commands.ErrUnknownCommand):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Command failed",
			zap.String("command", name),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
