// Package desktop hosts panels in the user's browser.
//
// Each container is served as a page on the control server. The page keeps
// a websocket open to the host so the host can focus, reload or close it,
// and so that closing the tab disposes the container. A websocket for an
// unknown container, e.g. a tab left open across a restart, is handed to
// the reviver. Tabs of containers this process disposed are closed instead.
package desktop

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webview-iframe/internal/shared/id"
)

const (
	writeTimeout = 5 * time.Second
	// disposedRetention is how long a disposed container's tab is told to
	// close rather than being revived when it reconnects.
	disposedRetention = 10 * time.Minute
)

//go:embed assets/keepalive.js
var keepAliveScript string

// Options configure a Host.
type Options struct {
	// BaseURL is the control server origin, e.g. http://127.0.0.1:7654.
	BaseURL string
	// MediaDir is served under /media.
	MediaDir        string
	DisconnectGrace time.Duration
	// OpenBrowser opens a tab when a container without one is revealed.
	OpenBrowser bool
	Opener      func(url string) error
}

// Reviver adopts a container restored from an orphaned tab.
type Reviver func(container host.Container) error

// Host implements host.Window on top of browser tabs.
type Host struct {
	opts     Options
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	containers map[string]*Container
	disposed   map[string]time.Time
	reviver    Reviver
}

// New creates a host.
func New(opts Options, logger *logging.Logger) *Host {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	h := &Host{
		opts:       opts,
		logger:     logger.Named("desktop"),
		containers: make(map[string]*Container),
		disposed:   make(map[string]time.Time),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}
	return h
}

// SetReviver installs the callback for orphaned tabs.
func (h *Host) SetReviver(fn Reviver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reviver = fn
}

// CreateContainer creates a container and opens its tab.
func (h *Host) CreateContainer(opts host.ContainerOptions) (host.Container, error) {
	c := h.add(id.NewPanelID().String(), opts)
	h.logger.Info("Container created",
		zap.String("container_id", c.id),
		zap.String("view_type", opts.ViewType),
		zap.String("url", c.URL()),
	)
	c.open()
	return c, nil
}

// ActiveColumn reports no column: browser tabs have no editor layout.
func (h *Host) ActiveColumn() (host.Column, bool) {
	return host.ColumnDefault, false
}

// Container returns a live container by id.
func (h *Host) Container(id string) (*Container, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.containers[id]
	return c, ok
}

// RegisterRoutes mounts the panel pages, their websockets and the media
// directory.
func (h *Host) RegisterRoutes(router gin.IRoutes) {
	router.GET("/panels/:id", h.handlePage)
	router.GET("/panels/:id/ws", h.handleSocket)
	router.Static("/media", h.opts.MediaDir)
}

func (h *Host) add(containerID string, opts host.ContainerOptions) *Container {
	c := newContainer(containerID, opts, h)
	h.mu.Lock()
	h.containers[containerID] = c
	h.mu.Unlock()
	return c
}

// remove forgets a disposed container and remembers its id so a tab that
// reconnects later is closed instead of revived.
func (h *Host) remove(containerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.containers, containerID)

	now := time.Now()
	for disposedID, at := range h.disposed {
		if now.Sub(at) > disposedRetention {
			delete(h.disposed, disposedID)
		}
	}
	h.disposed[containerID] = now
}

func (h *Host) recentlyDisposed(containerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	at, ok := h.disposed[containerID]
	return ok && time.Since(at) <= disposedRetention
}

func (h *Host) handlePage(c *gin.Context) {
	container, ok := h.Container(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "panel closed")
		return
	}

	page, err := injectKeepAlive(container.HTML(), "/panels/"+container.id+"/ws")
	if err != nil {
		h.logger.Error("Failed to prepare panel page", zap.String("container_id", container.id), zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to render panel")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *Host) handleSocket(c *gin.Context) {
	containerID := c.Param("id")
	if _, _, ok := id.Split(containerID); !ok {
		c.String(http.StatusBadRequest, "invalid panel id")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("container_id", containerID), zap.Error(err))
		return
	}
	defer conn.Close()

	container, known := h.Container(containerID)
	if !known && h.recentlyDisposed(containerID) {
		h.logger.Debug("Closing tab of disposed panel", zap.String("container_id", containerID))
		_ = conn.WriteJSON(message{Type: msgClose})
		return
	}
	if !known {
		container, err = h.revive(containerID)
		if err != nil {
			h.logger.Warn("Failed to revive panel", zap.String("container_id", containerID), zap.Error(err))
			_ = conn.WriteJSON(message{Type: msgClose})
			return
		}
	}

	if !container.attach(conn) {
		_ = conn.WriteJSON(message{Type: msgClose})
		return
	}
	h.logger.Debug("Panel tab connected", zap.String("container_id", containerID))
	if !known {
		// The tab still shows the page of the previous process.
		container.send(conn, msgReload)
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	container.detach(conn)
	h.logger.Debug("Panel tab disconnected", zap.String("container_id", containerID))
}

// revive recreates a container for an orphaned tab and hands it to the
// reviver, which is expected to render it.
func (h *Host) revive(containerID string) (*Container, error) {
	h.mu.Lock()
	reviver := h.reviver
	h.mu.Unlock()

	if reviver == nil {
		return nil, fmt.Errorf("no reviver for panel %s", containerID)
	}

	container := h.add(containerID, host.ContainerOptions{})
	if err := reviver(container); err != nil {
		container.Dispose()
		return nil, err
	}
	h.logger.Info("Revived orphaned panel", zap.String("container_id", containerID))
	return container, nil
}

// checkOrigin accepts same-origin sockets only.
func (h *Host) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.EqualFold(strings.TrimRight(origin, "/"), "http://"+r.Host) ||
		strings.EqualFold(strings.TrimRight(origin, "/"), h.opts.BaseURL)
}

// injectKeepAlive appends the websocket client to the page body.
func injectKeepAlive(html, wsPath string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse panel HTML: %w", err)
	}
	script := fmt.Sprintf(`<script data-ws-path="%s">%s</script>`, wsPath, keepAliveScript)
	doc.Find("body").AppendHtml(script)
	return doc.Html()
}
