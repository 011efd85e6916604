package desktop

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
)

// Messages sent to the page over its websocket.
const (
	msgReveal = "reveal"
	msgReload = "reload"
	msgClose  = "close"
)

type message struct {
	Type string `json:"type"`
}

// Container is a panel rendered in a browser tab. The tab holds a websocket
// back to the host; losing it for longer than the grace period counts as the
// user closing the panel.
type Container struct {
	id   string
	opts host.ContainerOptions
	host *Host

	mu        sync.Mutex
	html      string
	conn      *websocket.Conn
	grace     *time.Timer
	disposed  bool
	listeners map[int]func()
	nextID    int

	writeMu sync.Mutex
}

func newContainer(id string, opts host.ContainerOptions, h *Host) *Container {
	return &Container{
		id:        id,
		opts:      opts,
		host:      h,
		listeners: make(map[int]func()),
	}
}

func (c *Container) ID() string { return c.id }

// URL is the address of the container's page.
func (c *Container) URL() string {
	return c.host.opts.BaseURL + "/panels/" + c.id
}

// Reveal focuses the tab, or opens one when none is connected.
func (c *Container) Reveal(column host.Column) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.send(conn, msgReveal)
		return
	}
	c.open()
}

// SetHTML replaces the page content and reloads a connected tab.
func (c *Container) SetHTML(html string) {
	c.mu.Lock()
	c.html = html
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.send(conn, msgReload)
	}
}

func (c *Container) HTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.html
}

// AsResourceURI maps a file under the media directory to its served URL.
func (c *Container) AsResourceURI(localPath string) string {
	root, err := filepath.Abs(c.host.opts.MediaDir)
	if err != nil {
		return ""
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return c.host.opts.BaseURL + "/media/" + filepath.ToSlash(rel)
}

func (c *Container) OnDidDispose(fn func()) host.Disposable {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return host.DisposeFunc(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	})
}

// Dispose closes the tab and notifies listeners. Only the first call has any
// effect.
func (c *Container) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	conn := c.conn
	c.conn = nil
	if c.grace != nil {
		c.grace.Stop()
		c.grace = nil
	}
	listeners := make([]func(), 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	c.host.remove(c.id)
	if conn != nil {
		c.send(conn, msgClose)
		conn.Close()
	}
	c.host.logger.Debug("Container disposed", zap.String("container_id", c.id))

	for _, fn := range listeners {
		fn()
	}
}

// Disposed reports whether the container has been disposed.
func (c *Container) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Connected reports whether a tab holds the websocket.
func (c *Container) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Container) open() {
	if !c.host.opts.OpenBrowser || c.host.opts.Opener == nil {
		c.host.logger.Info("Panel ready", zap.String("url", c.URL()))
		return
	}
	if err := c.host.opts.Opener(c.URL()); err != nil {
		c.host.logger.Warn("Failed to open browser", zap.String("url", c.URL()), zap.Error(err))
	}
}

// attach makes conn the container's live tab, replacing any previous one.
func (c *Container) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	previous := c.conn
	c.conn = conn
	if c.grace != nil {
		c.grace.Stop()
		c.grace = nil
	}
	c.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return true
}

// detach forgets conn and starts the grace period if it was the live tab.
func (c *Container) detach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed || c.conn != conn {
		return
	}
	c.conn = nil
	c.grace = time.AfterFunc(c.host.opts.DisconnectGrace, func() {
		c.mu.Lock()
		reconnected := c.conn != nil
		c.mu.Unlock()
		if !reconnected {
			c.host.logger.Info("Panel tab closed", zap.String("container_id", c.id))
			c.Dispose()
		}
	})
}

func (c *Container) send(conn *websocket.Conn, kind string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(message{Type: kind}); err != nil {
		c.host.logger.Debug("Failed to send panel message",
			zap.String("container_id", c.id),
			zap.String("type", kind),
			zap.Error(err),
		)
	}
}
