package panel

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webview-iframe/internal/shared/id"
)

// PortSource reports the local proxy port. It returns 0 until the proxy has
// bound its listener and a fixed value afterwards.
type PortSource interface {
	Port() int
}

// Options configure the panels a Controller creates.
type Options struct {
	ViewType string
	Title    string
	// MediaDir holds the panel's static assets.
	MediaDir string
	// Upstream is the origin the proxy forwards to.
	Upstream string
}

// Controller owns the single live panel.
type Controller struct {
	window  host.Window
	port    PortSource
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	current *Panel
}

// NewController creates a controller. metrics may be nil.
func NewController(window host.Window, port PortSource, opts Options, logger *logging.Logger, metrics *monitoring.Metrics) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		window:  window,
		port:    port,
		opts:    opts,
		logger:  logger.Named("panel"),
		metrics: metrics,
	}
}

// CreateOrShow reveals the live panel, or creates one when none exists.
func (c *Controller) CreateOrShow() error {
	column, hasColumn := c.window.ActiveColumn()

	c.mu.Lock()
	if existing := c.current; existing != nil {
		c.mu.Unlock()
		if !hasColumn {
			column = host.ColumnDefault
		}
		existing.container.Reveal(column)
		c.metrics.IncPanelReveals()
		c.logger.Debug("Revealed existing panel", zap.String("panel_id", existing.ID()))
		return nil
	}
	defer c.mu.Unlock()

	if !hasColumn {
		column = host.ColumnOne
	}

	container, err := c.window.CreateContainer(host.ContainerOptions{
		ViewType:                c.opts.ViewType,
		Title:                   c.opts.Title,
		Column:                  column,
		EnableScripts:           true,
		RetainContextWhenHidden: true,
		ResourceRoots: []string{
			c.opts.MediaDir,
			localOrigin(c.port.Port()),
			c.opts.Upstream,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create panel container: %w", err)
	}

	p, err := c.attach(container)
	if err != nil {
		container.Dispose()
		return err
	}
	c.current = p
	c.metrics.SetPanelActive(true)
	c.metrics.IncPanelsCreated()
	c.logger.Info("Created panel", zap.String("panel_id", p.ID()), zap.Int("proxy_port", c.port.Port()))
	return nil
}

// Hide disposes the live panel, if any.
func (c *Controller) Hide() {
	c.mu.Lock()
	p := c.current
	c.mu.Unlock()

	if p == nil {
		return
	}
	c.logger.Info("Hiding panel", zap.String("panel_id", p.ID()))
	p.Dispose()
}

// Revive adopts a container the host restored, e.g. after a restart. A panel
// that is already live is disposed first so only one ever exists.
func (c *Controller) Revive(container host.Container) error {
	c.mu.Lock()
	previous := c.current
	c.current = nil
	c.mu.Unlock()

	if previous != nil {
		c.logger.Info("Replacing live panel with restored one",
			zap.String("previous_id", previous.ID()),
			zap.String("container_id", container.ID()),
		)
		previous.Dispose()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.attach(container)
	if err != nil {
		return err
	}
	c.current = p
	c.metrics.SetPanelActive(true)
	c.metrics.IncPanelsCreated()
	c.logger.Info("Revived panel", zap.String("panel_id", p.ID()), zap.String("container_id", container.ID()))
	return nil
}

// Active reports whether a panel is live.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Current returns the live panel or nil.
func (c *Controller) Current() *Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// attach wraps container in a Panel and renders its content.
// Caller holds c.mu.
func (c *Controller) attach(container host.Container) (*Panel, error) {
	p := &Panel{
		id:         id.NewPanelID(),
		container:  container,
		controller: c,
	}

	html, err := Render(Page{
		Title:         c.opts.Title,
		StylesheetURI: container.AsResourceURI(filepath.Join(c.opts.MediaDir, StylesheetName)),
		Port:          c.port.Port(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render panel: %w", err)
	}
	container.SetHTML(html)

	p.Register(container.OnDidDispose(p.Dispose))
	return p, nil
}

// release clears the singleton if it still points at p.
func (c *Controller) release(p *Panel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == p {
		c.current = nil
		c.metrics.SetPanelActive(false)
	}
}

func localOrigin(port int) string {
	return fmt.Sprintf("http://localhost:%d/", port)
}

// Panel is one live container plus the cleanup actions tied to it.
type Panel struct {
	id         id.PanelID
	container  host.Container
	controller *Controller

	mu          sync.Mutex
	disposables []host.Disposable
}

// ID returns the panel identifier.
func (p *Panel) ID() string {
	return p.id.String()
}

// Container returns the host container backing the panel.
func (p *Panel) Container() host.Container {
	return p.container
}

// Register adds a cleanup action that runs when the panel is disposed.
func (p *Panel) Register(d host.Disposable) {
	if d == nil {
		return
	}
	p.mu.Lock()
	p.disposables = append(p.disposables, d)
	p.mu.Unlock()
}

// Dispose clears the singleton, destroys the container and runs cleanup
// actions newest first. Calling it again is harmless.
func (p *Panel) Dispose() {
	p.controller.release(p)

	p.container.Dispose()

	for {
		d := p.pop()
		if d == nil {
			return
		}
		d.Dispose()
	}
}

func (p *Panel) pop() host.Disposable {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.disposables)
	if n == 0 {
		return nil
	}
	d := p.disposables[n-1]
	p.disposables = p.disposables[:n-1]
	return d
}
