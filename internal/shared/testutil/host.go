package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
)

// FakeContainer is an in-memory host.Container.
type FakeContainer struct {
	id       string
	Options  host.ContainerOptions
	MediaURI string

	mu        sync.Mutex
	html      string
	reveals   []host.Column
	disposed  int
	listeners []func()
}

// NewFakeContainer creates a container. Resource URIs resolve under mediaURI.
func NewFakeContainer(id string, opts host.ContainerOptions) *FakeContainer {
	return &FakeContainer{id: id, Options: opts, MediaURI: "https://resources.test/" + id}
}

func (c *FakeContainer) ID() string { return c.id }

func (c *FakeContainer) Reveal(column host.Column) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reveals = append(c.reveals, column)
}

func (c *FakeContainer) SetHTML(html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.html = html
}

func (c *FakeContainer) HTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.html
}

// AsResourceURI maps any path to the fake scheme.
func (c *FakeContainer) AsResourceURI(localPath string) string {
	return c.MediaURI + "/" + strings.TrimLeft(localPath, "/")
}

func (c *FakeContainer) OnDidDispose(fn func()) host.Disposable {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.listeners)
	c.listeners = append(c.listeners, fn)
	return host.DisposeFunc(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listeners[idx] = nil
	})
}

// Dispose fires listeners on the first call only.
func (c *FakeContainer) Dispose() {
	c.mu.Lock()
	c.disposed++
	if c.disposed > 1 {
		c.mu.Unlock()
		return
	}
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		if fn != nil {
			fn()
		}
	}
}

// Disposed reports whether Dispose was called.
func (c *FakeContainer) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed > 0
}

// Reveals returns the columns passed to Reveal.
func (c *FakeContainer) Reveals() []host.Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]host.Column(nil), c.reveals...)
}

// FakeWindow is an in-memory host.Window.
type FakeWindow struct {
	mu         sync.Mutex
	containers []*FakeContainer
	active     host.Column
	hasActive  bool
	createErr  error
}

// NewFakeWindow creates a window with no focused editor.
func NewFakeWindow() *FakeWindow {
	return &FakeWindow{}
}

// SetActiveColumn sets the focused editor column.
func (w *FakeWindow) SetActiveColumn(column host.Column) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active, w.hasActive = column, true
}

// FailCreate makes CreateContainer return err.
func (w *FakeWindow) FailCreate(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.createErr = err
}

func (w *FakeWindow) CreateContainer(opts host.ContainerOptions) (host.Container, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.createErr != nil {
		return nil, w.createErr
	}
	c := NewFakeContainer(fmt.Sprintf("container-%d", len(w.containers)+1), opts)
	w.containers = append(w.containers, c)
	return c, nil
}

func (w *FakeWindow) ActiveColumn() (host.Column, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, w.hasActive
}

// Containers returns every container created so far.
func (w *FakeWindow) Containers() []*FakeContainer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*FakeContainer(nil), w.containers...)
}

// StaticPort is a fixed port source.
type StaticPort int

func (p StaticPort) Port() int { return int(p) }
