// Package commands maps user-invokable command names to handlers.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
)

// Start creates or reveals the panel.
const Start = "webview-iframe.start"

var (
	// ErrUnknownCommand is returned by Execute for unregistered names.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrDuplicateCommand is returned by Register for a name already taken.
	ErrDuplicateCommand = errors.New("command already registered")
)

// Handler runs a command.
type Handler func(ctx context.Context) error

// Registry holds registered commands.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger.Named("commands"),
	}
}

// Register adds a command. Disposing the result unregisters it.
func (r *Registry) Register(name string, fn Handler) (host.Disposable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.handlers[name] = fn

	return host.DisposeFunc(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.handlers, name)
	}), nil
}

// Execute runs the named command.
func (r *Registry) Execute(ctx context.Context, name string) error {
	r.mu.RLock()
	fn, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	r.logger.Debug("Executing command", zap.String("command", name))
	if err := fn(ctx); err != nil {
		r.logger.Warn("Command failed", zap.String("command", name), zap.Error(err))
		return err
	}
	return nil
}

// Names lists registered commands in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
