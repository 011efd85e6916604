package desktop

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
)

// EditorCommander opens folders with an editor's command-line launcher.
type EditorCommander struct {
	Command       string
	NewWindowFlag string
	logger        *logging.Logger
}

// NewEditorCommander creates a commander for command, e.g. "code".
func NewEditorCommander(command, newWindowFlag string, logger *logging.Logger) *EditorCommander {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EditorCommander{
		Command:       command,
		NewWindowFlag: newWindowFlag,
		logger:        logger.Named("editor"),
	}
}

// OpenFolder launches the editor on path without waiting for it to exit.
func (e *EditorCommander) OpenFolder(ctx context.Context, path string, forceNewWindow bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args := e.args(path, forceNewWindow)
	if err := start(e.Command, args...); err != nil {
		return fmt.Errorf("failed to launch %s: %w", e.Command, err)
	}
	e.logger.Info("Opened folder", zap.String("editor", e.Command), zap.Strings("args", args))
	return nil
}

func (e *EditorCommander) args(path string, forceNewWindow bool) []string {
	if forceNewWindow && e.NewWindowFlag != "" {
		return []string{e.NewWindowFlag, path}
	}
	return []string{path}
}

// BrowserOpener returns a function that opens URLs with command, or with the
// platform's default handler when command is empty.
func BrowserOpener(command string) func(url string) error {
	return func(url string) error {
		name, args := browserCommand(command, runtime.GOOS)
		return start(name, append(args, url)...)
	}
}

func browserCommand(command, goos string) (string, []string) {
	if command != "" {
		return command, nil
	}
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

// start runs name detached from the caller and reaps it in the background.
func start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
