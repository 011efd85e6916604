package desktop

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
)

var (
	infoLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Render("info")
	errorLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")).Render("error")
)

// ConsoleNotifier prints user-facing messages to the terminal.
type ConsoleNotifier struct {
	out    io.Writer
	logger *logging.Logger
	mu     sync.Mutex
}

// NewConsoleNotifier creates a notifier writing to out, or stderr when nil.
func NewConsoleNotifier(out io.Writer, logger *logging.Logger) *ConsoleNotifier {
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ConsoleNotifier{out: out, logger: logger.Named("notify")}
}

func (n *ConsoleNotifier) Info(message string) {
	n.logger.Debug(message)
	n.print(infoLabel, message)
}

func (n *ConsoleNotifier) Error(message string) {
	n.logger.Debug(message)
	n.print(errorLabel, message)
}

func (n *ConsoleNotifier) print(label, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "%s %s\n", label, message)
}
