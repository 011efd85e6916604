package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
)

// StaticPicker always answers with the same directory, for unattended use.
type StaticPicker struct {
	Dir string
}

// ShowOpenDialog returns the configured directory, creating it if needed.
func (p StaticPicker) ShowOpenDialog(ctx context.Context, opts host.OpenDialogOptions) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create extract directory: %w", err)
	}
	return []string{p.Dir}, nil
}

// TerminalPicker asks for a directory in the terminal the host runs in.
// Prompts are serialised; a second import waits for the first to finish.
type TerminalPicker struct {
	In  io.Reader
	Out io.Writer

	mu sync.Mutex
}

// NewTerminalPicker creates a picker on stdin and stderr.
func NewTerminalPicker() *TerminalPicker {
	return &TerminalPicker{In: os.Stdin, Out: os.Stderr}
}

// ShowOpenDialog runs the picker. Cancelling returns no paths and no error.
func (p *TerminalPicker) ShowOpenDialog(ctx context.Context, opts host.OpenDialogOptions) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	program := tea.NewProgram(newPickerModel(opts),
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	)
	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("folder picker failed: %w", err)
	}

	m, ok := final.(pickerModel)
	if !ok || m.selected == "" {
		return nil, nil
	}
	return []string{m.selected}, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type pickerModel struct {
	picker   filepicker.Model
	title    string
	label    string
	selected string
	quitting bool
}

func newPickerModel(opts host.OpenDialogOptions) pickerModel {
	fp := filepicker.New()
	fp.DirAllowed = opts.CanSelectFolders
	fp.FileAllowed = opts.CanSelectFiles
	if opts.DefaultPath != "" {
		fp.CurrentDirectory = opts.DefaultPath
	}

	label := opts.OpenLabel
	if label == "" {
		label = "Select"
	}
	return pickerModel{picker: fp, title: opts.Title, label: label}
}

func (m pickerModel) Init() tea.Cmd {
	return m.picker.Init()
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		case ".":
			if m.picker.DirAllowed {
				m.selected = m.picker.CurrentDirectory
				m.quitting = true
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.selected = path
		m.quitting = true
		return m, tea.Quit
	}
	return m, cmd
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}
	help := fmt.Sprintf("enter: %s highlighted  .: %s current directory  q: cancel", m.label, m.label)
	return titleStyle.Render(m.title) + "\n" +
		helpStyle.Render(m.picker.CurrentDirectory) + "\n\n" +
		m.picker.View() + "\n" +
		helpStyle.Render(help) + "\n"
}
