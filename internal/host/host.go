// Package host declares the editor-side collaborators the bridge depends on.
//
// The bridge never talks to a concrete editor. It creates containers through
// a Window, asks a FolderPicker for an extraction directory, hands the result
// to a Commander and reports problems through a Notifier. The desktop
// subpackage implements all of them for running as a standalone sidecar.
package host

import "context"

// Disposable releases a resource or subscription.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

// Dispose calls f.
func (f DisposeFunc) Dispose() { f() }

// Column is a placement hint for a container.
type Column int

const (
	ColumnDefault Column = iota
	ColumnOne
	ColumnTwo
	ColumnThree
)

// ContainerOptions describe a container to create.
type ContainerOptions struct {
	ViewType                string
	Title                   string
	Column                  Column
	EnableScripts           bool
	RetainContextWhenHidden bool
	// ResourceRoots lists local paths and origins the container may load.
	ResourceRoots []string
}

// Container is a visual surface that renders HTML.
//
// Dispose must be idempotent. Disposal listeners run once, on the first
// Dispose or when the user closes the container.
type Container interface {
	ID() string
	Reveal(column Column)
	SetHTML(html string)
	HTML() string
	// AsResourceURI translates a local file path into a URI the container's
	// sandbox can load. Paths outside the resource roots yield "".
	AsResourceURI(localPath string) string
	OnDidDispose(fn func()) Disposable
	Dispose()
}

// Window creates containers.
type Window interface {
	CreateContainer(opts ContainerOptions) (Container, error)
	// ActiveColumn reports the column of the focused editor, if any.
	ActiveColumn() (Column, bool)
}

// OpenDialogOptions configure a file or folder picker.
type OpenDialogOptions struct {
	DefaultPath      string
	CanSelectFiles   bool
	CanSelectFolders bool
	CanSelectMany    bool
	OpenLabel        string
	Title            string
}

// FolderPicker asks the user for one or more paths. An empty result with a
// nil error means the user cancelled.
type FolderPicker interface {
	ShowOpenDialog(ctx context.Context, opts OpenDialogOptions) ([]string, error)
}

// Commander runs editor commands.
type Commander interface {
	OpenFolder(ctx context.Context, path string, forceNewWindow bool) error
}

// Notifier surfaces messages to the user.
type Notifier interface {
	Info(message string)
	Error(message string)
}
