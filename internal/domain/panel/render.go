package panel

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

// StylesheetName is the panel stylesheet inside the media directory.
const StylesheetName = "webview-iframe.css"

//go:embed templates/panel.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/panel.html"))

// Page holds the values templated into a panel document.
type Page struct {
	Title         string
	StylesheetURI string
	Port          int
}

// FrameURL is the local proxy address the iframe loads.
func (p Page) FrameURL() string {
	return localOrigin(p.Port)
}

// Render produces the panel document. The iframe source is the only value
// that depends on runtime state.
func Render(page Page) (string, error) {
	if page.Port <= 0 {
		return "", fmt.Errorf("proxy port not bound")
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("execute panel template: %w", err)
	}
	return buf.String(), nil
}
