package server

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
	"github.com/GriffinCanCode/webview-iframe/internal/host/desktop"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/config"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	fakes "github.com/GriffinCanCode/webview-iframe/internal/shared/testutil"
)

func projectZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("demo/pom.xml")
	require.NoError(t, err)
	_, err = io.WriteString(w, "<project/>")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	archive := projectZip(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		_, _ = io.WriteString(w, "<html><body>initializr</body></html>")
	})
	mux.HandleFunc("/starter.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	server     *Server
	extractDir string
	commander  *fakes.MockCommander

	mu     sync.Mutex
	opened []string
}

func (h *harness) openedURLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opened...)
}

// parkedPicker holds every dialog open until release is closed, then
// reports a cancellation.
type parkedPicker struct {
	release chan struct{}
	shown   chan struct{}
}

func (p *parkedPicker) ShowOpenDialog(ctx context.Context, _ host.OpenDialogOptions) ([]string, error) {
	p.shown <- struct{}{}
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return nil, nil
}

func newHarness(t *testing.T, upstream string, extra ...Option) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Proxy.Upstream = upstream
	cfg.Panel.MediaDir = t.TempDir()
	cfg.Panel.AutoStart = false
	cfg.Logging.Development = true
	cfg.RateLimit.Enabled = false

	h := &harness{extractDir: t.TempDir(), commander: new(fakes.MockCommander)}

	opts := []Option{
		WithLogger(logging.Wrap(zaptest.NewLogger(t))),
		WithPicker(desktop.StaticPicker{Dir: h.extractDir}),
		WithCommander(h.commander),
		WithNotifier(fakes.NewMockNotifier()),
		WithBrowserOpener(func(url string) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.opened = append(h.opened, url)
			return nil
		}),
	}
	srv, err := NewServer(cfg, append(opts, extra...)...)
	require.NoError(t, err)
	h.server = srv

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
		assert.NoError(t, srv.Close())
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.ControlURL() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	return h
}

func (h *harness) proxyURL(path string) string {
	return "http://127.0.0.1:" + strconv.Itoa(h.server.ProxyPort()) + path
}

func TestStartCommandOpensPanel(t *testing.T) {
	h := newHarness(t, newUpstream(t).URL)

	resp, err := http.Post(h.server.ControlURL()+"/commands/webview-iframe.start", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// A second start reveals the same panel.
	resp, err = http.Post(h.server.ControlURL()+"/commands/webview-iframe.start", "", nil)
	require.NoError(t, err)
	resp.Body.Close()

	opened := h.openedURLs()
	require.NotEmpty(t, opened)
	for _, u := range opened {
		assert.Equal(t, opened[0], u)
	}
	assert.True(t, h.server.Controller().Active())

	page, err := http.Get(opened[0])
	require.NoError(t, err)
	defer page.Body.Close()

	doc, err := goquery.NewDocumentFromReader(page.Body)
	require.NoError(t, err)
	src, _ := doc.Find("iframe#webview-iframe").Attr("src")
	assert.Equal(t, "http://localhost:"+strconv.Itoa(h.server.ProxyPort())+"/", src)
}

func TestProxyStripsHeaders(t *testing.T) {
	h := newHarness(t, newUpstream(t).URL)

	resp, err := http.Get(h.proxyURL("/"))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "initializr")
	assert.Empty(t, resp.Header.Get("X-Frame-Options"))
	assert.Empty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestDownloadImportsProject(t *testing.T) {
	h := newHarness(t, newUpstream(t).URL)
	projectDir := filepath.Join(h.extractDir, "demo")

	opened := make(chan struct{})
	h.commander.On("OpenFolder", mock.Anything, projectDir, true).
		Run(func(mock.Arguments) { close(opened) }).
		Return(nil)

	require.NoError(t, h.server.Controller().CreateOrShow())

	resp, err := http.Get(h.proxyURL("/starter.zip?type=maven-project&baseDir=demo"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	select {
	case <-opened:
	case <-time.After(5 * time.Second):
		t.Fatal("project was never opened")
	}

	assert.FileExists(t, filepath.Join(projectDir, "pom.xml"))
	assert.False(t, h.server.Controller().Active(), "interception hides the panel")
}

func TestDownloadHidesReopenedPanelWhileImportWaits(t *testing.T) {
	picker := &parkedPicker{release: make(chan struct{}), shown: make(chan struct{}, 2)}
	h := newHarness(t, newUpstream(t).URL, WithPicker(picker))
	defer close(picker.release)

	download := func() {
		resp, err := http.Get(h.proxyURL("/starter.zip?baseDir=demo"))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
	hidden := func() bool { return !h.server.Controller().Active() }

	require.NoError(t, h.server.Controller().CreateOrShow())
	download()
	select {
	case <-picker.shown:
	case <-time.After(5 * time.Second):
		t.Fatal("first import never asked for a directory")
	}
	require.Eventually(t, hidden, time.Second, 10*time.Millisecond)

	// The user reopens the panel and downloads again while the first
	// dialog is still open.
	require.NoError(t, h.server.Controller().CreateOrShow())
	require.True(t, h.server.Controller().Active())
	download()
	assert.Eventually(t, hidden, time.Second, 10*time.Millisecond)
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t, newUpstream(t).URL)

	resp, err := http.Post(h.server.ControlURL()+"/commands/nope", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
