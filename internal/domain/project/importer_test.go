package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webview-iframe/internal/providers/archive"
	fakes "github.com/GriffinCanCode/webview-iframe/internal/shared/testutil"
)

const downloadURI = "/starter.zip?type=maven-project&baseDir=MyProject&groupId=com.example"

type importerDeps struct {
	panel     *fakes.MockPanelHider
	picker    *fakes.MockFolderPicker
	fetcher   *fakes.MockFetcher
	extractor *fakes.MockExtractor
	commander *fakes.MockCommander
	notifier  *fakes.MockNotifier
	metrics   *monitoring.Metrics
	tempDir   string
}

func newTestImporter(t *testing.T, opts Options) (*Importer, *importerDeps) {
	t.Helper()
	d := &importerDeps{
		panel:     new(fakes.MockPanelHider),
		picker:    new(fakes.MockFolderPicker),
		fetcher:   new(fakes.MockFetcher),
		extractor: new(fakes.MockExtractor),
		commander: new(fakes.MockCommander),
		notifier:  new(fakes.MockNotifier),
		metrics:   monitoring.NewMetrics(),
		tempDir:   t.TempDir(),
	}

	if opts.Upstream == "" {
		opts.Upstream = "https://start.spring.io/"
	}
	if opts.Marker == "" {
		opts.Marker = "baseDir"
	}
	opts.TempDir = d.tempDir

	i := NewImporter(d.panel, d.picker, d.fetcher, d.extractor, d.commander, d.notifier, opts,
		logging.Wrap(zaptest.NewLogger(t)), d.metrics)

	t.Cleanup(func() {
		d.panel.AssertExpectations(t)
		d.picker.AssertExpectations(t)
		d.fetcher.AssertExpectations(t)
		d.extractor.AssertExpectations(t)
		d.commander.AssertExpectations(t)
		d.notifier.AssertExpectations(t)
	})
	return i, d
}

func (d *importerDeps) outcome(o Outcome) float64 {
	return testutil.ToFloat64(d.metrics.Imports.WithLabelValues(string(o)))
}

func TestBeginHidesPanel(t *testing.T) {
	i, d := newTestImporter(t, Options{})
	d.panel.On("Hide").Return().Twice()

	i.Begin(downloadURI)
	i.Begin("/starter.zip?type=maven-project")
}

func TestImportLeavesPanelAlone(t *testing.T) {
	i, d := newTestImporter(t, Options{})
	d.picker.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(nil, nil)

	outcome, err := i.Import(context.Background(), downloadURI)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)
	d.panel.AssertNotCalled(t, "Hide")
}

func TestInterceptCompletes(t *testing.T) {
	i, d := newTestImporter(t, Options{DefaultDir: "/tmp/default"})
	chosen := t.TempDir()

	d.picker.On("ShowOpenDialog", mock.Anything, host.OpenDialogOptions{
		DefaultPath:      "/tmp/default",
		CanSelectFolders: true,
		OpenLabel:        "Extract",
		Title:            "Directory to extract project MyProject",
	}).Return([]string{chosen}, nil)

	var archivePath string
	d.fetcher.On("Fetch", mock.Anything, "https://start.spring.io"+downloadURI, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { archivePath = args.String(2) }).
		Return(nil)
	d.extractor.On("Extract", mock.Anything, mock.AnythingOfType("string"), chosen).
		Return(archive.Result{Format: archive.FormatZip, Files: 3}, nil)
	d.commander.On("OpenFolder", mock.Anything, filepath.Join(chosen, "MyProject"), true).Return(nil)

	i.Intercept(context.Background(), downloadURI)

	assert.Equal(t, 1.0, d.outcome(OutcomeCompleted))
	require.NotEmpty(t, archivePath)
	assert.Equal(t, d.tempDir, filepath.Dir(archivePath))
	assert.NoFileExists(t, archivePath, "temporary archive must be removed")
}

func TestInterceptDefaultsPickerToTempDir(t *testing.T) {
	i, d := newTestImporter(t, Options{})

	d.picker.On("ShowOpenDialog", mock.Anything, mock.MatchedBy(func(o host.OpenDialogOptions) bool {
		return o.DefaultPath == os.TempDir() && !o.CanSelectFiles && !o.CanSelectMany
	})).Return([]string{}, nil)

	outcome, err := i.Import(context.Background(), downloadURI)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)
}

func TestInterceptWithoutProjectNameSkipsPrompt(t *testing.T) {
	i, d := newTestImporter(t, Options{})
	d.notifier.On("Info", mock.AnythingOfType("string")).Return()

	i.Intercept(context.Background(), "/starter.zip?type=maven-project")

	d.picker.AssertNotCalled(t, "ShowOpenDialog", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, d.outcome(OutcomeSkipped))
}

func TestInterceptRejectsUnsafeName(t *testing.T) {
	i, d := newTestImporter(t, Options{})
	d.notifier.On("Error", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "invalid project name")
	})).Return()

	i.Intercept(context.Background(), "/starter.zip?baseDir=..")

	d.picker.AssertNotCalled(t, "ShowOpenDialog", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, d.outcome(OutcomeSkipped))
}

func TestInterceptCancelledIsSilent(t *testing.T) {
	i, d := newTestImporter(t, Options{})
	d.picker.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(nil, nil)

	i.Intercept(context.Background(), downloadURI)

	d.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	d.notifier.AssertNotCalled(t, "Error", mock.Anything)
	assert.Equal(t, 1.0, d.outcome(OutcomeCancelled))
}

func TestInterceptSurfacesDownloadFailure(t *testing.T) {
	i, d := newTestImporter(t, Options{})
	d.picker.On("ShowOpenDialog", mock.Anything, mock.Anything).Return([]string{t.TempDir()}, nil)
	d.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	d.notifier.On("Error", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "connection reset")
	})).Return()

	i.Intercept(context.Background(), downloadURI)

	d.commander.AssertNotCalled(t, "OpenFolder", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, d.outcome(OutcomeFailed))
}

func TestInterceptSuppressedFailure(t *testing.T) {
	i, d := newTestImporter(t, Options{SuppressErrors: true})
	d.picker.On("ShowOpenDialog", mock.Anything, mock.Anything).Return([]string{t.TempDir()}, nil)
	d.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(archive.Result{}, archive.ErrUnsupportedFormat)

	i.Intercept(context.Background(), downloadURI)

	d.notifier.AssertNotCalled(t, "Error", mock.Anything)
	assert.Equal(t, 1.0, d.outcome(OutcomeFailed))
}

func TestImportOpenFolderFailure(t *testing.T) {
	i, d := newTestImporter(t, Options{})
	dir := t.TempDir()
	d.picker.On("ShowOpenDialog", mock.Anything, mock.Anything).Return([]string{dir}, nil)
	d.fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.extractor.On("Extract", mock.Anything, mock.Anything, dir).Return(archive.Result{}, nil)
	d.commander.On("OpenFolder", mock.Anything, filepath.Join(dir, "MyProject"), true).Return(errors.New("editor not found"))

	outcome, err := i.Import(context.Background(), downloadURI)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorContains(t, err, "editor not found")
}

func TestImportPickerError(t *testing.T) {
	i, d := newTestImporter(t, Options{})
	d.picker.On("ShowOpenDialog", mock.Anything, mock.Anything).Return(nil, errors.New("no terminal"))

	outcome, err := i.Import(context.Background(), downloadURI)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorContains(t, err, "no terminal")
}
