// Package project turns an intercepted download into an opened project.
//
// Hiding the panel happens on the request path. The rest runs off it: read
// the project name from the download URL, ask the user for a directory, fetch and unpack the
// archive there, then open the project folder in a new editor window.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/host"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webview-iframe/internal/providers/archive"
)

// PanelHider closes the embedded panel.
type PanelHider interface {
	Hide()
}

// Fetcher downloads a URL into a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Extractor unpacks an archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, src, dest string) (archive.Result, error)
}

// Options configure an Importer.
type Options struct {
	// Upstream is the origin archives are fetched from.
	Upstream string
	// Marker is the query key holding the project name.
	Marker string
	// DefaultDir seeds the folder picker. Empty means the OS temp directory.
	DefaultDir string
	// TempDir holds archives while they are extracted. Empty means the OS
	// temp directory.
	TempDir string
	// SuppressErrors logs failures without notifying the user.
	SuppressErrors bool
}

// Outcome is how an import attempt ended.
type Outcome string

const (
	OutcomeSkipped   Outcome = monitoring.OutcomeSkipped
	OutcomeCancelled Outcome = monitoring.OutcomeCancelled
	OutcomeFailed    Outcome = monitoring.OutcomeFailed
	OutcomeCompleted Outcome = monitoring.OutcomeCompleted
)

// Importer runs the download-to-project flow.
type Importer struct {
	panel     PanelHider
	picker    host.FolderPicker
	fetcher   Fetcher
	extractor Extractor
	commander host.Commander
	notifier  host.Notifier
	opts      Options
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// NewImporter creates an importer. metrics may be nil.
func NewImporter(
	panel PanelHider,
	picker host.FolderPicker,
	fetcher Fetcher,
	extractor Extractor,
	commander host.Commander,
	notifier host.Notifier,
	opts Options,
	logger *logging.Logger,
	metrics *monitoring.Metrics,
) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.DefaultDir == "" {
		opts.DefaultDir = os.TempDir()
	}
	opts.Upstream = strings.TrimRight(opts.Upstream, "/")
	return &Importer{
		panel:     panel,
		picker:    picker,
		fetcher:   fetcher,
		extractor: extractor,
		commander: commander,
		notifier:  notifier,
		opts:      opts,
		logger:    logger.Named("importer"),
		metrics:   metrics,
	}
}

// Begin runs on the request path when a download is intercepted. It hides
// the panel at once so a queued import cannot leave it open.
func (i *Importer) Begin(requestURI string) {
	i.logger.Debug("Hiding panel for download", zap.String("request_uri", requestURI))
	i.panel.Hide()
}

// Intercept handles one intercepted download request. It never returns an
// error; failures are logged, counted and reported to the user.
func (i *Importer) Intercept(ctx context.Context, requestURI string) {
	start := time.Now()
	outcome, err := i.Import(ctx, requestURI)
	i.metrics.RecordImport(string(outcome), time.Since(start))

	log := i.logger.With(zap.String("request_uri", requestURI), zap.String("outcome", string(outcome)))
	switch {
	case err == nil && outcome == OutcomeCompleted:
		log.Info("Project imported", zap.Duration("elapsed", time.Since(start)))
	case err == nil:
		log.Debug("Import ended without a project")
	case errors.Is(err, ErrNoProjectName):
		log.Warn("Download carried no project name", zap.Error(err))
		i.notifier.Info("The download did not name a project, so nothing was extracted.")
	default:
		i.report(log, err)
	}
}

// Import runs the flow after Begin and returns how it ended. Cancelling the
// picker is not an error.
func (i *Importer) Import(ctx context.Context, requestURI string) (Outcome, error) {
	name, err := ParseName(requestURI, i.opts.Marker)
	if err != nil {
		return OutcomeSkipped, err
	}

	dirs, err := i.picker.ShowOpenDialog(ctx, host.OpenDialogOptions{
		DefaultPath:      i.opts.DefaultDir,
		CanSelectFiles:   false,
		CanSelectFolders: true,
		CanSelectMany:    false,
		OpenLabel:        "Extract",
		Title:            fmt.Sprintf("Directory to extract project %s", name),
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("folder selection failed: %w", err)
	}
	if len(dirs) == 0 || dirs[0] == "" {
		return OutcomeCancelled, nil
	}
	dir := dirs[0]

	if err := i.fetchAndExtract(ctx, i.opts.Upstream+requestURI, dir); err != nil {
		return OutcomeFailed, err
	}

	projectDir := filepath.Join(dir, name)
	if err := i.commander.OpenFolder(ctx, projectDir, true); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to open %s: %w", projectDir, err)
	}
	return OutcomeCompleted, nil
}

func (i *Importer) fetchAndExtract(ctx context.Context, url, dir string) error {
	tmp, err := os.CreateTemp(i.opts.TempDir, "webview-iframe-*.download")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := i.fetcher.Fetch(ctx, url, path); err != nil {
		return err
	}

	res, err := i.extractor.Extract(ctx, path, dir)
	if err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}
	i.logger.Debug("Archive extracted",
		zap.String("dir", dir),
		zap.String("format", string(res.Format)),
		zap.Int("files", res.Files),
	)
	return nil
}

func (i *Importer) report(log *logging.Logger, err error) {
	if i.opts.SuppressErrors {
		log.Debug("Import failed", zap.Error(err))
		return
	}
	log.Error("Import failed", zap.Error(err))
	i.notifier.Error(fmt.Sprintf("Project import failed: %v", err))
}
