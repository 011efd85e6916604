// Package archive unpacks downloaded project archives.
//
// The format is sniffed from content rather than the file name, since the
// upstream serves archives from query-string URLs.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
)

var (
	// ErrUnsupportedFormat is returned for content that is not a known archive.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for entries that would land outside the
	// destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Format identifies an archive container.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
)

var formatsByMIME = map[string]Format{
	"application/zip":   FormatZip,
	"application/gzip":  FormatTarGz,
	"application/zstd":  FormatTarZst,
	"application/x-tar": FormatTar,
}

// Result summarises an extraction.
type Result struct {
	Format Format
	Files  int
	Dirs   int
	Bytes  int64
}

// Extractor unpacks archives into directories.
type Extractor struct {
	logger *logging.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(logger *logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{logger: logger.Named("archive")}
}

// Detect sniffs the archive format of the file at path.
func Detect(path string) (Format, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect archive type: %w", err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if f, ok := formatsByMIME[m.String()]; ok {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
}

// Extract unpacks the archive at src into dest.
func (e *Extractor) Extract(ctx context.Context, src, dest string) (Result, error) {
	format, err := Detect(src)
	if err != nil {
		return Result{}, err
	}

	dest, err = filepath.Abs(dest)
	if err != nil {
		return Result{}, fmt.Errorf("resolve destination: %w", err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create destination: %w", err)
	}

	res := Result{Format: format}
	switch format {
	case FormatZip:
		err = extractZip(ctx, src, dest, &res)
	default:
		err = extractTar(ctx, src, dest, format, &res)
	}
	if err != nil {
		return res, err
	}

	e.logger.Debug("Extracted archive",
		zap.String("source", src),
		zap.String("destination", dest),
		zap.String("format", string(format)),
		zap.Int("files", res.Files),
		zap.Int("dirs", res.Dirs),
		zap.Int64("bytes", res.Bytes),
	)
	return res, nil
}

func extractZip(ctx context.Context, src, dest string, res *Result) error {
	reader, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		reader.Close()
		return fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, dirMode(mode)); err != nil {
				return err
			}
			res.Dirs++
		case mode&fs.ModeSymlink != 0:
			continue
		default:
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", f.Name, err)
			}
			n, err := writeFile(target, rc, fileMode(mode))
			rc.Close()
			if err != nil {
				return fmt.Errorf("extract %s: %w", f.Name, err)
			}
			res.Files++
			res.Bytes += n
		}
	}
	return nil
}

func extractTar(ctx context.Context, src, dest string, format Format, res *Result) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	var r io.Reader = file
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarZst:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, header.Name)
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}

		mode := header.FileInfo().Mode()
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(mode)); err != nil {
				return err
			}
			res.Dirs++
		case tar.TypeReg:
			n, err := writeFile(target, tr, fileMode(mode))
			if err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
			res.Files++
			res.Bytes += n
		}
	}
}

// safeJoin resolves name under dest and rejects zip-slip entries.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeFile(path string, r io.Reader, mode fs.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func fileMode(m fs.FileMode) fs.FileMode {
	if perm := m.Perm(); perm != 0 {
		return perm
	}
	return 0o644
}

func dirMode(m fs.FileMode) fs.FileMode {
	if perm := m.Perm(); perm != 0 {
		return perm | 0o700
	}
	return 0o755
}
