// Package output turns a capture into an encoded file or stream.
//
// Saver is the orchestrator: it selects the source bitmap, applies effects,
// reduces colors, encodes through the codec Adapter and, for the container
// format, appends the annotation block. It also manages named and random temp
// files through an injected tmpfiles.Cache.
package output

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/capture-output-mcp/internal/capture"
	"github.com/ironsheep/capture-output-mcp/internal/codec"
	"github.com/ironsheep/capture-output-mcp/internal/container"
	"github.com/ironsheep/capture-output-mcp/internal/effects"
	"github.com/ironsheep/capture-output-mcp/internal/imaging"
	"github.com/ironsheep/capture-output-mcp/internal/quantizer"
	"github.com/ironsheep/capture-output-mcp/internal/tmpfiles"
)

// SaveAsPrompter asks the user for a destination when a temp file cannot be
// written. It returns the path that was saved.
type SaveAsPrompter interface {
	SaveAs(ctx context.Context, c capture.Capture, settings Settings) (string, error)
}

// QualityPrompter asks for the JPEG quality of a file save. Returning an
// error cancels the save.
type QualityPrompter interface {
	PromptQuality(ctx context.Context, current int) (int, error)
}

// PathCopier receives the path of every file written by SaveToFile when
// Options.CopyPath is set.
type PathCopier interface {
	CopyPath(path string) error
}

// detailer is implemented by captures that carry naming details.
type detailer interface {
	CaptureDetails() capture.Details
}

// Options configure a Saver. Zero values get working defaults.
type Options struct {
	Codec     *codec.Adapter
	Quantizer quantizer.Quantizer
	TmpFiles  *tmpfiles.Cache
	Logger    *slog.Logger

	// AutoReduceColors reduces images with fewer than 256 colors even when
	// the settings do not ask for it.
	AutoReduceColors bool
	// FilenamePattern names temp files; see FormatFilename.
	FilenamePattern string
	// TempDir is where temp files are written; empty means os.TempDir().
	TempDir string

	Prompter  SaveAsPrompter
	Clipboard PathCopier
	CopyPath  bool

	// QualityPrompter, when set together with PromptQuality, is asked for
	// the quality of every JPEG written by SaveToFile.
	QualityPrompter QualityPrompter
	PromptQuality   bool

	// Now is the clock for filename patterns.
	Now func() time.Time
}

// Saver is the output orchestrator. It is safe for concurrent use when its
// collaborators are; each save runs on the caller's goroutine.
type Saver struct {
	codec      *codec.Adapter
	quantizer  quantizer.Quantizer
	tmp        *tmpfiles.Cache
	logger     *slog.Logger
	autoReduce bool
	pattern    string
	tempDir    string
	prompter   SaveAsPrompter
	clipboard  PathCopier
	copyPath   bool
	quality    QualityPrompter
	now        func() time.Time
}

// NewSaver builds a Saver from opts.
func NewSaver(opts Options) *Saver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Saver{
		codec:      opts.Codec,
		quantizer:  opts.Quantizer,
		tmp:        opts.TmpFiles,
		logger:     logger,
		autoReduce: opts.AutoReduceColors,
		pattern:    opts.FilenamePattern,
		tempDir:    opts.TempDir,
		prompter:   opts.Prompter,
		clipboard:  opts.Clipboard,
		copyPath:   opts.CopyPath,
		now:        opts.Now,
	}
	if opts.PromptQuality {
		s.quality = opts.QualityPrompter
	}
	if s.codec == nil {
		s.codec = codec.NewAdapter(codec.AdapterOptions{Logger: logger})
	}
	if s.quantizer == nil {
		s.quantizer = quantizer.New(quantizer.MethodKMeans, logger)
	}
	if s.tmp == nil {
		s.tmp = tmpfiles.New(tmpfiles.DefaultTTL, logger)
	}
	if s.pattern == "" {
		s.pattern = DefaultFilenamePattern
	}
	if s.tempDir == "" {
		s.tempDir = os.TempDir()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TmpFiles returns the temp-file cache used by the Saver.
func (s *Saver) TmpFiles() *tmpfiles.Cache {
	return s.tmp
}

// Save writes c to w.
//
// The container format and SaveBackgroundOnly use the raw bitmap, which is
// only borrowed. Every other save renders the annotations into a new bitmap
// owned by this call.
func (s *Saver) Save(ctx context.Context, c capture.Capture, w io.Writer, settings Settings) error {
	if c == nil {
		return fmt.Errorf("%w: no capture", ErrInvalidArgument)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	bmp, err := s.selectSource(c, settings)
	if err != nil {
		return err
	}
	defer bmp.Release()

	return s.save(ctx, &bmp, c, w, settings)
}

// SaveImage writes img to w. c is only needed for the container format,
// where it supplies the annotation block. img is borrowed and never modified.
func (s *Saver) SaveImage(ctx context.Context, img image.Image, c capture.Capture, w io.Writer, settings Settings) error {
	if img == nil {
		return fmt.Errorf("%w: no image", ErrInvalidArgument)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	bmp := imaging.Borrow(img)
	defer bmp.Release()

	return s.save(ctx, &bmp, c, w, settings)
}

func (s *Saver) selectSource(c capture.Capture, settings Settings) (imaging.Bitmap, error) {
	if settings.Format == codec.FormatGreenshot || settings.SaveBackgroundOnly {
		raw := c.RawBitmap()
		if raw == nil {
			return imaging.Bitmap{}, fmt.Errorf("%w: capture has no bitmap", ErrInvalidArgument)
		}
		return imaging.Borrow(raw), nil
	}

	img, err := c.ExportBitmap()
	if err != nil {
		return imaging.Bitmap{}, fmt.Errorf("failed to render capture: %w", err)
	}
	return imaging.Own(img), nil
}

func (s *Saver) save(ctx context.Context, bmp *imaging.Bitmap, c capture.Capture, w io.Writer, settings Settings) error {
	if settings.Format == codec.FormatGreenshot {
		if c == nil {
			return fmt.Errorf("%w: container format needs a capture", ErrInvalidArgument)
		}
		if err := s.codec.Encode(ctx, w, bmp.Image(), settings.Format, settings.codecOptions()); err != nil {
			return err
		}
		return container.Write(w, c.Elements())
	}

	if len(settings.Effects) > 0 {
		out, err := effects.Apply(bmp.Image(), settings.Effects)
		if err != nil {
			return err
		}
		bmp.Replace(out)
	}

	s.reduceColors(bmp, settings)

	return s.codec.Encode(ctx, w, bmp.Image(), settings.Format, settings.codecOptions())
}

// reduceColors quantizes the current bitmap when the settings or the
// auto-reduce option ask for it. Failures keep the unreduced bitmap.
func (s *Saver) reduceColors(bmp *imaging.Bitmap, settings Settings) {
	if settings.DisableReduceColors {
		return
	}
	explicit := settings.ReduceColors
	if !explicit && !s.autoReduce {
		return
	}

	img := bmp.Image()
	if !explicit && imaging.HasTransparency(img) {
		s.logger.Debug("skipping color reduction for image with transparency")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("color reduction panicked, keeping original colors", "panic", r)
		}
	}()

	size := settings.paletteSize()
	count := s.quantizer.CountColors(img)
	if !explicit && count >= quantizer.MaxPaletteSize {
		s.logger.Debug("skipping automatic color reduction", "colors", count)
		return
	}

	reduced, err := s.quantizer.Quantize(img, size)
	if err != nil || reduced == nil {
		s.logger.Warn("color reduction failed, keeping original colors", "error", err)
		return
	}
	s.logger.Debug("reduced colors", "from", count, "to", len(reduced.Palette))
	bmp.Replace(reduced)
}

// SaveToFile writes c to path and returns the cleaned, absolute path.
//
// Without allowOverwrite an existing file yields ErrFileAlreadyExists and is
// left untouched. With it, the data goes to a temp file in the same
// directory that is renamed over the target, so a failed save never leaves a
// truncated file behind.
func (s *Saver) SaveToFile(ctx context.Context, c capture.Capture, path string, settings Settings, allowOverwrite bool) (string, error) {
	if settings.Format == codec.FormatJPG && s.quality != nil {
		q, err := s.quality.PromptQuality(ctx, settings.JPEGQuality)
		if err != nil {
			return "", fmt.Errorf("save cancelled: %w", err)
		}
		settings.JPEGQuality = q
	}

	path, err := s.writeFile(ctx, c, path, settings, allowOverwrite)
	if err != nil {
		return "", err
	}

	if s.copyPath && s.clipboard != nil {
		if err := s.clipboard.CopyPath(path); err != nil {
			s.logger.Warn("failed to copy path to clipboard", "path", path, "error", err)
		}
	}
	return path, nil
}

func (s *Saver) writeFile(ctx context.Context, c capture.Capture, path string, settings Settings, allowOverwrite bool) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	path, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if !allowOverwrite {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrFileAlreadyExists, path)
		}
		if err != nil {
			return "", fmt.Errorf("failed to create file: %w", err)
		}
		if err := s.writeTo(ctx, f, c, settings); err != nil {
			os.Remove(path)
			return "", err
		}
		s.logger.Info("saved capture", "path", path, "format", settings.Format.String())
		return path, nil
	}

	tmp, err := os.CreateTemp(dir, ".capture-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := s.writeTo(ctx, tmp, c, settings); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		s.logger.Debug("failed to set file mode", "path", tmpPath, "error", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to replace file: %w", err)
	}
	s.logger.Info("saved capture", "path", path, "format", settings.Format.String())
	return path, nil
}

// writeTo saves c into f through a buffer and closes f.
func (s *Saver) writeTo(ctx context.Context, f *os.File, c capture.Capture, settings Settings) error {
	bw := bufio.NewWriter(f)
	err := s.Save(ctx, c, bw, settings)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close file: %w", cerr)
	}
	return err
}

// SaveNamedTmpFile saves c into the temp directory under a name built from
// the filename pattern and tracks it in the temp-file cache. When the file
// cannot be written, the Prompter (if any) is asked for another location.
func (s *Saver) SaveNamedTmpFile(ctx context.Context, c capture.Capture, settings Settings) (string, error) {
	var details capture.Details
	if d, ok := c.(detailer); ok {
		details = d.CaptureDetails()
	}
	name := FormatFilename(s.pattern, details, s.now()) + settings.Format.Extension()

	path, err := s.writeFile(ctx, c, filepath.Join(s.tempDir, name), settings, true)
	if err != nil {
		s.logger.Warn("failed to save named temp file", "name", name, "error", err)
		if s.prompter == nil {
			return "", fmt.Errorf("failed to save temp file %s: %w", name, err)
		}
		return s.prompter.SaveAs(ctx, c, settings)
	}

	s.tmp.Add(path)
	return path, nil
}

// SaveToTmpFile saves c under a random name in the temp directory and
// tracks it. It returns "" when the save fails.
func (s *Saver) SaveToTmpFile(ctx context.Context, c capture.Capture, settings Settings) string {
	name := uuid.NewString() + settings.Format.Extension()
	path, err := s.writeFile(ctx, c, filepath.Join(s.tempDir, name), settings, true)
	if err != nil {
		s.logger.Warn("failed to save temp file", "name", name, "error", err)
		return ""
	}
	s.tmp.Add(path)
	return path
}

// DeleteNamedTmpFile deletes a temp file and stops tracking it. A file that
// no longer exists counts as deleted; false means removal failed.
func (s *Saver) DeleteNamedTmpFile(path string) bool {
	if err := s.tmp.Remove(path); err != nil {
		s.logger.Warn("failed to delete temp file", "path", path, "error", err)
		return false
	}
	s.logger.Debug("deleted temp file", "path", path)
	return true
}

// Load reads a container file into dst.
func (s *Saver) Load(path string, dst capture.Target) error {
	if err := container.Read(path, dst); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	s.logger.Info("loaded capture", "path", path)
	return nil
}
