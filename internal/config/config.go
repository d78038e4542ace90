// Package config loads the capture-output-mcp YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/capture-output-mcp/internal/codec"
	"github.com/ironsheep/capture-output-mcp/internal/logging"
	"github.com/ironsheep/capture-output-mcp/internal/output"
	"github.com/ironsheep/capture-output-mcp/internal/quantizer"
	"github.com/ironsheep/capture-output-mcp/internal/tmpfiles"
)

// FileName is the config file looked up in the user config directory.
const FileName = "config.yaml"

// Config is the top-level configuration.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// OutputConfig controls how captures are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	// TempDir holds temp files; empty means a capture-output-mcp directory
	// under the system temp directory.
	TempDir         string `yaml:"temp_dir"`
	FilenamePattern string `yaml:"filename_pattern"`
	Format          string `yaml:"format"`
	JPEGQuality     int    `yaml:"jpeg_quality"`
	PromptQuality   bool   `yaml:"prompt_quality"`
	// ReduceColors enables automatic reduction of images with few colors.
	ReduceColors        bool            `yaml:"reduce_colors"`
	ReduceColorsTo      int             `yaml:"reduce_colors_to"`
	Quantizer           string          `yaml:"quantizer"` // kmeans | dominantcolor
	CopyPathToClipboard bool            `yaml:"copy_path_to_clipboard"`
	AllowOverwrite      bool            `yaml:"allow_overwrite"`
	TmpFileTTL          time.Duration   `yaml:"tmpfile_ttl"`
	Optimizer           OptimizerConfig `yaml:"optimizer"`
}

// OptimizerConfig configures the external PNG optimizer. An empty command
// disables it.
type OptimizerConfig struct {
	Command   string        `yaml:"command"`
	Arguments string        `yaml:"arguments"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto | json | text
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Directory:       defaultDirectory(),
			FilenamePattern: output.DefaultFilenamePattern,
			Format:          codec.FormatPNG.String(),
			JPEGQuality:     output.DefaultJPEGQuality,
			ReduceColorsTo:  quantizer.MaxPaletteSize,
			Quantizer:       quantizer.MethodKMeans.String(),
			TmpFileTTL:      tmpfiles.DefaultTTL,
			Optimizer: OptimizerConfig{
				Arguments: codec.DefaultOptimizerArguments,
				Timeout:   codec.DefaultOptimizerTimeout,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
	}
}

// DefaultPath returns the config file in the user config directory, or ""
// when that directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "capture-output-mcp", FileName)
}

// Load reads path over the defaults and validates the result. An empty path
// means DefaultPath, which may be missing.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that values are in range.
func (c *Config) Validate() error {
	if _, err := codec.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.JPEGQuality < 0 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be in 0..100, got %d", c.Output.JPEGQuality)
	}
	if n := c.Output.ReduceColorsTo; n < quantizer.MinPaletteSize || n > quantizer.MaxPaletteSize {
		return fmt.Errorf("output.reduce_colors_to must be in %d..%d, got %d",
			quantizer.MinPaletteSize, quantizer.MaxPaletteSize, n)
	}
	if _, err := quantizer.ParseMethod(c.Output.Quantizer); err != nil {
		return fmt.Errorf("output.quantizer: %w", err)
	}
	if c.Output.TmpFileTTL <= 0 {
		return fmt.Errorf("output.tmpfile_ttl must be > 0")
	}
	if c.Output.Optimizer.Timeout < 0 {
		return fmt.Errorf("output.optimizer.timeout must not be negative")
	}
	if strings.TrimSpace(c.Output.Optimizer.Command) != "" &&
		c.Output.Optimizer.Arguments != "" &&
		!strings.Contains(c.Output.Optimizer.Arguments, codec.PathPlaceholder) {
		return fmt.Errorf("output.optimizer.arguments must contain %s", codec.PathPlaceholder)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "auto", "json", "text", "console":
	default:
		return fmt.Errorf("logging.format: unsupported %q", c.Logging.Format)
	}
	return nil
}

// SaveSettings returns the default per-save settings.
func (c *Config) SaveSettings() (output.Settings, error) {
	format, err := codec.ParseFormat(c.Output.Format)
	if err != nil {
		return output.Settings{}, err
	}
	s := output.DefaultSettings()
	s.Format = format
	s.JPEGQuality = c.Output.JPEGQuality
	s.ReduceColorsTo = c.Output.ReduceColorsTo
	return s, s.Validate()
}

// Optimizer returns the configured PNG optimizer, or nil when disabled.
func (c *Config) Optimizer(logger *slog.Logger) *codec.Optimizer {
	o := c.Output.Optimizer
	if strings.TrimSpace(o.Command) == "" {
		return nil
	}
	return &codec.Optimizer{
		Command:   o.Command,
		Arguments: o.Arguments,
		Timeout:   o.Timeout,
		Logger:    logger,
	}
}

// QuantizerMethod returns the configured palette method.
func (c *Config) QuantizerMethod() quantizer.Method {
	m, err := quantizer.ParseMethod(c.Output.Quantizer)
	if err != nil {
		return quantizer.MethodKMeans
	}
	return m
}

// TempDir returns the directory for temp files.
func (c *Config) TempDir() string {
	if c.Output.TempDir != "" {
		return c.Output.TempDir
	}
	return filepath.Join(os.TempDir(), "capture-output-mcp")
}

// LoggingOptions returns the options for logging.New.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format}
}

func defaultDirectory() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Pictures")
	}
	return os.TempDir()
}
