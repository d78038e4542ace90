// Package cli implements the capture-output-mcp command line.
//
// Without a subcommand the binary runs the MCP server on stdin/stdout, which
// is how MCP clients launch it. The save, load and cleanup commands run the
// same output pipeline from a shell.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ironsheep/capture-output-mcp/internal/codec"
	"github.com/ironsheep/capture-output-mcp/internal/config"
	"github.com/ironsheep/capture-output-mcp/internal/logging"
	"github.com/ironsheep/capture-output-mcp/internal/output"
	"github.com/ironsheep/capture-output-mcp/internal/quantizer"
	"github.com/ironsheep/capture-output-mcp/internal/tmpfiles"
)

// BuildInfo is set by ldflags in main.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// skipInit marks commands that run without loading the configuration.
const skipInit = "skip-init"

// app holds the global flags and the lazily loaded configuration.
type app struct {
	build      BuildInfo
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand(build BuildInfo) *cobra.Command {
	a := &app{build: build}

	root := &cobra.Command{
		Use:   "capture-output-mcp",
		Short: "Save annotated screenshots with effects, as an MCP server or from the shell",
		Long: `capture-output-mcp renders captures (annotations, effects, color reduction)
and writes them as PNG, JPEG, GIF, BMP, TIFF or .greenshot container files.

Run without a command it serves the MCP protocol on stdin/stdout. Configure
it in your MCP client (e.g., Claude Desktop).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := cmd.Annotations[skipInit]; ok {
				return nil
			}
			return a.init(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to config file (default: "+config.DefaultPath()+" if present)")
	pf.StringVar(&a.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "Override log output format (auto, json, text)")

	root.AddCommand(
		newServeCommand(a),
		newSaveCommand(a),
		newLoadCommand(a),
		newCleanupCommand(a),
		newVersionCommand(a),
	)
	return root
}

// init loads the configuration and builds the logger. Logs go to stderr.
func (a *app) init(stderr io.Writer) error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := cfg.LoggingOptions()
	opts.Output = stderr
	logger, err := logging.New(opts)
	if err != nil {
		return err
	}

	logger.Debug("configuration loaded", "config", a.configPath, "directory", cfg.Output.Directory, "temp_dir", cfg.TempDir())
	a.cfg, a.logger = cfg, logger
	return nil
}

// newSaver builds the output pipeline from the configuration. opts supplies
// the interactive collaborators, which differ per command.
func (a *app) newSaver(opts output.Options) *output.Saver {
	q := quantizer.New(a.cfg.QuantizerMethod(), a.logger)
	opts.Codec = codec.NewAdapter(codec.AdapterOptions{
		Optimizer: a.cfg.Optimizer(a.logger),
		Quantizer: q,
		Logger:    a.logger,
	})
	opts.Quantizer = q
	opts.TmpFiles = tmpfiles.New(a.cfg.Output.TmpFileTTL, a.logger)
	opts.Logger = a.logger
	opts.AutoReduceColors = a.cfg.Output.ReduceColors
	opts.FilenamePattern = a.cfg.Output.FilenamePattern
	opts.TempDir = a.cfg.TempDir()
	opts.CopyPath = a.cfg.Output.CopyPathToClipboard
	opts.PromptQuality = a.cfg.Output.PromptQuality
	return output.NewSaver(opts)
}

func (a *app) versionString() string {
	v := a.build.Version
	if v == "" {
		v = "dev"
	}
	return fmt.Sprintf("capture-output-mcp %s", v)
}
