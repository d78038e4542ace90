package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ironsheep/capture-output-mcp/internal/capture"
	"github.com/ironsheep/capture-output-mcp/internal/codec"
	"github.com/ironsheep/capture-output-mcp/internal/effects"
	"github.com/ironsheep/capture-output-mcp/internal/output"
)

type saveFlags struct {
	output         string
	title          string
	format         string
	quality        int
	effects        []string
	annotations    string
	reduceColors   bool
	noReduceColors bool
	colors         int
	backgroundOnly bool
	overwrite      bool
	tmp            bool
}

func newSaveCommand(a *app) *cobra.Command {
	var f saveFlags
	cmd := &cobra.Command{
		Use:   "save <source>",
		Short: "Render a capture and write it to a file",
		Long: `Render a capture and write it to a file.

The source is any PNG, JPEG, GIF, BMP or TIFF image, or a .greenshot
container whose annotations are rendered. Effects run in the order given:

  capture-output-mcp save shot.png --effect border:width=4,color=#ff0000 \
      --effect torn_edge:bottom=1,top=0 --format jpg -o report.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.save(cmd, args[0], f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "Destination file (default: configured directory and file name pattern)")
	fl.StringVar(&f.title, "title", "", "Capture title for generated file names (default: source file name)")
	fl.StringVarP(&f.format, "format", "f", "", "Output format: png, jpg, gif, bmp, tiff, greenshot (default: from --output or config)")
	fl.IntVarP(&f.quality, "quality", "q", -1, "JPEG quality 0-100 (default: config)")
	fl.StringArrayVarP(&f.effects, "effect", "e", nil, "Effect as name[:key=value,...]; repeatable")
	fl.StringVar(&f.annotations, "annotations", "", "JSON file with an array of annotation elements")
	fl.BoolVar(&f.reduceColors, "reduce-colors", false, "Always quantize to a palette")
	fl.BoolVar(&f.noReduceColors, "no-reduce-colors", false, "Never quantize, not even automatically")
	fl.IntVar(&f.colors, "colors", 0, "Palette size 2-256 (default: config)")
	fl.BoolVar(&f.backgroundOnly, "background-only", false, "Save the captured bitmap without annotations")
	fl.BoolVar(&f.overwrite, "overwrite", false, "Replace an existing file (default: config)")
	fl.BoolVar(&f.tmp, "tmp", false, "Write a named file to the temp directory instead")
	cmd.MarkFlagsMutuallyExclusive("output", "tmp")
	cmd.MarkFlagsMutuallyExclusive("reduce-colors", "no-reduce-colors")
	return cmd
}

func (a *app) save(cmd *cobra.Command, source string, f saveFlags) error {
	settings, err := a.cfg.SaveSettings()
	if err != nil {
		return err
	}
	if err := f.apply(&settings); err != nil {
		return err
	}

	var opts output.Options
	if p := newQualityPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()); p != nil {
		opts.QualityPrompter = p
	}
	if c := newTerminalClipboard(cmd.ErrOrStderr()); c != nil {
		opts.Clipboard = c
	}
	saver := a.newSaver(opts)

	c, err := saver.Open(source, f.title, nil)
	if err != nil {
		return err
	}
	if f.annotations != "" {
		elems, err := readAnnotations(f.annotations)
		if err != nil {
			return err
		}
		if err := c.Annotations().Add(elems...); err != nil {
			return err
		}
	}

	var path string
	if f.tmp {
		path, err = saver.SaveNamedTmpFile(cmd.Context(), c, settings)
	} else {
		target := f.output
		if target == "" {
			name := output.FormatFilename(a.cfg.Output.FilenamePattern, c.CaptureDetails(), time.Now())
			target = filepath.Join(a.cfg.Output.Directory, name+settings.Format.Extension())
		}
		overwrite := a.cfg.Output.AllowOverwrite
		if cmd.Flags().Changed("overwrite") {
			overwrite = f.overwrite
		}
		path, err = saver.SaveToFile(cmd.Context(), c, target, settings, overwrite)
	}
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", path, settings.Format, humanize.Bytes(uint64(info.Size())))
	return nil
}

// apply overrides settings with the flags that were given. The format comes
// from --format, else from the --output extension.
func (f saveFlags) apply(s *output.Settings) error {
	switch {
	case f.format != "":
		format, err := codec.ParseFormat(f.format)
		if err != nil {
			return err
		}
		s.Format = format
	case f.output != "" && filepath.Ext(f.output) != "":
		if format, err := codec.ParseFormat(filepath.Ext(f.output)); err == nil {
			s.Format = format
		}
	}
	if f.quality >= 0 {
		s.JPEGQuality = f.quality
	}
	if f.colors != 0 {
		s.ReduceColorsTo = f.colors
	}
	s.ReduceColors = f.reduceColors
	s.DisableReduceColors = f.noReduceColors
	s.SaveBackgroundOnly = f.backgroundOnly

	specs := make([]effects.Spec, 0, len(f.effects))
	for _, e := range f.effects {
		spec, err := parseEffect(e)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}
	list, err := effects.FromSpecs(specs)
	if err != nil {
		return err
	}
	if len(list) > 0 {
		s.Effects = list
	}
	return s.Validate()
}

// parseEffect reads name[:key=value,...]. The color key keeps its string
// value; true and false become 1 and 0.
func parseEffect(s string) (effects.Spec, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(s), ":")
	if name == "" {
		return effects.Spec{}, fmt.Errorf("effect %q: missing name", s)
	}
	spec := effects.Spec{Name: name}
	if rest == "" {
		return spec, nil
	}

	spec.Params = make(map[string]float64)
	for _, kv := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(kv, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" {
			return effects.Spec{}, fmt.Errorf("effect %q: parameter %q is not key=value", s, kv)
		}
		switch {
		case key == "color":
			spec.Color = value
		case value == "true":
			spec.Params[key] = 1
		case value == "false":
			spec.Params[key] = 0
		default:
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return effects.Spec{}, fmt.Errorf("effect %q: parameter %s: %w", s, key, err)
			}
			spec.Params[key] = v
		}
	}
	return spec, nil
}

func readAnnotations(path string) ([]capture.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	var elems []capture.Element
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("failed to parse annotations %s: %w", path, err)
	}
	return elems, nil
}
