package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/capture-output-mcp/internal/capture"
	"github.com/ironsheep/capture-output-mcp/internal/container"
	"github.com/ironsheep/capture-output-mcp/internal/output"
)

// loadReport is printed by the load command.
type loadReport struct {
	Path     string            `yaml:"path"`
	Width    int               `yaml:"width"`
	Height   int               `yaml:"height"`
	Footer   container.Footer  `yaml:"footer"`
	Elements []capture.Element `yaml:"elements"`
}

func newLoadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <container>",
		Short: "Print the footer and annotations of a .greenshot container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd, args[0])
		},
	}
}

func (a *app) load(cmd *cobra.Command, path string) error {
	footer, err := container.ReadFileFooter(path)
	if err != nil {
		return err
	}

	surface := capture.NewSurface(nil, capture.Details{})
	if err := a.newSaver(output.Options{}).Load(path, surface); err != nil {
		return err
	}

	b := surface.RawBitmap().Bounds()
	report := loadReport{
		Path:     path,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Footer:   footer,
		Elements: surface.Annotations().Items,
	}
	if report.Elements == nil {
		report.Elements = []capture.Element{}
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}
