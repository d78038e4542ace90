package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/capture-output-mcp/internal/output"
	"github.com/ironsheep/capture-output-mcp/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP protocol on stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
}

// serve runs the MCP server until stdin closes or a signal arrives. Temp
// files created during the session are deleted on the way out.
func (a *app) serve(cmd *cobra.Command) error {
	settings, err := a.cfg.SaveSettings()
	if err != nil {
		return err
	}

	// stdout carries the protocol, so there is nobody to prompt.
	saver := a.newSaver(output.Options{})
	srv := server.New(server.Options{
		Saver:           saver,
		Defaults:        &settings,
		OutputDir:       a.cfg.Output.Directory,
		FilenamePattern: a.cfg.Output.FilenamePattern,
		AllowOverwrite:  a.cfg.Output.AllowOverwrite,
		Logger:          a.logger,
		Version:         a.build.Version,
	})
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("MCP server starting", "version", a.build.Version, "commit", a.build.GitCommit, "directory", a.cfg.Output.Directory)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		a.logger.Info("MCP server stopping", "reason", ctx.Err())
		return nil
	}
}
