package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/capture-output-mcp/internal/tmpfiles"
)

func newCleanupCommand(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete temp files left behind by earlier sessions",
		Long: `Delete temp files left behind by earlier sessions.

A running server deletes its own temp files when it exits. Files older than
the configured tmpfile_ttl are left over from sessions that were killed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff := time.Now().Add(-a.cfg.Output.TmpFileTTL)
			if all {
				cutoff = time.Now().Add(time.Minute)
			}
			dir := a.cfg.TempDir()
			removed, err := tmpfiles.RemoveStale(dir, cutoff, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d file(s) from %s\n", removed, dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every file in the temp directory, regardless of age")
	return cmd
}
