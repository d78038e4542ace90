package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/capture-output-mcp/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	root := cli.NewRootCommand(cli.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "capture-output-mcp: %v\n", err)
		os.Exit(1)
	}
}
