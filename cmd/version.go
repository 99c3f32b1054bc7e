package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at link time by the release build.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// NewVersionCmd returns the version information cmd
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("zkattest %s (commit %s, built %s, %s)\n",
				version, commit, buildDate, runtime.Version())
		},
	}
}
