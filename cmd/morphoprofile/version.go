package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// versionCmd implements the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of morphoprofile",
	Run: func(cmd *cobra.Command, _ []string) {
		v := version
		if info, ok := debug.ReadBuildInfo(); ok && v == "dev" && info.Main.Version != "" {
			v = info.Main.Version
		}
		fmt.Fprintf(cmd.OutOrStdout(), "morphoprofile version %s\n", v)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
