package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"morphoprofile/pkg/config"
)

var forceInit bool

// configCmd groups configuration commands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the morphoprofile configuration file",
}

// configInitCmd writes the default configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := os.Stat(cfgFile); err == nil && !forceInit {
			return fmt.Errorf("%s already exists, use --force to overwrite", cfgFile)
		}
		if err := config.CreateDefaultConfigFile(cfgFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", cfgFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
}
