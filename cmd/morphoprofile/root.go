package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"morphoprofile/internal/monitoring"
	"morphoprofile/pkg/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "morphoprofile",
	Short: "Consensus profiles and segmentation for outline shapes",
	Long: `morphoprofile measures closed outlines as angle, radius and diameter
profiles, builds a consensus profile across a dataset, segments the
consensus at its turning points and carries the segmentation back to every
outline.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "morphoprofile.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Int("cores", 0, "number of CPU cores to use (default from config)")
	rootCmd.PersistentFlags().String("output-dir", "", "output directory (default from config)")

	_ = viper.BindPFlag("cores", rootCmd.PersistentFlags().Lookup("cores"))
	_ = viper.BindPFlag("output-dir", rootCmd.PersistentFlags().Lookup("output-dir"))
}

// initConfig lets MORPHOPROFILE_* environment variables stand in for flags.
func initConfig() {
	viper.SetEnvPrefix("morphoprofile")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the config file and applies flag and environment
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if viper.IsSet("cores") && viper.GetInt("cores") > 0 {
		cfg.Processing.NumCores = viper.GetInt("cores")
	}
	if dir := viper.GetString("output-dir"); dir != "" {
		cfg.Output.Directory = dir
	}
	if cfg.Output.Verbose {
		verbose = true
		setupLogging()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("loaded configuration", "file", cfgFile, "cores", cfg.Processing.NumCores)
	return cfg, nil
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Using TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	monitoring.SetLogger(logger)
}
