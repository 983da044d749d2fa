package commands

import (
	"context"
	"fmt"

	"github.com/entrhq/screencapture/pkg/config"
	"github.com/spf13/cobra"
)

// Version is the CLI version reported by the version command.
var Version = "0.1.0"

var (
	cfgFile   string
	verbosity string
)

var rootCmd = &cobra.Command{
	Use:   "screencapture",
	Short: "Full-page screenshots of web pages",
	Long: `screencapture opens a page in Chromium, scrolls through it one viewport at a time,
stitches the tiles into a single image and saves it as PNG or PDF.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&verbosity, "verbosity", "", "console verbosity: quiet, normal, verbose, debug")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the config file and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cmd.Flags().Changed("verbosity") {
		cfg.Logging.Verbosity = verbosity
	}

	return cfg, nil
}
