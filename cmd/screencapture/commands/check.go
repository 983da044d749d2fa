package commands

import (
	"fmt"

	"github.com/entrhq/screencapture/pkg/capture"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Report whether a URL can be captured",
	Long:  "Check a URL against the configured allow and deny patterns without opening a browser.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("eligibility patterns: %w", err)
	}

	url := args[0]
	if !policy.Allows(url) {
		fmt.Fprintf(cmd.OutOrStdout(), "✗ %s cannot be captured\n", url)
		return fmt.Errorf("%w: %s", capture.ErrIneligibleURL, url)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s can be captured\n", url)
	return nil
}
