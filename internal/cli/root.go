// Package cli implements the aegisgraph command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aegisgraph",
	Short: "Gated access layer for medical records",
	Long:  "Routes every records question through intent classification, relationship authorization, and threat screening before a response is generated. Repeated refusals tighten the security posture automatically.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.aegisgraph/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
