package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Long = fmt.Sprintf(`Tutobot %s

HCL-configured pipeline for generating educational content: curricula,
lesson plans, and assessments, each reviewed by an evaluator agent
before it ships to Google Workspace.

Get started:
  tutobot verify <path>  Validate your configuration
  tutobot plan           Generate a curriculum plan (-c config, --grade, --subject)
  tutobot pipeline       Run the full content pipeline (-c config, --grade, --subject)
  tutobot vars           Manage stored variables`, Version)
}
