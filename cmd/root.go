package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tutobot",
	Short: "Tutobot generates teacher-ready course content",
	Long:  `Tutobot is a command-line tool that plans curricula, writes lesson plans, and builds quizzes with quality-gated AI generation.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to Tutobot! Use --help to see available commands.")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
