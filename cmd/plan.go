package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var planOutput string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a curriculum plan",
	Long: `Run only the curriculum planner stage. The approved curriculum is
printed as JSON, or written to a file with --output so it can feed later
'tutobot lesson' runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		rt, err := buildRuntime(ctx, "plan")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer rt.close()

		result, err := rt.runner.RunPlan(ctx, request)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nPlanning failed: %v\n", err)
			os.Exit(1)
		}

		out, err := json.MarshalIndent(result.Curriculum.Content, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if planOutput != "" {
			if err := os.WriteFile(planOutput, out, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", planOutput, err)
				os.Exit(1)
			}
			fmt.Printf("Curriculum written to %s\n", planOutput)
			return
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	addRequestFlags(planCmd)
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "Write the curriculum JSON to a file")
}
