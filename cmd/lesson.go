package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var lessonCurriculumFile string
var lessonWeek int

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Generate a lesson plan for one curriculum week",
	Long: `Generate a single week's lesson plan from a previously planned
curriculum. Pass the curriculum JSON produced by 'tutobot plan' with
--curriculum and pick the week with --week.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		week, err := loadCurriculumWeek(lessonCurriculumFile, lessonWeek)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		rt, err := buildRuntime(ctx, "lesson")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer rt.close()

		if _, err := rt.runner.RunLesson(ctx, request, week, lessonWeek); err != nil {
			fmt.Fprintf(os.Stderr, "\nLesson generation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

// loadCurriculumWeek reads a plan file and picks the requested week. The
// file holds either the planner output ({"curriculum": [...]}) or a bare
// week list.
func loadCurriculumWeek(path string, weekNum int) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading curriculum file: %w", err)
	}

	var doc map[string]any
	var weeks []any
	if err := json.Unmarshal(raw, &doc); err == nil {
		if list, ok := doc["curriculum"].([]any); ok {
			weeks = list
		}
	}
	if weeks == nil {
		if err := json.Unmarshal(raw, &weeks); err != nil {
			return nil, fmt.Errorf("parsing curriculum file: %w", err)
		}
	}

	for _, raw := range weeks {
		week, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"week", "week_number"} {
			if n, ok := week[key].(float64); ok && int(n) == weekNum {
				return week, nil
			}
		}
	}
	if weekNum >= 1 && weekNum <= len(weeks) {
		if week, ok := weeks[weekNum-1].(map[string]any); ok {
			return week, nil
		}
	}
	return nil, fmt.Errorf("week %d not found in curriculum file", weekNum)
}

func init() {
	rootCmd.AddCommand(lessonCmd)
	addRequestFlags(lessonCmd)
	lessonCmd.Flags().StringVar(&lessonCurriculumFile, "curriculum", "", "Curriculum JSON file from 'tutobot plan'")
	lessonCmd.Flags().IntVar(&lessonWeek, "week", 1, "Week number to generate the lesson for")
	lessonCmd.MarkFlagRequired("curriculum")
}
