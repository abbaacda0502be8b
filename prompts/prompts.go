// Package prompts holds the built-in stage instructions, embedded from
// markdown files so they can be edited without touching code.
package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//go:embed planner.md
var plannerPrompt string

//go:embed lesson.md
var lessonPrompt string

//go:embed assessment.md
var assessmentPrompt string

//go:embed export.md
var exportPrompt string

//go:embed evaluator.md
var evaluatorPrompt string

var builtin = map[string]string{
	"planner":    plannerPrompt,
	"lesson":     lessonPrompt,
	"assessment": assessmentPrompt,
	"export":     exportPrompt,
}

// Get returns the built-in instruction for the named stage.
func Get(name string) (string, error) {
	p, ok := builtin[name]
	if !ok {
		return "", fmt.Errorf("prompt '%s' not found. Available: %s", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Evaluator returns the QA evaluator instruction with the approval
// threshold injected.
func Evaluator(threshold int) string {
	return strings.ReplaceAll(evaluatorPrompt, "{{THRESHOLD}}", strconv.Itoa(threshold))
}

// Names returns the built-in stage names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
