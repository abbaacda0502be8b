package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"tutobot/agent"
	"tutobot/aitools"
)

// The runner materializes approved content deterministically: generation
// stages only emit JSON, and this layer turns it into Workspace files.
// Materialization failures degrade to warnings since the content itself
// already exists in the run record.

func (r *Runner) materializeLesson(ctx context.Context, req Request, weekNum int, content agent.TaskOutput, result *Result) {
	if r.workspace == nil {
		return
	}

	title := fmt.Sprintf("Week %d Lesson Plan - %s", weekNum, req.Subject)
	artifact, err := r.workspace.CreateDocument(ctx, title, formatLessonDoc(content), r.folderID(req))
	if err != nil {
		r.warn(result, fmt.Sprintf("creating lesson document for week %d: %v", weekNum, err))
		return
	}
	r.addArtifact(result, artifact)
}

func (r *Runner) materializeAssessment(ctx context.Context, req Request, weekNum int, content agent.TaskOutput, result *Result) {
	if r.workspace == nil {
		return
	}

	questions := parseQuizQuestions(content["questions"])
	if len(questions) == 0 {
		r.warn(result, "assessment produced no quiz questions to materialize")
		return
	}

	title, ok := content["title"].(string)
	if !ok || title == "" {
		title = fmt.Sprintf("Week %d Quiz - %s", weekNum, req.Subject)
	}

	artifact, err := r.workspace.CreateQuizForm(ctx, title, questions)
	if err != nil {
		r.warn(result, fmt.Sprintf("creating quiz form: %v", err))
		return
	}
	r.addArtifact(result, artifact)
}

func (r *Runner) materializeExport(ctx context.Context, req Request, export agent.TaskOutput, result *Result) {
	if r.workspace == nil {
		return
	}

	body, ok := export["document"].(string)
	if !ok || body == "" {
		// Fall back to the raw structure so the run still leaves a
		// reviewable artifact
		raw, _ := json.MarshalIndent(export, "", "  ")
		body = string(raw)
	}

	title := fmt.Sprintf("Course Summary - %s (Grade %s)", req.Subject, req.Grade)
	artifact, err := r.workspace.CreateDocument(ctx, title, body, r.folderID(req))
	if err != nil {
		r.warn(result, fmt.Sprintf("creating summary document: %v", err))
		return
	}
	r.addArtifact(result, artifact)
}

// appendRunRow records the finished run on the tracking spreadsheet.
func (r *Runner) appendRunRow(ctx context.Context, req Request, result *Result) {
	if r.workspace == nil {
		return
	}
	spreadsheetID := r.spreadsheetID(req)
	if spreadsheetID == "" {
		return
	}

	links := make([]string, 0, len(result.Artifacts))
	for _, a := range result.Artifacts {
		links = append(links, a.URL)
	}

	row := []any{
		time.Now().Format(time.RFC3339),
		req.Grade,
		req.Subject,
		req.DurationWeeks,
		"Completed",
		strings.Join(links, ", "),
	}
	if err := r.workspace.AppendRows(ctx, spreadsheetID, "Sheet1!A:F", [][]any{row}); err != nil {
		r.warn(result, fmt.Sprintf("updating tracking sheet: %v", err))
	}
}

func (r *Runner) addArtifact(result *Result, artifact *aitools.Artifact) {
	result.Artifacts = append(result.Artifacts, *artifact)
	r.handler.ArtifactCreated(artifact.Kind, artifact.Title, artifact.URL)
}

func (r *Runner) warn(result *Result, message string) {
	result.Warnings = append(result.Warnings, message)
	r.handler.Warning(message)
}

func (r *Runner) folderID(req Request) string {
	if req.FolderID != "" {
		return req.FolderID
	}
	if r.cfg.Pipeline != nil {
		return r.cfg.Pipeline.FolderID
	}
	return ""
}

func (r *Runner) spreadsheetID(req Request) string {
	if req.SpreadsheetID != "" {
		return req.SpreadsheetID
	}
	if r.cfg.Pipeline != nil {
		return r.cfg.Pipeline.SpreadsheetID
	}
	return ""
}

// parseQuizQuestions converts the assessment stage's question list into
// form questions, skipping entries that lack the required fields.
func parseQuizQuestions(raw any) []aitools.QuizQuestion {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	var questions []aitools.QuizQuestion
	for _, item := range items {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text, _ := q["question"].(string)
		answer, _ := q["correct_answer"].(string)
		if text == "" || answer == "" {
			continue
		}

		question := aitools.QuizQuestion{
			Question:      text,
			Type:          aitools.QuestionMultipleChoice,
			CorrectAnswer: answer,
		}
		if qType, ok := q["type"].(string); ok && qType != "" {
			question.Type = qType
		}
		if points, ok := q["points"].(float64); ok {
			question.Points = int64(points)
		}
		if opts, ok := q["options"].([]any); ok {
			for _, opt := range opts {
				if s, ok := opt.(string); ok {
					question.Options = append(question.Options, s)
				}
			}
		}
		questions = append(questions, question)
	}
	return questions
}

// lessonSections orders the well-known lesson fields in the document.
var lessonSections = []struct {
	key   string
	title string
}{
	{"objectives", "Learning Objectives"},
	{"topics", "Topics"},
	{"activities", "Activities"},
	{"materials", "Materials"},
	{"homework", "Homework"},
	{"notes", "Teacher Notes"},
}

// formatLessonDoc renders lesson content as plain document text.
func formatLessonDoc(content agent.TaskOutput) string {
	var sb strings.Builder

	if title, ok := content["title"].(string); ok && title != "" {
		sb.WriteString(title + "\n\n")
	}

	seen := map[string]bool{"title": true}
	for _, section := range lessonSections {
		value, ok := content[section.key]
		if !ok {
			continue
		}
		seen[section.key] = true
		sb.WriteString(section.title + "\n")
		writeValue(&sb, value)
		sb.WriteString("\n")
	}

	// Anything the stage emitted beyond the known sections
	var extras []string
	for key := range content {
		if !seen[key] {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		sb.WriteString(headingFor(key) + "\n")
		writeValue(&sb, content[key])
		sb.WriteString("\n")
	}

	return sb.String()
}

// headingFor turns a snake_case key into a document heading.
func headingFor(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func writeValue(sb *strings.Builder, value any) {
	switch v := value.(type) {
	case string:
		sb.WriteString(v + "\n")
	case []any:
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				sb.WriteString("- " + entry + "\n")
			default:
				raw, _ := json.Marshal(entry)
				sb.WriteString("- " + string(raw) + "\n")
			}
		}
	default:
		raw, _ := json.MarshalIndent(v, "", "  ")
		sb.WriteString(string(raw) + "\n")
	}
}

// buildSummary renders the run outcome as markdown for the terminal.
func buildSummary(req Request, result *Result) string {
	var sb strings.Builder

	sb.WriteString("# Content Generation Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Subject:** %s | **Grade:** %s | **Duration:** %d weeks\n\n",
		req.Subject, req.Grade, req.DurationWeeks))

	if result.Curriculum != nil {
		sb.WriteString(stageLine("Curriculum", result.Curriculum))
	}
	for i, lesson := range result.Lessons {
		sb.WriteString(stageLine(fmt.Sprintf("Lesson (week %d)", i+1), lesson))
	}
	if result.Assessment != nil {
		sb.WriteString(stageLine("Assessment", result.Assessment))
	}

	if len(result.Artifacts) > 0 {
		sb.WriteString("\n## Artifacts\n\n")
		for _, a := range result.Artifacts {
			sb.WriteString(fmt.Sprintf("- %s: [%s](%s)\n", a.Kind, a.Title, a.URL))
		}
	}

	if len(result.Warnings) > 0 {
		sb.WriteString("\n## Warnings\n\n")
		for _, w := range result.Warnings {
			sb.WriteString("- " + w + "\n")
		}
	}

	return sb.String()
}

func stageLine(label string, result *agent.LoopResult) string {
	return fmt.Sprintf("- **%s**: %s, score %d, %d iteration(s)\n",
		label, result.Evaluation.Status, result.Evaluation.QualityScore, result.Iterations)
}
