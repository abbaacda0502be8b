// Package pipeline coordinates the generation stages into complete runs:
// curriculum planning, per-week lesson plans, assessments, and the final
// export, with every artifact quality-gated by the evaluator loop.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tutobot/agent"
	"tutobot/aitools"
	"tutobot/config"
	"tutobot/store"
	"tutobot/streamers"
)

// weeksToProcess caps how many curriculum weeks get full lesson plans in
// a single run.
const weeksToProcess = 2

// Stage iteration budgets used when a stage config does not set
// max_iterations.
var defaultBudgets = map[string]int{
	"planner":    3,
	"lesson":     2,
	"assessment": 2,
}

// Request describes one content generation request, typically sourced
// from a teacher's form submission.
type Request struct {
	Board         string `json:"board,omitempty"`
	Grade         string `json:"grade"`
	Subject       string `json:"subject"`
	Topics        string `json:"topics,omitempty"`
	DurationWeeks int    `json:"duration_weeks"`
	LearningGoals string `json:"learning_goals,omitempty"`

	// Destination overrides; pipeline config supplies defaults
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	FolderID      string `json:"folder_id,omitempty"`
}

// Result collects the outputs of a pipeline run
type Result struct {
	RunID      string
	Curriculum *agent.LoopResult
	Lessons    []*agent.LoopResult
	Assessment *agent.LoopResult
	Export     agent.TaskOutput
	Artifacts  []aitools.Artifact
	Warnings   []string
}

// LoopRunner and TaskRunner are the two execution surfaces the runner
// needs; agent.Loop and agent.Executor satisfy them.
type LoopRunner interface {
	RunWithEvaluation(ctx context.Context, stageName string, input agent.TaskInput, maxIterations int) (*agent.LoopResult, error)
}

type TaskRunner interface {
	Run(ctx context.Context, stageName string, input agent.TaskInput, sessionID string) (agent.TaskOutput, error)
}

// Workspace is the artifact surface the runner writes generated content
// to. *aitools.WorkspaceClient implements it; a nil Workspace skips
// materialization.
type Workspace interface {
	CreateDocument(ctx context.Context, title, body, folderID string) (*aitools.Artifact, error)
	CreateQuizForm(ctx context.Context, title string, questions []aitools.QuizQuestion) (*aitools.Artifact, error)
	AppendRows(ctx context.Context, spreadsheetID, rangeName string, values [][]any) error
}

// RunnerOptions wires a Runner
type RunnerOptions struct {
	Config    *config.Config
	Loop      LoopRunner
	Executor  TaskRunner
	Runs      store.RunStore
	Workspace Workspace
	Handler   streamers.PipelineHandler
}

// Runner drives pipeline runs
type Runner struct {
	cfg       *config.Config
	loop      LoopRunner
	exec      TaskRunner
	runs      store.RunStore
	workspace Workspace
	handler   streamers.PipelineHandler
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Loop == nil || opts.Executor == nil {
		return nil, fmt.Errorf("loop and executor are required")
	}
	if opts.Runs == nil {
		return nil, fmt.Errorf("run store is required")
	}
	handler := opts.Handler
	if handler == nil {
		handler = streamers.NopPipelineHandler{}
	}
	return &Runner{
		cfg:       opts.Config,
		loop:      opts.Loop,
		exec:      opts.Executor,
		runs:      opts.Runs,
		workspace: opts.Workspace,
		handler:   handler,
	}, nil
}

// RunFull executes the complete pipeline: curriculum, lesson plans for
// the first weeks, a week-one quiz, and the exported summary.
func (r *Runner) RunFull(ctx context.Context, req Request) (*Result, error) {
	runID, err := r.createRun("full", req)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID}

	curriculum, err := r.runStageLoop(ctx, runID, "planner", "planner", r.plannerInput(req), result)
	if err != nil {
		return r.fail(runID, err)
	}
	result.Curriculum = curriculum

	weeks, ok := curriculum.Content["curriculum"].([]any)
	if !ok || len(weeks) == 0 {
		return r.fail(runID, fmt.Errorf("planner did not produce a curriculum list"))
	}

	processed := weeks
	if len(processed) > weeksToProcess {
		processed = processed[:weeksToProcess]
	}

	for i, rawWeek := range processed {
		week, _ := rawWeek.(map[string]any)
		weekNum := weekNumber(week, i+1)

		lesson, err := r.runStageLoop(ctx, runID, "lesson", fmt.Sprintf("lesson_week_%d", weekNum), agent.TaskInput{
			"curriculum":  week,
			"week_number": weekNum,
			"grade":       req.Grade,
			"subject":     req.Subject,
		}, result)
		if err != nil {
			return r.fail(runID, err)
		}
		result.Lessons = append(result.Lessons, lesson)

		r.materializeLesson(ctx, req, weekNum, lesson.Content, result)
	}

	firstWeek, _ := processed[0].(map[string]any)
	assessment, err := r.runStageLoop(ctx, runID, "assessment", "assessment", agent.TaskInput{
		"curriculum":      firstWeek,
		"week_number":     weekNumber(firstWeek, 1),
		"assessment_type": "quiz",
	}, result)
	if err != nil {
		return r.fail(runID, err)
	}
	result.Assessment = assessment
	r.materializeAssessment(ctx, req, weekNumber(firstWeek, 1), assessment.Content, result)

	export, err := r.runExport(ctx, runID, curriculum, result)
	if err != nil {
		return r.fail(runID, err)
	}
	result.Export = export
	r.materializeExport(ctx, req, export, result)
	r.appendRunRow(ctx, req, result)

	r.runs.UpdateRunStatus(runID, "completed")
	r.handler.Summary(buildSummary(req, result))
	r.handler.PipelineCompleted(runID)
	return result, nil
}

// RunPlan executes only the curriculum planner.
func (r *Runner) RunPlan(ctx context.Context, req Request) (*Result, error) {
	runID, err := r.createRun("plan", req)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID}
	curriculum, err := r.runStageLoop(ctx, runID, "planner", "planner", r.plannerInput(req), result)
	if err != nil {
		return r.fail(runID, err)
	}
	result.Curriculum = curriculum

	r.runs.UpdateRunStatus(runID, "completed")
	r.handler.Summary(buildSummary(req, result))
	r.handler.PipelineCompleted(runID)
	return result, nil
}

// RunLesson generates a single week's lesson plan from an existing
// curriculum week.
func (r *Runner) RunLesson(ctx context.Context, req Request, week map[string]any, weekNum int) (*Result, error) {
	runID, err := r.createRun("lesson", req)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID}
	lesson, err := r.runStageLoop(ctx, runID, "lesson", fmt.Sprintf("lesson_week_%d", weekNum), agent.TaskInput{
		"curriculum":  week,
		"week_number": weekNum,
		"grade":       req.Grade,
		"subject":     req.Subject,
	}, result)
	if err != nil {
		return r.fail(runID, err)
	}
	result.Lessons = append(result.Lessons, lesson)
	r.materializeLesson(ctx, req, weekNum, lesson.Content, result)

	r.runs.UpdateRunStatus(runID, "completed")
	r.handler.Summary(buildSummary(req, result))
	r.handler.PipelineCompleted(runID)
	return result, nil
}

func (r *Runner) createRun(mode string, req Request) (string, error) {
	inputsJSON, _ := json.Marshal(req)
	runID, err := r.runs.CreateRun(mode, string(inputsJSON))
	if err != nil {
		return "", fmt.Errorf("creating run record: %w", err)
	}
	r.handler.PipelineStarted(runID, mode)
	return runID, nil
}

func (r *Runner) fail(runID string, err error) (*Result, error) {
	r.runs.UpdateRunStatus(runID, "failed")
	return nil, err
}

// runStageLoop executes a quality-gated stage and records its result.
// recordName distinguishes repeated stages, e.g. per-week lessons.
func (r *Runner) runStageLoop(ctx context.Context, runID, stageName, recordName string, input agent.TaskInput, result *Result) (*agent.LoopResult, error) {
	recID, recErr := r.runs.CreateStageResult(runID, recordName)

	detail := ""
	if stage := r.cfg.Stage(stageName); stage != nil {
		detail = stage.Description
	}
	r.handler.StageStarted(recordName, detail)

	loopResult, err := r.loop.RunWithEvaluation(ctx, stageName, input, r.budget(stageName))
	if err != nil {
		if recErr == nil {
			msg := err.Error()
			r.runs.UpdateStageResult(recID, "failed", nil, &msg)
		}
		r.handler.StageFailed(recordName, err)
		return nil, err
	}

	if loopResult.Warning != "" {
		result.Warnings = append(result.Warnings, loopResult.Warning)
		r.handler.Warning(loopResult.Warning)
	}

	if recErr == nil {
		outJSON, _ := json.Marshal(loopResult.Content)
		outStr := string(outJSON)
		r.runs.UpdateStageResult(recID, "completed", &outStr, nil)
	}

	r.handler.StageCompleted(recordName, loopResult.Iterations, loopResult.Evaluation.QualityScore)
	return loopResult, nil
}

// runExport compiles the final summary. Export output is not evaluated;
// it only reshapes already-approved content.
func (r *Runner) runExport(ctx context.Context, runID string, curriculum *agent.LoopResult, result *Result) (agent.TaskOutput, error) {
	recID, recErr := r.runs.CreateStageResult(runID, "export")
	r.handler.StageStarted("export", "compiling run summary")

	lessons := make([]any, 0, len(result.Lessons))
	for _, l := range result.Lessons {
		lessons = append(lessons, map[string]any(l.Content))
	}

	out, err := r.exec.Run(ctx, "export", agent.TaskInput{
		"curriculum": map[string]any(curriculum.Content),
		"lessons":    lessons,
		"assessment": map[string]any(result.Assessment.Content),
	}, "")
	if err != nil {
		if recErr == nil {
			msg := err.Error()
			r.runs.UpdateStageResult(recID, "failed", nil, &msg)
		}
		r.handler.StageFailed("export", err)
		return nil, err
	}

	if recErr == nil {
		outJSON, _ := json.Marshal(out)
		outStr := string(outJSON)
		r.runs.UpdateStageResult(recID, "completed", &outStr, nil)
	}
	r.handler.StageCompleted("export", 1, 0)
	return out, nil
}

// plannerInput assembles the planner payload, enriched with reference
// content when the built-in library covers the requested topics.
func (r *Runner) plannerInput(req Request) agent.TaskInput {
	input := agent.TaskInput{
		"grade":          req.Grade,
		"subject":        req.Subject,
		"duration_weeks": req.DurationWeeks,
	}
	if req.Board != "" {
		input["board"] = req.Board
	}
	if req.Topics != "" {
		input["topics"] = req.Topics
	}
	if req.LearningGoals != "" {
		input["learning_goals"] = req.LearningGoals
	}

	if grade, err := gradeNumber(req.Grade); err == nil {
		var refs []aitools.ChapterContent
		for _, topic := range splitTopics(req.Topics) {
			ref := aitools.SearchContent(grade, req.Subject, topic)
			if len(ref.KeyConcepts) > 0 {
				refs = append(refs, ref)
			}
		}
		if len(refs) > 0 {
			input["reference_content"] = refs
		}
	}

	return input
}

func (r *Runner) budget(stageName string) int {
	if stage := r.cfg.Stage(stageName); stage != nil && stage.MaxIterations > 0 {
		return stage.MaxIterations
	}
	if b, ok := defaultBudgets[stageName]; ok {
		return b
	}
	return 2
}

// weekNumber reads the week index out of a curriculum week entry.
func weekNumber(week map[string]any, fallback int) int {
	for _, key := range []string{"week", "week_number"} {
		if n, ok := week[key].(float64); ok {
			return int(n)
		}
	}
	return fallback
}

// gradeNumber parses the leading integer of a grade label like "5" or
// "Grade 5".
func gradeNumber(grade string) (int, error) {
	fields := strings.Fields(grade)
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("no grade number in '%s'", grade)
}

func splitTopics(topics string) []string {
	var out []string
	for _, t := range strings.Split(topics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
