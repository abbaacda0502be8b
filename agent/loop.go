package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Loop drives the generate/evaluate cycle for a stage: the generator's
// output is judged by the evaluator stage, and rejected attempts are
// retried with the evaluator's feedback folded into the input.
type Loop struct {
	exec   *Executor
	events EventLogger
}

func NewLoop(exec *Executor, events EventLogger) *Loop {
	if events == nil {
		events = NopLogger{}
	}
	return &Loop{exec: exec, events: events}
}

// RunWithEvaluation generates content with stageName and evaluates it up
// to maxIterations times. Transport errors from either side propagate; a
// run that exhausts its budget returns the last attempt with a warning
// instead of failing.
func (l *Loop) RunWithEvaluation(ctx context.Context, stageName string, input TaskInput, maxIterations int) (*LoopResult, error) {
	if maxIterations < 1 {
		maxIterations = 1
	}

	instruction, err := l.exec.Instruction(stageName)
	if err != nil {
		return nil, err
	}

	events := newContextEventLogger(l.events, map[string]any{"stage": stageName})

	genInput := cloneInput(input)

	var lastContent TaskOutput
	var lastVerdict Verdict

	for i := 1; i <= maxIterations; i++ {
		events.LogEvent(EventIterationStarted, map[string]any{
			"iteration": i,
			"max":       maxIterations,
		})

		genSession := stageName + "-" + uuid.NewString()
		out, err := l.exec.Run(ctx, stageName, genInput, genSession)
		l.exec.registry.Complete(genSession, err)
		if err != nil {
			return nil, err
		}

		content := unwrapContent(l.exec, stageName, out)

		evalInput := TaskInput{
			"generator_name":       stageName,
			"original_instruction": instruction,
			"generator_inputs":     map[string]any(input),
			"generator_output":     map[string]any(out),
		}

		evalSession := EvaluatorStage + "-" + uuid.NewString()
		evalOut, err := l.exec.Run(ctx, EvaluatorStage, evalInput, evalSession)
		l.exec.registry.Complete(evalSession, err)
		if err != nil {
			return nil, err
		}

		verdict := parseVerdict(evalOut)

		events.LogEvent(EventContentEvaluated, map[string]any{
			"iteration":     i,
			"status":        verdict.Status,
			"quality_score": verdict.QualityScore,
			"feedback":      verdict.Feedback,
		})

		if verdict.Approved() {
			return &LoopResult{
				Content:    content,
				Evaluation: verdict,
				Iterations: i,
			}, nil
		}

		lastContent = content
		lastVerdict = verdict

		genInput = cloneInput(input)
		genInput["previous_feedback"] = verdict.Feedback
	}

	warning := fmt.Sprintf("stage '%s': max iterations (%d) reached without approval", stageName, maxIterations)
	events.LogEvent(EventLoopExhausted, map[string]any{
		"iterations": maxIterations,
	})

	return &LoopResult{
		Content:    lastContent,
		Evaluation: lastVerdict,
		Iterations: maxIterations,
		Warning:    warning,
	}, nil
}

// unwrapContent narrows a generator result to the stage's declared output
// key, but only when that value is itself an object. List-valued keys stay
// wrapped so callers keep the surrounding structure.
func unwrapContent(exec *Executor, stageName string, out TaskOutput) TaskOutput {
	stage := exec.cfg.Stage(stageName)
	if stage == nil || stage.OutputKey == "" {
		return out
	}
	if inner, ok := out[stage.OutputKey].(map[string]any); ok {
		return TaskOutput(inner)
	}
	return out
}

// parseVerdict reads the evaluator's judgment, unwrapping the
// evaluation_result envelope when present. Anything malformed fails
// closed to a rejection so broken evaluator output never approves
// content.
func parseVerdict(out TaskOutput) Verdict {
	raw := map[string]any(out)
	if inner, ok := out["evaluation_result"].(map[string]any); ok {
		raw = inner
	}

	verdict := Verdict{
		Status:   StatusRejected,
		Feedback: "No feedback provided",
	}

	if status, ok := raw["status"].(string); ok && status == StatusApproved {
		verdict.Status = StatusApproved
	}
	if score, ok := raw["quality_score"].(float64); ok {
		verdict.QualityScore = int(score)
	}
	if feedback, ok := raw["feedback"].(string); ok && feedback != "" {
		verdict.Feedback = feedback
	}

	return verdict
}

func cloneInput(input TaskInput) TaskInput {
	cloned := make(TaskInput, len(input)+1)
	for k, v := range input {
		cloned[k] = v
	}
	return cloned
}
