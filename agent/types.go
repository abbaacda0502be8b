package agent

import "errors"

// TaskInput is the structured payload handed to a stage. It is serialized
// as JSON and sent as the single user turn of the stage's session.
type TaskInput map[string]any

// TaskOutput is the structured result parsed from a stage's response.
type TaskOutput map[string]any

// ErrSessionUnavailable indicates the session store refused both the
// lookup and the subsequent create, so no session could be established.
var ErrSessionUnavailable = errors.New("session unavailable")

// Evaluation statuses returned by the QA evaluator
const (
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Verdict is the evaluator's judgment of a generated artifact
type Verdict struct {
	Status       string `json:"status"`
	QualityScore int    `json:"quality_score"`
	Feedback     string `json:"feedback"`
}

// Approved reports whether the verdict accepts the content
func (v Verdict) Approved() bool {
	return v.Status == StatusApproved
}

// LoopResult is the outcome of a generate/evaluate cycle. Warning is set
// when the iteration budget ran out before approval; Content then holds
// the last attempt.
type LoopResult struct {
	Content    TaskOutput
	Evaluation Verdict
	Iterations int
	Warning    string
}

// SentinelOutput wraps a response that could not be parsed as JSON so the
// caller still receives a structured result instead of an error.
func SentinelOutput(raw string) TaskOutput {
	return TaskOutput{
		"error":      "Failed to parse JSON",
		"raw_output": raw,
	}
}

// IsSentinel reports whether out is a parse-failure sentinel produced by
// SentinelOutput.
func IsSentinel(out TaskOutput) bool {
	if out == nil {
		return false
	}
	msg, ok := out["error"].(string)
	if !ok || msg != "Failed to parse JSON" {
		return false
	}
	_, hasRaw := out["raw_output"]
	return hasRaw
}
