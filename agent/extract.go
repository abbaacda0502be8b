package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionError indicates a model response that did not contain a
// parseable JSON object. Raw carries the original response text.
type ExtractionError struct {
	Reason string
	Raw    string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting JSON: %s", e.Reason)
}

// ExtractJSON pulls the JSON object out of a model response. Models wrap
// their output in markdown fences and prose, so the first fenced block is
// preferred, then the text is narrowed to the outermost braces before
// parsing.
func ExtractJSON(text string) (TaskOutput, error) {
	candidate := fencedBlock(text)

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &ExtractionError{Reason: "no JSON object found in response", Raw: text}
	}
	candidate = candidate[start : end+1]

	var out TaskOutput
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return nil, &ExtractionError{Reason: err.Error(), Raw: text}
	}
	return out, nil
}

// fencedBlock returns the contents of the first ``` fence, or the whole
// text when no fence is present. The language tag on the opening fence is
// skipped; an unterminated fence runs to the end of the text.
func fencedBlock(text string) string {
	open := strings.Index(text, "```")
	if open == -1 {
		return text
	}

	rest := text[open+3:]
	if nl := strings.Index(rest, "\n"); nl != -1 {
		rest = rest[nl+1:]
	}

	if close := strings.Index(rest, "```"); close != -1 {
		return rest[:close]
	}
	return rest
}
