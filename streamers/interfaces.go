package streamers

// PipelineHandler defines the interface for observing pipeline execution.
// Different implementations can handle terminal output, logging, etc.
type PipelineHandler interface {
	// Pipeline lifecycle
	PipelineStarted(runID string, mode string)
	PipelineCompleted(runID string)

	// Stage lifecycle
	StageStarted(stageName string, detail string)
	StageCompleted(stageName string, iterations int, qualityScore int)
	StageFailed(stageName string, err error)

	// Generate/evaluate cycle events
	IterationStarted(stageName string, iteration int, max int)
	ContentEvaluated(stageName string, iteration int, status string, qualityScore int, feedback string)

	// ArtifactCreated fires when generated content is materialized as a
	// Workspace file
	ArtifactCreated(kind string, title string, url string)

	// Warning reports a non-fatal condition, e.g. an exhausted
	// iteration budget
	Warning(message string)

	// Summary delivers the final run summary as markdown
	Summary(markdown string)
}

// NopPipelineHandler discards all events
type NopPipelineHandler struct{}

func (NopPipelineHandler) PipelineStarted(string, string)                   {}
func (NopPipelineHandler) PipelineCompleted(string)                         {}
func (NopPipelineHandler) StageStarted(string, string)                      {}
func (NopPipelineHandler) StageCompleted(string, int, int)                  {}
func (NopPipelineHandler) StageFailed(string, error)                        {}
func (NopPipelineHandler) IterationStarted(string, int, int)                {}
func (NopPipelineHandler) ContentEvaluated(string, int, string, int, string) {}
func (NopPipelineHandler) ArtifactCreated(string, string, string)           {}
func (NopPipelineHandler) Warning(string)                                   {}
func (NopPipelineHandler) Summary(string)                                   {}
