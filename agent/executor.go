package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"tutobot/config"
	"tutobot/llm"
	"tutobot/prompts"
)

// EvaluatorStage is the reserved stage name for the QA evaluator.
const EvaluatorStage = "evaluator"

// ProviderFunc builds an llm.Provider for a model config. Tests override
// it to inject scripted providers.
type ProviderFunc func(ctx context.Context, model *config.Model) (llm.Provider, error)

// Options for creating an executor
type Options struct {
	// Config is the loaded pipeline configuration
	Config *config.Config
	// Registry hands out sessions (required)
	Registry *Registry
	// Events receives structured execution events (optional)
	Events EventLogger
	// ProviderFunc overrides provider construction (optional)
	ProviderFunc ProviderFunc
	// DebugDir enables per-session debug transcripts in this directory (optional)
	DebugDir string
}

// Executor runs a single stage task: it serializes the input as the
// session's sole user turn, drains the full response stream, and parses
// the JSON artifact out of the reply.
type Executor struct {
	cfg        *config.Config
	registry   *Registry
	events     EventLogger
	providerFn ProviderFunc
	debugDir   string

	mu        sync.Mutex
	providers map[string]llm.Provider
}

func NewExecutor(opts Options) (*Executor, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	events := opts.Events
	if events == nil {
		events = NopLogger{}
	}
	return &Executor{
		cfg:        opts.Config,
		registry:   opts.Registry,
		events:     events,
		providerFn: opts.ProviderFunc,
		debugDir:   opts.DebugDir,
		providers:  make(map[string]llm.Provider),
	}, nil
}

// Close releases any providers the executor created
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.providers {
		if closer, ok := p.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
	e.providers = make(map[string]llm.Provider)
}

// Run executes the named stage against input. A blank sessionID gets a
// generated one, and the executor completes that session when the task
// finishes; passing an explicit ID across calls continues the stored
// conversation, with completion left to the caller. Transport failures
// return an error; a response that is not parseable JSON returns the
// parse-failure sentinel with a nil error.
func (e *Executor) Run(ctx context.Context, stageName string, input TaskInput, sessionID string) (TaskOutput, error) {
	stage := e.cfg.Stage(stageName)
	if stage == nil {
		return nil, fmt.Errorf("stage '%s' not found in config", stageName)
	}

	if stage.Inputs != nil {
		for _, field := range stage.Inputs.RequiredFields() {
			if _, ok := input[field]; !ok {
				return nil, fmt.Errorf("stage '%s': missing required input '%s'", stageName, field)
			}
		}
	}

	if sessionID == "" {
		sessionID = stageName + "-" + uuid.NewString()
		out, err := e.runTask(ctx, stage, input, sessionID)
		e.registry.Complete(sessionID, err)
		return out, err
	}

	return e.runTask(ctx, stage, input, sessionID)
}

func (e *Executor) runTask(ctx context.Context, stage *config.Stage, input TaskInput, sessionID string) (TaskOutput, error) {
	stageName := stage.Name

	e.events.LogEvent(EventTaskStarted, map[string]any{
		"stage":      stageName,
		"session_id": sessionID,
	})

	sess, err := e.registry.GetOrCreate(sessionID, stageName, e.defaultUser(), func() (*llm.Session, error) {
		return e.newSession(ctx, stage, sessionID)
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("stage '%s': encoding input: %w", stageName, err)
	}

	resp, err := sess.SendStream(ctx, string(payload), nil)
	if err != nil {
		return nil, fmt.Errorf("stage '%s': %w", stageName, err)
	}

	e.registry.AppendTurn(sessionID, string(payload), resp.Content)

	out, err := ExtractJSON(resp.Content)
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		e.events.LogEvent(EventParseFailed, map[string]any{
			"stage":      stageName,
			"session_id": sessionID,
			"reason":     extErr.Reason,
		})
		return SentinelOutput(resp.Content), nil
	}
	if err != nil {
		return nil, err
	}

	e.events.LogEvent(EventTaskCompleted, map[string]any{
		"stage":      stageName,
		"session_id": sessionID,
	})

	return out, nil
}

// Instruction returns the system instruction for a stage: the configured
// instruction when set, otherwise the built-in prompt for the stage name.
func (e *Executor) Instruction(stageName string) (string, error) {
	if stage := e.cfg.Stage(stageName); stage != nil && stage.Instruction != "" {
		return stage.Instruction, nil
	}
	if stageName == EvaluatorStage {
		return prompts.Evaluator(e.threshold()), nil
	}
	return prompts.Get(stageName)
}

func (e *Executor) newSession(ctx context.Context, stage *config.Stage, sessionID string) (*llm.Session, error) {
	modelCfg, modelName, err := stage.ResolveModel(e.cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("resolving model: %w", err)
	}

	provider, err := e.provider(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	instruction, err := e.Instruction(stage.Name)
	if err != nil {
		return nil, err
	}

	sess := llm.NewSession(provider, modelName, instruction)

	if e.debugDir != "" {
		debugPath := filepath.Join(e.debugDir, sessionID+".log")
		if err := sess.EnableDebug(debugPath); err != nil {
			e.events.LogEvent(EventStoreDegraded, map[string]any{
				"session_id": sessionID,
				"error":      fmt.Sprintf("enabling debug log: %v", err),
			})
		}
	}

	return sess, nil
}

// provider returns a cached provider for the model config, creating one
// on first use.
func (e *Executor) provider(ctx context.Context, modelCfg *config.Model) (llm.Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.providers[modelCfg.Name]; ok {
		return p, nil
	}

	build := e.providerFn
	if build == nil {
		build = createProvider
	}

	p, err := build(ctx, modelCfg)
	if err != nil {
		return nil, err
	}
	e.providers[modelCfg.Name] = p
	return p, nil
}

func (e *Executor) threshold() int {
	if e.cfg.Pipeline != nil {
		return e.cfg.Pipeline.ApprovalThreshold
	}
	return config.DefaultApprovalThreshold
}

func (e *Executor) defaultUser() string {
	if e.cfg.Pipeline != nil && e.cfg.Pipeline.DefaultUser != "" {
		return e.cfg.Pipeline.DefaultUser
	}
	return config.DefaultUser
}

// createProvider creates the appropriate LLM provider based on config
func createProvider(ctx context.Context, modelConfig *config.Model) (llm.Provider, error) {
	if modelConfig.APIKey == "" {
		return nil, fmt.Errorf("API key not set for model '%s'", modelConfig.Name)
	}

	switch modelConfig.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIProvider(modelConfig.APIKey), nil
	case config.ProviderAnthropic:
		return llm.NewAnthropicProvider(modelConfig.APIKey), nil
	case config.ProviderGemini:
		return llm.NewGeminiProvider(ctx, modelConfig.APIKey)
	default:
		return nil, fmt.Errorf("unknown provider: %s", modelConfig.Provider)
	}
}
