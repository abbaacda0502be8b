package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tutobot/agent"
	"tutobot/aitools"
	"tutobot/config"
	"tutobot/pipeline"
	"tutobot/store"
	"tutobot/streamers/cli"

	"github.com/spf13/cobra"
)

var configPath string
var debugMode bool

var request pipeline.Request

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full content generation pipeline",
	Long: `Run the complete pipeline: plan a curriculum, generate lesson plans for
the first weeks, build a week-one quiz, and export the results to Google
Workspace. Every generation stage is reviewed by the evaluator before it
is accepted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		rt, err := buildRuntime(ctx, "pipeline")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer rt.close()

		if _, err := rt.runner.RunFull(ctx, request); err != nil {
			fmt.Fprintf(os.Stderr, "\nPipeline failed: %v\n", err)
			os.Exit(1)
		}
	},
}

// runtime bundles everything a pipeline command needs, so plan and
// lesson can share the wiring.
type runtime struct {
	cfg    *config.Config
	bundle *store.Bundle
	exec   *agent.Executor
	runner *pipeline.Runner
	debug  *pipeline.DebugLogger
}

func (rt *runtime) close() {
	rt.exec.Close()
	rt.bundle.Close()
	rt.debug.Close()
}

func buildRuntime(ctx context.Context, mode string) (*runtime, error) {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var debugDir string
	if debugMode {
		debugDir = filepath.Join("debug", fmt.Sprintf("%s_%s", mode, time.Now().Format("20060102_150405")))
	}
	debugLogger, err := pipeline.NewDebugLogger(debugDir)
	if err != nil {
		return nil, fmt.Errorf("creating debug logger: %w", err)
	}
	if debugLogger.IsEnabled() {
		fmt.Printf("Debug mode enabled. Writing to: %s\n", debugLogger.GetDebugDir())
	}

	var storageCfg *config.StorageConfig
	if cfg.Pipeline != nil {
		storageCfg = cfg.Pipeline.Storage
	}
	bundle, err := store.NewBundle(storageCfg)
	if err != nil {
		debugLogger.Close()
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	handler := cli.NewPipelineHandler()
	events := agent.MultiLogger(debugLogger, pipeline.NewHandlerEvents(handler))

	registry := agent.NewRegistry(bundle.Sessions, events)
	exec, err := agent.NewExecutor(agent.Options{
		Config:   cfg,
		Registry: registry,
		Events:   events,
		DebugDir: debugLogger.GetDebugDir(),
	})
	if err != nil {
		bundle.Close()
		debugLogger.Close()
		return nil, err
	}
	loop := agent.NewLoop(exec, events)

	opts := pipeline.RunnerOptions{
		Config:   cfg,
		Loop:     loop,
		Executor: exec,
		Runs:     bundle.Runs,
		Handler:  handler,
	}
	if cfg.Pipeline != nil && cfg.Pipeline.CredentialsFile != "" {
		workspace, err := aitools.NewWorkspaceClient(ctx, cfg.Pipeline.CredentialsFile)
		if err != nil {
			exec.Close()
			bundle.Close()
			debugLogger.Close()
			return nil, fmt.Errorf("connecting to Google Workspace: %w", err)
		}
		opts.Workspace = workspace
	}

	runner, err := pipeline.NewRunner(opts)
	if err != nil {
		exec.Close()
		bundle.Close()
		debugLogger.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, bundle: bundle, exec: exec, runner: runner, debug: debugLogger}, nil
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configPath, "config", "c", ".", "Path to config file or directory")
	cmd.Flags().StringVar(&request.Board, "board", "", "Education board, e.g. SSC or CBSE")
	cmd.Flags().StringVar(&request.Grade, "grade", "", "Grade level, e.g. 5")
	cmd.Flags().StringVar(&request.Subject, "subject", "", "Subject, e.g. Mathematics")
	cmd.Flags().StringVar(&request.Topics, "topics", "", "Comma-separated topics to cover")
	cmd.Flags().IntVar(&request.DurationWeeks, "weeks", 4, "Curriculum duration in weeks")
	cmd.Flags().StringVar(&request.LearningGoals, "goals", "", "Free-form learning goals")
	cmd.Flags().StringVar(&request.SpreadsheetID, "spreadsheet-id", "", "Tracking spreadsheet ID (overrides config)")
	cmd.Flags().StringVar(&request.FolderID, "folder-id", "", "Drive folder for generated documents (overrides config)")
	cmd.Flags().BoolVarP(&debugMode, "debug", "d", false, "Enable debug mode to capture LLM messages and events")
	cmd.MarkFlagRequired("grade")
	cmd.MarkFlagRequired("subject")
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	addRequestFlags(pipelineCmd)
}
