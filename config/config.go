package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Config holds all configuration
type Config struct {
	Variables []Variable      `hcl:"variable,block"`
	Models    []Model         `hcl:"model,block"`
	Stages    []Stage         `hcl:"stage,block"`
	Pipeline  *PipelineConfig `hcl:"pipeline,block"`

	// ResolvedVars holds the resolved variable values for runtime use
	ResolvedVars map[string]cty.Value `hcl:"-"`
}

func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadAndValidate loads the config and validates all components
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all config components are valid
func (c *Config) Validate() error {
	for _, v := range c.Variables {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("variable '%s': %w", v.Name, err)
		}
	}

	for _, m := range c.Models {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model '%s': %w", m.Name, err)
		}
	}

	seen := make(map[string]bool)
	for i := range c.Stages {
		s := &c.Stages[i]
		if seen[s.Name] {
			return fmt.Errorf("stage '%s': defined more than once", s.Name)
		}
		seen[s.Name] = true

		if err := s.Validate(); err != nil {
			return fmt.Errorf("stage '%s': %w", s.Name, err)
		}
		if _, _, err := s.ResolveModel(c.Models); err != nil {
			return fmt.Errorf("stage '%s': %w", s.Name, err)
		}
	}

	if c.Pipeline != nil {
		if err := c.Pipeline.Validate(); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
	}

	return nil
}

// Stage returns the stage with the given name, or nil when not configured.
func (c *Config) Stage(name string) *Stage {
	for i := range c.Stages {
		if c.Stages[i].Name == name {
			return &c.Stages[i]
		}
	}
	return nil
}

func LoadFile(filename string) (*Config, error) {
	return loadFromFiles([]string{filename})
}

func LoadDir(dir string) (*Config, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.hcl"))
	if err != nil {
		return nil, err
	}
	return loadFromFiles(files)
}

// parsedBlocks holds all blocks extracted from a file in one pass
type parsedBlocks struct {
	Variables []*hcl.Block
	Models    []*hcl.Block
	Stages    []*hcl.Block
	Pipelines []*hcl.Block
}

// loadFromFiles implements staged loading: variables → models → stages → pipeline
func loadFromFiles(files []string) (*Config, error) {
	parser := hclparse.NewParser()
	var allParsedBlocks []parsedBlocks

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", file, diags)
		}

		content, _, diags := hclFile.Body.PartialContent(&hcl.BodySchema{
			Blocks: []hcl.BlockHeaderSchema{
				{Type: "variable", LabelNames: []string{"name"}},
				{Type: "model", LabelNames: []string{"name"}},
				{Type: "stage", LabelNames: []string{"name"}},
				{Type: "pipeline"},
			},
		})
		if diags.HasErrors() {
			return nil, fmt.Errorf("partial content %s: %w", file, diags)
		}

		var pb parsedBlocks
		for _, block := range content.Blocks {
			switch block.Type {
			case "variable":
				pb.Variables = append(pb.Variables, block)
			case "model":
				pb.Models = append(pb.Models, block)
			case "stage":
				pb.Stages = append(pb.Stages, block)
			case "pipeline":
				pb.Pipelines = append(pb.Pipelines, block)
			}
		}
		allParsedBlocks = append(allParsedBlocks, pb)
	}

	// Stage 1: Load variables (no context needed)
	var allVars []Variable
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Variables {
			var v Variable
			v.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, nil, &v)
			if diags.HasErrors() {
				return nil, fmt.Errorf("decode variable %s: %w", v.Name, diags)
			}
			allVars = append(allVars, v)
		}
	}

	varsCtx, resolvedVars := buildVarsContext(allVars)

	// Stage 2: Load models (with vars context)
	var allModels []Model
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Models {
			var m Model
			m.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, varsCtx, &m)
			if diags.HasErrors() {
				return nil, diags
			}
			allModels = append(allModels, m)
		}
	}

	modelsCtx := buildModelsContext(varsCtx, allModels)

	// Stage 3: Load stages (with vars + models context)
	var allStages []Stage
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Stages {
			var s Stage
			s.Name = block.Labels[0]
			diags := gohcl.DecodeBody(block.Body, modelsCtx, &s)
			if diags.HasErrors() {
				return nil, diags
			}
			allStages = append(allStages, s)
		}
	}

	stagesCtx := buildStagesContext(modelsCtx, allStages)

	// Stage 4: Load pipeline (with vars + models + stages context)
	var pipeline *PipelineConfig
	for _, pb := range allParsedBlocks {
		for _, block := range pb.Pipelines {
			if pipeline != nil {
				return nil, fmt.Errorf("multiple pipeline blocks defined")
			}
			var p PipelineConfig
			diags := gohcl.DecodeBody(block.Body, stagesCtx, &p)
			if diags.HasErrors() {
				return nil, diags
			}
			p.Defaults()
			pipeline = &p
		}
	}

	return &Config{
		Variables:    allVars,
		Models:       allModels,
		Stages:       allStages,
		Pipeline:     pipeline,
		ResolvedVars: resolvedVars,
	}, nil
}

// buildVarsContext creates context with just vars
func buildVarsContext(vars []Variable) (*hcl.EvalContext, map[string]cty.Value) {
	varsMap := make(map[string]cty.Value)
	fileVars, _ := LoadVarsFromFile()
	for _, v := range vars {
		if val, ok := fileVars[v.Name]; ok {
			varsMap[v.Name] = cty.StringVal(val)
		} else if v.Default != "" {
			varsMap[v.Name] = cty.StringVal(v.Default)
		} else {
			varsMap[v.Name] = cty.StringVal("")
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"vars": cty.ObjectVal(varsMap),
		},
	}, varsMap
}

// buildModelsContext adds models to existing context
func buildModelsContext(ctx *hcl.EvalContext, models []Model) *hcl.EvalContext {
	modelsMap := make(map[string]cty.Value)
	for _, m := range models {
		providerModels := make(map[string]cty.Value)
		for _, modelKey := range m.AllowedModels {
			providerModels[modelKey] = cty.StringVal(modelKey)
		}
		modelsMap[m.Name] = cty.ObjectVal(providerModels)
	}

	newVars := make(map[string]cty.Value)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars["models"] = cty.ObjectVal(modelsMap)

	return &hcl.EvalContext{
		Variables: newVars,
	}
}

// buildStagesContext adds the stages namespace to existing context
// so the pipeline block can reference stages.planner etc.
func buildStagesContext(ctx *hcl.EvalContext, stages []Stage) *hcl.EvalContext {
	stagesMap := make(map[string]cty.Value)
	for _, s := range stages {
		stagesMap[s.Name] = cty.StringVal(s.Name)
	}

	newVars := make(map[string]cty.Value)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars["stages"] = cty.ObjectVal(stagesMap)

	return &hcl.EvalContext{
		Variables: newVars,
	}
}
