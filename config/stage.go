package config

import "fmt"

// Stage represents one generation stage of the content pipeline. The
// instruction is optional; when unset the built-in prompt for the stage
// name is used at runtime.
type Stage struct {
	Name          string `hcl:"name,label"`
	Model         string `hcl:"model"`
	Description   string `hcl:"description,optional"`
	Instruction   string `hcl:"instruction,optional"`
	OutputKey     string `hcl:"output_key,optional"`
	MaxIterations int    `hcl:"max_iterations,optional"`

	// Inputs declares the fields callers must supply (optional block)
	Inputs *InputsSchema `hcl:"inputs,block"`
}

// InputsSchema declares the input fields a stage accepts
type InputsSchema struct {
	Fields []InputField `hcl:"field,block"`
}

// InputField describes a single stage input field
type InputField struct {
	Name        string `hcl:"name,label"`
	Type        string `hcl:"type"`
	Description string `hcl:"description,optional"`
	Required    bool   `hcl:"required,optional"`
}

// RequiredFields returns the names of required input fields.
func (s *InputsSchema) RequiredFields() []string {
	var required []string
	for _, f := range s.Fields {
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return required
}

var validFieldTypes = map[string]bool{
	"string": true,
	"number": true,
	"bool":   true,
	"list":   true,
	"object": true,
}

// Validate checks that the stage configuration is valid
func (s *Stage) Validate() error {
	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative")
	}
	if s.Inputs != nil {
		for _, f := range s.Inputs.Fields {
			if !validFieldTypes[f.Type] {
				return fmt.Errorf("input field '%s': unknown type '%s'", f.Name, f.Type)
			}
		}
	}
	return nil
}

// ResolveModel finds the Model config that matches this stage's model key
func (s *Stage) ResolveModel(models []Model) (*Model, string, error) {
	// s.Model is the model key (e.g., "gemini_2_5_flash"). Find which
	// provider supports this key and return the actual model name.
	for i := range models {
		m := &models[i]
		supportedModels, ok := SupportedModels[m.Provider]
		if !ok {
			continue
		}

		for _, allowedKey := range m.AllowedModels {
			if allowedKey == s.Model {
				actualModel, ok := supportedModels[s.Model]
				if !ok {
					return nil, "", fmt.Errorf("model key '%s' not found in supported models for provider '%s'", s.Model, m.Provider)
				}
				return m, actualModel, nil
			}
		}
	}

	return nil, "", fmt.Errorf("no model config found for model '%s'", s.Model)
}
