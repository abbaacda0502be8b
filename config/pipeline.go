package config

import "fmt"

const (
	// DefaultApprovalThreshold is the quality score at or above which the
	// evaluator is instructed to approve generated content.
	DefaultApprovalThreshold = 70

	// DefaultUser identifies sessions created without an explicit user.
	DefaultUser = "teacher_1"
)

// PipelineConfig holds pipeline-wide settings
type PipelineConfig struct {
	ApprovalThreshold int    `hcl:"approval_threshold,optional"`
	DefaultUser       string `hcl:"default_user,optional"`
	CredentialsFile   string `hcl:"credentials_file,optional"`
	SpreadsheetID     string `hcl:"spreadsheet_id,optional"`
	FolderID          string `hcl:"folder_id,optional"`

	// Storage selects the session/run persistence backend (optional block)
	Storage *StorageConfig `hcl:"storage,block"`
}

// Defaults fills in default values for unset fields
func (p *PipelineConfig) Defaults() {
	if p.ApprovalThreshold == 0 {
		p.ApprovalThreshold = DefaultApprovalThreshold
	}
	if p.DefaultUser == "" {
		p.DefaultUser = DefaultUser
	}
	if p.Storage != nil {
		p.Storage.Defaults()
	}
}

// Validate checks the pipeline configuration
func (p *PipelineConfig) Validate() error {
	if p.ApprovalThreshold < 0 || p.ApprovalThreshold > 100 {
		return fmt.Errorf("approval_threshold must be between 0 and 100, got %d", p.ApprovalThreshold)
	}
	return nil
}
