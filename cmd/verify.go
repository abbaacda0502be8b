package cmd

import (
	"fmt"
	"os"

	"tutobot/config"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify that the configuration is valid",
	Long:  `Verify parses and validates the HCL configuration files. Path can be a file or directory.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath := args[0]
		cfg, err := config.LoadAndValidate(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Check for unset variables
		var warnings []string
		for _, v := range cfg.Variables {
			resolved, _ := config.ResolveVariableValue(&v)
			if resolved == "" && v.Default == "" {
				warnings = append(warnings, fmt.Sprintf("variable '%s' has no default and no value set", v.Name))
			}
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Found %d model(s)\n", len(cfg.Models))
		for _, m := range cfg.Models {
			fmt.Printf("  - %s (provider: %s, models: %v)\n", m.Name, m.Provider, m.AllowedModels)
		}
		fmt.Printf("Found %d variable(s)\n", len(cfg.Variables))
		for _, v := range cfg.Variables {
			resolved, _ := config.ResolveVariableValue(&v)
			if v.Secret {
				if resolved != "" {
					fmt.Printf("  - %s (secret, set)\n", v.Name)
				} else {
					fmt.Printf("  - %s (secret, not set)\n", v.Name)
				}
			} else {
				fmt.Printf("  - %s = %q\n", v.Name, resolved)
			}
		}
		fmt.Printf("Found %d stage(s)\n", len(cfg.Stages))
		for _, s := range cfg.Stages {
			prompt := "built-in prompt"
			if s.Instruction != "" {
				prompt = "custom instruction"
			}
			extra := ""
			if s.OutputKey != "" {
				extra = fmt.Sprintf(", output_key: %s", s.OutputKey)
			}
			if s.MaxIterations > 0 {
				extra += fmt.Sprintf(", max_iterations: %d", s.MaxIterations)
			}
			fmt.Printf("  - %s (model: %s, %s%s)\n", s.Name, s.Model, prompt, extra)
		}

		if cfg.Pipeline != nil {
			p := cfg.Pipeline
			fmt.Printf("Pipeline settings:\n")
			fmt.Printf("  - approval_threshold: %d\n", p.ApprovalThreshold)
			fmt.Printf("  - default_user: %s\n", p.DefaultUser)
			if p.Storage != nil {
				fmt.Printf("  - storage: %s\n", p.Storage.Backend)
			} else {
				fmt.Printf("  - storage: memory\n")
			}
			if p.SpreadsheetID != "" {
				fmt.Printf("  - spreadsheet_id: %s\n", p.SpreadsheetID)
			}
			if p.FolderID != "" {
				fmt.Printf("  - folder_id: %s\n", p.FolderID)
			}
			if p.CredentialsFile != "" {
				if _, err := os.Stat(p.CredentialsFile); err != nil {
					warnings = append(warnings, fmt.Sprintf("credentials_file '%s' is not readable: %v", p.CredentialsFile, err))
				} else {
					fmt.Printf("  - credentials_file: %s (found)\n", p.CredentialsFile)
				}
			} else {
				warnings = append(warnings, "no credentials_file set; Google Workspace export will be skipped")
			}
		} else {
			warnings = append(warnings, "no pipeline block; runs will use in-memory storage and skip Workspace export")
		}

		if cfg.Stage("evaluator") == nil {
			warnings = append(warnings, "no 'evaluator' stage defined; quality gating will fail at runtime")
		}

		if len(warnings) > 0 {
			fmt.Printf("\nWarnings:\n")
			for _, w := range warnings {
				fmt.Printf("  - %s\n", w)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
