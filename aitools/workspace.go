// Package aitools materializes generated content as Google Workspace
// artifacts and serves reference material to the generation stages.
package aitools

import (
	"context"
	"fmt"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/forms/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var workspaceScopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/documents",
	"https://www.googleapis.com/auth/forms.body",
	"https://www.googleapis.com/auth/drive",
}

// WorkspaceClient is a unified client over the Google Workspace services
// the pipeline writes to.
type WorkspaceClient struct {
	Sheets *sheets.Service
	Docs   *docs.Service
	Forms  *forms.Service
	Drive  *drive.Service
}

// NewWorkspaceClient authenticates with a service account credentials
// file and builds clients for Sheets, Docs, Forms and Drive.
func NewWorkspaceClient(ctx context.Context, credentialsFile string) (*WorkspaceClient, error) {
	opts := []option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(workspaceScopes...),
	}

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	docsSvc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docs service: %w", err)
	}
	formsSvc, err := forms.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating forms service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return &WorkspaceClient{
		Sheets: sheetsSvc,
		Docs:   docsSvc,
		Forms:  formsSvc,
		Drive:  driveSvc,
	}, nil
}

// Artifact identifies a created Workspace file
type Artifact struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}
