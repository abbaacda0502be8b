package aitools

import (
	"context"
	"fmt"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
)

const docMimeType = "application/vnd.google-apps.document"

// CreateDocument creates a Google Doc with the given body text. The file
// is created through the Drive API so it is born inside folderID when one
// is given; the Docs API then fills in the content.
func (c *WorkspaceClient) CreateDocument(ctx context.Context, title, body, folderID string) (*Artifact, error) {
	meta := &drive.File{
		Name:     title,
		MimeType: docMimeType,
	}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	file, err := c.Drive.Files.Create(meta).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating document '%s': %w", title, err)
	}

	if body != "" {
		req := &docs.BatchUpdateDocumentRequest{
			Requests: []*docs.Request{
				{
					InsertText: &docs.InsertTextRequest{
						Location: &docs.Location{Index: 1},
						Text:     body,
					},
				},
			},
		}
		if _, err := c.Docs.Documents.BatchUpdate(file.Id, req).Context(ctx).Do(); err != nil {
			return nil, fmt.Errorf("writing document '%s': %w", title, err)
		}
	}

	return &Artifact{
		Kind:  "document",
		ID:    file.Id,
		Title: title,
		URL:   fmt.Sprintf("https://docs.google.com/document/d/%s/edit", file.Id),
	}, nil
}
