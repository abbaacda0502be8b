package aitools

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// ReadRange reads cell values from a spreadsheet using A1 notation.
func (c *WorkspaceClient) ReadRange(ctx context.Context, spreadsheetID, rangeName string) ([][]any, error) {
	resp, err := c.Sheets.Spreadsheets.Values.Get(spreadsheetID, rangeName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading range '%s': %w", rangeName, err)
	}
	return resp.Values, nil
}

// WriteRange overwrites cell values in a spreadsheet range.
func (c *WorkspaceClient) WriteRange(ctx context.Context, spreadsheetID, rangeName string, values [][]any) error {
	body := &sheets.ValueRange{Values: values}
	_, err := c.Sheets.Spreadsheets.Values.Update(spreadsheetID, rangeName, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("writing range '%s': %w", rangeName, err)
	}
	return nil
}

// AppendRows appends rows after the last row of data in the range.
func (c *WorkspaceClient) AppendRows(ctx context.Context, spreadsheetID, rangeName string, values [][]any) error {
	body := &sheets.ValueRange{Values: values}
	_, err := c.Sheets.Spreadsheets.Values.Append(spreadsheetID, rangeName, body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending to range '%s': %w", rangeName, err)
	}
	return nil
}
