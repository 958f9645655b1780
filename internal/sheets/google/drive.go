package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// findSpreadsheet looks a spreadsheet up by exact name among the files the
// service account can see. The most recently modified match wins.
func findSpreadsheet(ctx context.Context, drv *gdrive.Service, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMimeType)
	resp, err := drv.Files.List().
		Q(q).
		Fields("files(id, name)").
		OrderBy("modifiedTime desc").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search spreadsheet %q: %w", name, err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("%w: %q is missing or not shared with the service account", ErrSpreadsheetNotFound, name)
	}
	if len(resp.Files) > 1 {
		slog.WarnContext(ctx, "Several spreadsheets share the ledger name, using the newest", "name", name, "matches", len(resp.Files))
	}
	return resp.Files[0].Id, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
