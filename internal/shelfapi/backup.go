package shelfapi

import (
	"context"
	"io"

	"github.com/florianilch/shelf/internal/apiclient"
)

// ExportBackup downloads the user's library as a JSON document.
func (a *API) ExportBackup(ctx context.Context) (*apiclient.Blob, error) {
	return a.client.GetBlob(ctx, "/backup/export")
}

// ImportBackup uploads a backup produced by ExportBackup.
func (a *API) ImportBackup(ctx context.Context, filename string, backup io.Reader) (*BackupResult, error) {
	form := apiclient.NewFormData().File("data", filename, backup)

	var res BackupResult
	if err := a.client.PostFormData(ctx, "/backup/import", form, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
