package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/drive"
	"github.com/andresuchdata/replenish/internal/source"
	"github.com/andresuchdata/replenish/internal/storage"
)

// Workbook origins accepted by LoadWorkbook.
const (
	FromFile    = "file"
	FromStorage = "storage"
	FromDrive   = "drive"
)

// LoadWorkbook reads a catalog workbook from a local file, an object key in
// the configured bucket, or the newest .xlsx in a Google Drive folder. For
// drive, location overrides DRIVE_FOLDER_PATH.
func LoadWorkbook(ctx context.Context, cfg *config.Config, from, location string) (*source.Workbook, error) {
	switch from {
	case FromFile:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer f.Close()
		return source.LoadWorkbook(f)

	case FromStorage:
		objects, err := storage.NewMinioClient(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		rc, err := objects.OpenObject(ctx, location)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return source.LoadWorkbook(rc)

	case FromDrive:
		folder := location
		if folder == "" {
			folder = cfg.Drive.FolderPath
		}
		svc, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			return nil, err
		}
		wb, file, err := drive.NewFetcher(svc).LatestWorkbook(ctx, folder)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", file.Name).Msg("using drive workbook")
		return wb, nil
	}
	return nil, fmt.Errorf("unknown workbook source %q", from)
}
