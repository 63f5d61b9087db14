package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/source"
)

// Files is the subset of the Drive API the fetcher needs.
type Files interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// Fetcher pulls the newest catalog workbook out of a Drive folder.
type Fetcher struct {
	files Files
}

func NewFetcher(files Files) *Fetcher {
	return &Fetcher{files: files}
}

// LatestWorkbook downloads and parses the most recently modified .xlsx file
// under folderPath.
func (f *Fetcher) LatestWorkbook(ctx context.Context, folderPath string) (*source.Workbook, *File, error) {
	folderID, err := f.files.FindFolderByPath(ctx, folderPath)
	if err != nil {
		return nil, nil, err
	}

	files, err := f.files.ListFiles(ctx, folderID)
	if err != nil {
		return nil, nil, err
	}

	latest := newestWorkbook(files)
	if latest == nil {
		return nil, nil, fmt.Errorf("no .xlsx workbook in drive folder %q", folderPath)
	}

	var buf bytes.Buffer
	if err := f.files.DownloadFile(ctx, latest.ID, &buf); err != nil {
		return nil, nil, fmt.Errorf("failed to download %s: %w", latest.Name, err)
	}

	wb, err := source.LoadWorkbook(&buf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", latest.Name, err)
	}

	log.Info().
		Str("file", latest.Name).
		Str("modified", latest.ModifiedTime).
		Msg("loaded catalog workbook from drive")
	return wb, latest, nil
}

// newestWorkbook picks the xlsx with the latest RFC3339 modified time. The
// timestamps compare lexically.
func newestWorkbook(files []*File) *File {
	var latest *File
	for _, file := range files {
		if strings.ToLower(filepath.Ext(file.Name)) != ".xlsx" {
			continue
		}
		if latest == nil || file.ModifiedTime > latest.ModifiedTime {
			latest = file
		}
	}
	return latest
}
