package importer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "mdacli/internal/errors"
)

// FileInfo represents information about a discovered report file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// reportExtensions are the file types the row sources understand.
var reportExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".xlsx": true,
	".xls":  true,
	".xlsm": true,
}

// DiscoverReportFiles lists the report files of a user-selected folder in
// name order, so repeated imports of the same folder process files in the
// same sequence. A missing or unreadable folder is the one fatal condition
// of an import.
func DiscoverReportFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.NewIOError("failed to read import folder", err).
			WithContext("path", dir)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !reportExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}
