package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/vidpage/vidpage/internal/errors"
)

// ExportOutput describes a file written by WriteExport.
type ExportOutput struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// WriteExport writes data to dest atomically. If dest is empty, or names an
// existing directory, filename is used (joined onto the directory).
// The bytes land in a temp file next to the destination and are renamed
// into place, so a failed write never leaves a truncated file behind.
func WriteExport(dest, filename string, data []byte) (*ExportOutput, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return nil, errors.NewValidation("export filename must be a plain file name")
	}

	path := dest
	if path == "" {
		path = filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, filename)
	}

	tempPath := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())
	file, err := openFileNoFollow(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.As(err) != nil {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	success := false
	defer func() {
		if file != nil {
			_ = file.Close()
		}
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewValidation("cannot write to symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewValidation("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{Path: path, Bytes: len(data)}, nil
}
