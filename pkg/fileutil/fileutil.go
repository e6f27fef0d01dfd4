package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
)

// GetFileExtension extracts the file extension from a path (without the
// leading dot), or "" if there is none.
func GetFileExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// EnsureDir creates dir (and any parents) if it doesn't already exist.
func EnsureDir(dir string) failure.ClassifiedError {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FileError{Message: err.Error(), Retryable: false, Cause: ErrCausePathError}
	}
	return nil
}

// WriteFileAtomic writes data to a temp file in the same directory as
// path, fsyncs it, then renames it over path. Rename within one
// filesystem is atomic, so a reader never observes a partially written
// file at path. This is how the seed crawler satisfies the manifest
// invariant that a downloaded_file.path never carries two different
// content_sha256 values within one run.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) failure.ClassifiedError {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &FileError{Message: err.Error(), Retryable: false, Cause: ErrCausePathError}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return classifyWriteErr(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return classifyWriteErr(err)
	}
	if err := tmp.Close(); err != nil {
		return classifyWriteErr(err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return &FileError{Message: err.Error(), Retryable: false, Cause: ErrCausePathError}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &FileError{Message: err.Error(), Retryable: false, Cause: ErrCausePathError}
	}
	return nil
}

func classifyWriteErr(err error) *FileError {
	if errors.Is(err, syscall.ENOSPC) {
		return &FileError{Message: err.Error(), Retryable: true, Cause: ErrCauseDiskFull}
	}
	return &FileError{Message: fmt.Sprintf("%v", err), Retryable: false, Cause: ErrCauseWriteError}
}
