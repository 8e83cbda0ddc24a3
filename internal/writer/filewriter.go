// Package writer provides sinks for generated reports.
package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink receives a finished report.
type Sink interface {
	WriteReport(buf []byte) error
}

// For returns a FileWriter for path, or a StreamWriter on stdout when path is empty.
func For(path string) Sink {
	if path == "" {
		return &StreamWriter{W: os.Stdout}
	}
	return &FileWriter{Path: path}
}

// FileWriter replaces the file at Path atomically.
type FileWriter struct {
	Path string
	Perm os.FileMode // 0644 when zero
}

// WriteReport writes buf to a temp file beside Path, syncs it and renames it
// into place. A reader never observes a partial report.
func (w *FileWriter) WriteReport(buf []byte) error {
	dir := filepath.Dir(w.Path)
	tmpFile, err := os.CreateTemp(dir, ".ntmalloc-report-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	if chmodErr := tmpFile.Chmod(perm); chmodErr != nil {
		return fmt.Errorf("chmod temp file: %w", chmodErr)
	}
	if _, writeErr := tmpFile.Write(buf); writeErr != nil {
		return fmt.Errorf("write temp file: %w", writeErr)
	}
	if syncErr := tmpFile.Sync(); syncErr != nil {
		return fmt.Errorf("sync temp file: %w", syncErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	tmpFile = nil

	if renameErr := os.Rename(tmpPath, w.Path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", renameErr)
	}
	return nil
}

// StreamWriter copies the report to W.
type StreamWriter struct {
	W io.Writer
}

// WriteReport writes buf to the stream in full.
func (w *StreamWriter) WriteReport(buf []byte) error {
	if _, err := w.W.Write(buf); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
