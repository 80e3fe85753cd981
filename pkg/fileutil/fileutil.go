// Package fileutil provides file utilities for corpus output with tmp+mv semantics.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eunmann/urlcorpus/pkg/logging"
)

// TmpSuffix marks in-progress files written by WriteTmpThenMove.
const TmpSuffix = ".urlcorpus.tmp"

// Exists returns true if the file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsNonEmpty returns true if the file exists and has non-zero size.
func IsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// TmpPath returns the temporary path WriteTmpThenMove uses for outPath.
// An empty tmpDir places the file next to outPath so the rename stays on
// one filesystem.
func TmpPath(tmpDir, outPath string) string {
	if tmpDir == "" {
		tmpDir = filepath.Dir(outPath)
	}
	return filepath.Join(tmpDir, filepath.Base(outPath)+TmpSuffix)
}

// WriteTmpThenMove writes to a temporary file then atomically moves it to the final path.
// The writeFunc receives the temporary path and should write the complete file.
// On success, the file is moved to outPath atomically.
func WriteTmpThenMove(tmpDir, outPath string, writeFunc func(tmpPath string) error) error {
	tmpPath := TmpPath(tmpDir, outPath)

	if err := os.MkdirAll(filepath.Dir(tmpPath), 0755); err != nil {
		return fmt.Errorf("create tmp dir: %w", err)
	}

	if err := writeFunc(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}

	return nil
}

// syncFile opens, syncs, and closes a file.
func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = f.Sync()
	f.Close()
	return err
}

// CleanupTmpFiles removes leftover WriteTmpThenMove files in dir (not recursive).
func CleanupTmpFiles(dir string) error {
	log := logging.L()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var removed int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), TmpSuffix) {
			continue
		}
		if rmErr := os.Remove(filepath.Join(dir, e.Name())); rmErr == nil {
			removed++
		}
	}

	if removed > 0 {
		log.Debug().Int("files_removed", removed).Str("dir", dir).Msg("cleaned up tmp files")
	}
	return nil
}
