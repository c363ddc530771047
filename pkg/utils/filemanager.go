// =============================================================================
// pretix-ifirma - File Manager Utility
// =============================================================================
//
// This module provides the file handling shared by the commands:
//   - Output directory creation
//   - Atomic replacement of the intermediate invoice file
//   - Archival of processed order exports
//
// ARCHIVAL STRATEGY:
//   - The order export is moved to the archive directory after a successful
//     conversion, so the next run cannot convert the same orders twice
//   - Archived names carry a timestamp and a short UUID and never collide:
//       orders.csv -> orders_20250323_123611_1a2b3c4d.csv
//   - A failed conversion leaves the export where it is
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// archiveTimestampLayout is the timestamp format used in archived file names.
const archiveTimestampLayout = "20060102_150405"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager archives processed input files.
type FileManager struct {
	// ArchiveDir receives archived files.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2025/03/23/orders_20250323_123611_1a2b3c4d.csv
	UseTimestampSubdirs bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewFileManager creates a FileManager archiving into archiveDir.
func NewFileManager(archiveDir string) *FileManager {
	return &FileManager{
		ArchiveDir: archiveDir,
		Now:        time.Now,
	}
}

// =============================================================================
// ARCHIVAL
// =============================================================================

// ArchiveInputFile moves filePath into the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails. The original file is left in place.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if fm.ArchiveDir == "" {
		return "", fmt.Errorf("archive directory is not configured")
	}

	archivePath := fm.archivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; copy then delete.
		if err := copyFile(filePath, archivePath); err != nil {
			os.Remove(archivePath)
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// archivePath builds the destination of an archived file.
func (fm *FileManager) archivePath(filePath string) string {
	now := time.Now()
	if fm.Now != nil {
		now = fm.Now()
	}

	dir := fm.ArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	return filepath.Join(dir, ArchiveName(filepath.Base(filePath), now))
}

// ArchiveName returns "<name>_<timestamp>_<uuid8><ext>" for fileName.
//
// EXAMPLE:
//   fileName: "orders.csv"
//   output:   "orders_20250323_123611_1a2b3c4d.csv"
func ArchiveName(fileName string, now time.Time) string {
	ext := filepath.Ext(fileName)
	name := strings.TrimSuffix(fileName, ext)
	return fmt.Sprintf("%s_%s_%s%s", name, now.Format(archiveTimestampLayout), uuid.NewString()[:8], ext)
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never see a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
