package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

func TestArchiveName(t *testing.T) {
	now := time.Date(2025, 3, 23, 12, 36, 11, 0, time.UTC)

	got := ArchiveName("orders.csv", now)
	if !regexp.MustCompile(`^orders_20250323_123611_[0-9a-f]{8}\.csv$`).MatchString(got) {
		t.Errorf("ArchiveName() = %q", got)
	}

	if ArchiveName("orders.csv", now) == got {
		t.Error("ArchiveName() returned the same name twice")
	}

	noExt := ArchiveName("export", now)
	if !regexp.MustCompile(`^export_20250323_123611_[0-9a-f]{8}$`).MatchString(noExt) {
		t.Errorf("ArchiveName(no ext) = %q", noExt)
	}
}

func TestArchiveInputFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "orders.csv")
	if err := os.WriteFile(src, []byte("a;b\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fm := NewFileManager(filepath.Join(dir, "archive"))
	fm.UseTimestampSubdirs = true
	fm.Now = func() time.Time { return time.Date(2025, 3, 23, 12, 0, 0, 0, time.UTC) }

	archived, err := fm.ArchiveInputFile(src)
	if err != nil {
		t.Fatalf("ArchiveInputFile() error = %v", err)
	}

	if FileExists(src) {
		t.Error("source file still exists")
	}
	if filepath.Dir(archived) != filepath.Join(dir, "archive", "2025", "03", "23") {
		t.Errorf("archived to %s", archived)
	}
	data, err := os.ReadFile(archived)
	if err != nil || string(data) != "a;b\n" {
		t.Errorf("archived content = %q, %v", data, err)
	}
}

func TestArchiveInputFileWithoutDir(t *testing.T) {
	if _, err := NewFileManager("").ArchiveInputFile("orders.csv"); err == nil {
		t.Fatal("ArchiveInputFile() error = nil, want missing archive dir error")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := EnsureParentDir(path); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}

	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "second" {
		t.Errorf("content = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	if FileExists(dir) {
		t.Error("FileExists(dir) = true")
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists(missing) = true")
	}
}
