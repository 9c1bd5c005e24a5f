package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/fileutil"
)

func TestWriteFileAtomicCreatesParentDirs(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "dir", "image.jpg")
	payload := []byte("payload")

	if err := fileutil.WriteFileAtomic(target, payload, 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected contents: %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, found %d entries", len(entries))
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := fileutil.RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists failed: %v", err)
	}
	if err := fileutil.RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists on missing file failed: %v", err)
	}
	if err := fileutil.RemoveIfExists(""); err != nil {
		t.Fatalf("RemoveIfExists on empty path failed: %v", err)
	}
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	size, err := fileutil.FileSize(path)
	if err != nil {
		t.Fatalf("FileSize failed: %v", err)
	}
	if size != 5 {
		t.Fatalf("expected size 5, got %d", size)
	}

	if _, err := fileutil.FileSize(dir); err == nil {
		t.Fatal("expected error for directory")
	}
}
