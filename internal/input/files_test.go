package input

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.md")
	if err := os.WriteFile(path, []byte("# Heading\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSource(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "# Heading\n" {
		t.Errorf("ReadSource = %q", got)
	}
}

func TestReadSourceMissingFile(t *testing.T) {
	if _, err := ReadSource(filepath.Join(t.TempDir(), "nope.md")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandPath("~/notes.md"); got != filepath.Join(home, "notes.md") {
		t.Errorf("expandPath = %q", got)
	}
	if got := expandPath("/abs/notes.md"); got != "/abs/notes.md" {
		t.Errorf("expandPath = %q", got)
	}
}
