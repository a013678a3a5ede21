package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystem_RoundTrip(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.WriteFile("out/template.csv", []byte("event_id,ip\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := m.Open("out/./template.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	data, _ := io.ReadAll(f)
	if string(data) != "event_id,ip\n" {
		t.Errorf("data = %q", data)
	}
	info, _ := f.Stat()
	if info.Name() != "template.csv" || info.Size() != int64(len("event_id,ip\n")) {
		t.Errorf("Stat = %s/%d", info.Name(), info.Size())
	}
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	m := NewMemoryFileSystem()
	if _, err := m.Open("nope.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open err = %v, want ErrNotExist", err)
	}
	if _, err := m.Stat("nope.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat err = %v, want ErrNotExist", err)
	}
	if _, err := m.ReadFile("nope.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile err = %v, want ErrNotExist", err)
	}
}

func TestMemoryFileSystem_MkdirAll(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.MkdirAll("a/b/c", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, dir := range []string{"a", "a/b", "a/b/c"} {
		info, err := m.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Stat(%q) = %v, %v; want directory", dir, info, err)
		}
	}
}

func TestMemoryFileSystem_WriteCopiesInput(t *testing.T) {
	m := NewMemoryFileSystem()
	buf := []byte("abc")
	_ = m.WriteFile("x", buf, 0o600)
	buf[0] = 'z'

	got, _ := m.ReadFile("x")
	if string(got) != "abc" {
		t.Errorf("stored data mutated: %q", got)
	}
}

func TestOSFileSystem(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, "f.txt")
	if err := fsys.WriteFile(path, []byte("hi"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := fsys.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "hi" {
		t.Errorf("data = %q", data)
	}
	if info, err := fsys.Stat(path); err != nil || info.Size() != 2 {
		t.Errorf("Stat = %v, %v", info, err)
	}
}
