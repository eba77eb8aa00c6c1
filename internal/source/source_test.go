package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestOpen_ReadAndSeek(t *testing.T) {
	p := writeFile(t, "a.trk", []byte("0123456789"))
	f, err := Open(p)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer f.Close()

	if f.Size() != 10 || f.Path() != p {
		t.Fatalf("size=%d path=%q", f.Size(), f.Path())
	}
	if _, err := f.Seek(6, io.SeekStart); err != nil {
		t.Fatalf("Seek() error: %v", err)
	}
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if string(got) != "6789" {
		t.Fatalf("got %q want 6789", got)
	}
}

func TestOpen_EmptyFile(t *testing.T) {
	f, err := Open(writeFile(t, "empty.trk", nil))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	var b [1]byte
	if _, err := f.Read(b[:]); err != io.EOF {
		t.Fatalf("Read() err=%v want EOF", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.trk")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestClose_Twice(t *testing.T) {
	f, err := Open(writeFile(t, "b.trk", []byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	var b [1]byte
	if n, _ := f.Read(b[:]); n != 0 {
		t.Fatalf("read %d bytes after Close", n)
	}
}
