package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterRotatesAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flightrec.log")

	rw, err := NewRotatingWriter(path, 50, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()
	rw.maxSize = 64 // shrink the threshold so the test stays small

	line := bytes.Repeat([]byte("x"), 40)
	for i := 0; i < 3; i++ {
		if _, err := rw.Write(line); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("current log missing: %v", err)
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("backup .1 missing after rotation: %v", err)
	}
}

func TestRotatingWriterKeepsMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flightrec.log")

	rw, err := NewRotatingWriter(path, 50, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()
	rw.maxSize = 16

	for i := 0; i < 10; i++ {
		if _, err := rw.Write(bytes.Repeat([]byte("y"), 12)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("backup .3 should not exist with maxBackups=2, stat err=%v", err)
	}
}

func TestRotatingWriterReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flightrec.log")

	rw, err := NewRotatingWriter(path, 50, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()

	if _, err := rw.Write([]byte("before\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Simulate an external logrotate: move the file away, then Reopen.
	if err := os.Rename(path, path+".moved"); err != nil {
		t.Fatal(err)
	}
	if err := rw.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if _, err := rw.Write([]byte("after\n")); err != nil {
		t.Fatalf("Write after Reopen: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read reopened log: %v", err)
	}
	if !bytes.Contains(data, []byte("after")) {
		t.Fatalf("reopened log missing new line: %q", data)
	}
}
