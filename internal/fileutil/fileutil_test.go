package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.ts")
	dst := filepath.Join(dir, "out", "dst.ts")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureParent(dst); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if Exists(src) {
		t.Error("source still present after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Errorf("destination content = %q, err %v", data, err)
	}
}

func TestAppendFile(t *testing.T) {
	dir := t.TempDir()
	container := filepath.Join(dir, "container.ts")
	seg1 := filepath.Join(dir, "00001.ts")
	seg2 := filepath.Join(dir, "00002.ts")
	if err := os.WriteFile(seg1, []byte("aaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(seg2, []byte("bbb"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := AppendFile(container, seg1); err != nil {
		t.Fatalf("append first segment: %v", err)
	}
	n, err := AppendFile(container, seg2)
	if err != nil {
		t.Fatalf("append second segment: %v", err)
	}
	if n != 3 {
		t.Errorf("appended %d bytes, want 3", n)
	}

	data, err := os.ReadFile(container)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "aaabbb" {
		t.Errorf("container = %q, want ordered concatenation", data)
	}
}
