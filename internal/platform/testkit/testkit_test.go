package testkit

import (
	"path/filepath"
	"testing"
)

func TestMustPanic(t *testing.T) {
	t.Parallel()

	MustPanic(t, func() {
		panic("boom")
	})
}

func TestMustContain(t *testing.T) {
	t.Parallel()

	MustContain(t, "READ,abc\nUPDATE,def", "UPDATE,def")
}

func TestWriteFileReadLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := WriteFile(t, dir, "nested/trace.csv", []byte("a,b\nc,d\n"))
	if p != filepath.Join(dir, "nested", "trace.csv") {
		t.Fatalf("WriteFile path = %q", p)
	}
	lines := ReadLines(t, p)
	if len(lines) != 2 || lines[0] != "a,b" || lines[1] != "c,d" {
		t.Fatalf("ReadLines = %#v", lines)
	}
	MustNotExist(t, filepath.Join(dir, "missing.txt"))
}
