package supervisor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTailLines(t *testing.T) {
	path := writeLog(t, "one", "two", "three", "four")

	got, err := tailLines(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "three" || got[1] != "four" {
		t.Errorf("tailLines = %v, want [three four]", got)
	}
}

func TestTailLinesShortFile(t *testing.T) {
	path := writeLog(t, "only")

	got, err := tailLines(path, 40)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "only" {
		t.Errorf("tailLines = %v, want [only]", got)
	}
}

func TestTailLinesMissingFile(t *testing.T) {
	got, err := tailLines(filepath.Join(t.TempDir(), "nope.log"), 5)
	if err != nil {
		t.Fatalf("missing log should not error: %v", err)
	}
	if got != nil {
		t.Errorf("tailLines = %v, want nil", got)
	}
}

func TestReadFrom(t *testing.T) {
	path := writeLog(t, "before the fix")
	offset := fileSize(path)
	if offset == 0 {
		t.Fatal("fileSize reported an empty log")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("after one\nafter two\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := readFrom(path, offset)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "after one" || got[1] != "after two" {
		t.Errorf("readFrom = %v, want the appended lines only", got)
	}
}

func TestReadFromNoNewOutput(t *testing.T) {
	path := writeLog(t, "stale")
	got, err := readFrom(path, fileSize(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("readFrom = %v, want no lines", got)
	}
}
