package supervisor

import (
	"os"
	"strings"
)

// tailReadLimit bounds how much of a log file one poll reads.
const tailReadLimit = 64 * 1024

// tailLines returns up to n of the most recent lines of the file at
// path, reading at most tailReadLimit bytes from the end. A missing
// file yields no lines and no error - the agent just hasn't written
// anything yet.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	offset := int64(0)
	if size > tailReadLimit {
		offset = size - tailReadLimit
	}

	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if offset > 0 && len(lines) > 0 {
		// First line may be a partial - drop it.
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// readFrom returns the file content written at or after the byte
// offset, split into lines. Used by the fix verifier to look only at
// output produced after a fix started.
func readFrom(path string, offset int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if offset >= info.Size() {
		return nil, nil
	}

	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(string(buf), "\n"), "\n"), nil
}

// fileSize returns the current size of the file, or 0 if it does not
// exist.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
