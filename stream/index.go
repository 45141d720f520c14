package stream

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Entry is one retained line of an index file.
type Entry struct {
	Timestamp string
	Path      string
	// Line is the 1-based line number in the index file.
	Line int
}

// ParseIndex reads "<timestamp> <relative_path> [ignored...]" lines from r. Blank lines and
// lines starting with '#' are skipped. Of the remaining lines every stride-th one is kept,
// starting with the first; a stride below 2 keeps them all.
func ParseIndex(r io.Reader, stride int) ([]Entry, error) {
	if stride < 1 {
		stride = 1
	}
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	dataLines := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.Errorf("index line %d: expected <timestamp> <path>, got %q", lineNum, line)
		}
		dataLines++
		if (dataLines-1)%stride != 0 {
			continue
		}
		entries = append(entries, Entry{Timestamp: fields[0], Path: fields[1], Line: lineNum})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading index after line %d", lineNum)
	}
	return entries, nil
}

// ReadIndexFile parses the index file at path.
func ReadIndexFile(path string, stride int) ([]Entry, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open index file")
	}
	defer f.Close() //nolint:errcheck
	entries, err := ParseIndex(f, stride)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse index file %q", path)
	}
	return entries, nil
}
