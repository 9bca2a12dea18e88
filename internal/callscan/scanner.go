// Package callscan detects static invocations of a function inside function files.
//
// Matching is textual: a line references a call id when, after trimming, it is
// not a comment and contains the id as a substring. Longer identifiers that
// contain the id count as references and dynamically built calls are missed;
// no command grammar is modelled.
package callscan

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"mcreport/internal/datapack"
	"mcreport/pkg/logging"
)

const (
	commentPrefix = "#"
	maxLineSize   = 1024 * 1024
)

// Scanner decides whether a function file invokes a call id.
type Scanner interface {
	References(id datapack.CallID, file string) bool
}

// LineReferences reports whether a single raw line references id.
func LineReferences(id datapack.CallID, line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, commentPrefix) {
		return false
	}
	return strings.Contains(trimmed, string(id))
}

// ReaderReferences streams r line by line and stops at the first reference.
func ReaderReferences(id datapack.CallID, r io.Reader) (bool, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		if LineReferences(id, sc.Text()) {
			return true, nil
		}
	}
	return false, sc.Err()
}

// LineScanner reads the candidate file on every call.
type LineScanner struct{}

// NewLineScanner returns a streaming Scanner.
func NewLineScanner() *LineScanner {
	return &LineScanner{}
}

// References implements Scanner. Unreadable files never reference anything.
func (LineScanner) References(id datapack.CallID, file string) bool {
	f, err := os.Open(file)
	if err != nil {
		logging.Warn("Scanner", "cannot read %s, treating as no reference: %v", file, err)
		return false
	}
	defer f.Close()

	found, err := ReaderReferences(id, f)
	if err != nil {
		logging.Warn("Scanner", "stopped reading %s early: %v", file, err)
	}
	return found
}

// CachedScanner keeps the non-comment lines of every file it has read, so an
// analysis that asks about many ids reads each file once. It is safe for
// concurrent use.
type CachedScanner struct {
	mu    sync.Mutex
	files map[string][]string
}

// NewCachedScanner returns an empty CachedScanner.
func NewCachedScanner() *CachedScanner {
	return &CachedScanner{files: make(map[string][]string)}
}

// References implements Scanner.
func (c *CachedScanner) References(id datapack.CallID, file string) bool {
	for _, line := range c.lines(file) {
		if strings.Contains(line, string(id)) {
			return true
		}
	}
	return false
}

func (c *CachedScanner) lines(file string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lines, ok := c.files[file]; ok {
		return lines
	}

	lines, err := readCodeLines(file)
	if err != nil {
		logging.Warn("Scanner", "cannot read %s, treating as no reference: %v", file, err)
	}
	c.files[file] = lines
	return lines
}

// Forget drops every cached file.
func (c *CachedScanner) Forget() {
	c.mu.Lock()
	c.files = make(map[string][]string)
	c.mu.Unlock()
}

func readCodeLines(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		trimmed := strings.TrimSpace(sc.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines, sc.Err()
}
