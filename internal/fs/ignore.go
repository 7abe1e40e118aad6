package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
)

// IgnoreFileName is the per-user ignore file read from the base directory.
const IgnoreFileName = "ignore"

type ignoreRule struct {
	glob     string
	anchored bool // glob contains '/': matched against the whole entry path
}

// IgnoreMatcher decides which archive entries are left out of an import.
// Globs without '/' match any single path element (so "__MACOSX" drops the
// whole tree). Globs with '/' match the entry path from the archive root.
// Entry paths always use forward slashes; a leading '/' is ignored.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw glob lines; blanks and '#' comments are dropped.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	var rules []ignoreRule
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		rules = append(rules, ignoreRule{glob: line, anchored: strings.Contains(line, "/")})
	}
	return &IgnoreMatcher{rules: rules}
}

// Len returns the number of usable rules.
func (m *IgnoreMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Match reports whether the entry itself is ignored, looking only at its
// own base name and full path.
func (m *IgnoreMatcher) Match(entry string) bool {
	entry = strings.Trim(entry, "/")
	if m.Len() == 0 || entry == "" {
		return false
	}
	return m.match(entry, path.Base(entry))
}

// MatchTree reports whether the entry or any directory above it is ignored.
func (m *IgnoreMatcher) MatchTree(entry string) bool {
	entry = strings.Trim(entry, "/")
	if m.Len() == 0 || entry == "" {
		return false
	}

	elems := strings.Split(entry, "/")
	for i := range elems {
		if m.match(strings.Join(elems[:i+1], "/"), elems[i]) {
			return true
		}
	}
	return false
}

func (m *IgnoreMatcher) match(full, base string) bool {
	for _, r := range m.rules {
		subject := base
		if r.anchored {
			subject = full
		}
		// Malformed globs never match.
		if ok, err := path.Match(r.glob, subject); err == nil && ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile returns the raw lines of an ignore file.
// A missing file yields nil and no error.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
