package archive

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher matches archive paths against exclude patterns.
// `*` stays within one path segment and `**` spans any depth. A pattern
// without a slash is also tried against the base name.
type Matcher struct {
	full []glob.Glob
	base []glob.Glob
}

// NewMatcher compiles patterns. An invalid pattern is an error.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimPrefix(p, "/")
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		if strings.Contains(p, "/") {
			m.full = append(m.full, g)
		} else {
			m.base = append(m.base, g)
		}
	}
	return m, nil
}

// Match reports whether name (slash-separated, relative) is excluded.
func (m *Matcher) Match(name string) bool {
	if m == nil {
		return false
	}
	name = strings.TrimPrefix(name, "/")
	for _, g := range m.full {
		if g.Match(name) {
			return true
		}
	}
	base := path.Base(name)
	for _, g := range m.base {
		if g.Match(base) || g.Match(name) {
			return true
		}
	}
	return false
}
