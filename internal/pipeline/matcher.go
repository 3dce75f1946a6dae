package pipeline

import "strings"

// Matchers is the static path-matcher list the host platform consults
// to decide which requests enter the pipeline at all. Each pattern is
// either an exact path, a prefix ending in "/", or a glob with a
// single trailing "*". The list is configuration, not logic, and must
// be non-empty; config validation enforces that.
type Matchers []string

// Match reports whether the path is routed through the pipeline.
func (m Matchers) Match(path string) bool {
	for _, pat := range m {
		switch {
		case strings.HasSuffix(pat, "*"):
			if strings.HasPrefix(path, strings.TrimSuffix(pat, "*")) {
				return true
			}
		case strings.HasSuffix(pat, "/"):
			if strings.HasPrefix(path, pat) || path == strings.TrimSuffix(pat, "/") {
				return true
			}
		default:
			if path == pat {
				return true
			}
		}
	}
	return false
}
