package batch

import (
	"path"
	"strings"
)

// ShouldExclude checks if a slash-separated relative path matches any of the
// exclude patterns. Patterns support:
//   - Simple glob patterns: *.tmp, *.bak
//   - Directory patterns: .git/, fixtures/
//   - Path patterns: build/*, **/drafts/*
func ShouldExclude(relativePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	normalizedPath := strings.TrimPrefix(relativePath, "./")
	baseName := path.Base(normalizedPath)

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		// Directory pattern: matches anything below that directory
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			if strings.HasPrefix(normalizedPath, dirPattern+"/") ||
				normalizedPath == dirPattern ||
				strings.Contains(normalizedPath, "/"+dirPattern+"/") {
				return true
			}
			continue
		}

		// **/pattern matches pattern at any depth
		if suffix, ok := strings.CutPrefix(pattern, "**/"); ok {
			if matchGlob(baseName, suffix) ||
				strings.HasSuffix(normalizedPath, "/"+suffix) ||
				normalizedPath == suffix ||
				matchGlobTail(normalizedPath, suffix) {
				return true
			}
			continue
		}

		if strings.Contains(pattern, "/") {
			// Pattern applies to the full path
			if matchGlob(normalizedPath, pattern) || matchGlobTail(normalizedPath, pattern) {
				return true
			}
		} else if matchGlob(baseName, pattern) {
			return true
		}
	}

	return false
}

// matchGlob performs glob matching, treating malformed patterns as no match
func matchGlob(name, pattern string) bool {
	matched, _ := path.Match(pattern, name)
	return matched
}

// matchGlobTail matches pattern against every trailing run of path
// components with the same depth as the pattern
func matchGlobTail(p, pattern string) bool {
	parts := strings.Split(p, "/")
	depth := strings.Count(pattern, "/") + 1
	for start := 0; start+depth <= len(parts); start++ {
		if matchGlob(strings.Join(parts[start:start+depth], "/"), pattern) {
			return true
		}
	}
	return false
}
