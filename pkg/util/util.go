package util

import (
	"path/filepath"
	"sort"
	"strings"
)

// MatchesIgnorePattern checks whether a relative path matches a
// gitignore-style pattern. This is a simplified matcher built on
// filepath.Match; it does not cover every .gitignore edge case (complex **
// interactions differ from git's implementation).
//
// patternBaseAbsPath is the directory the pattern was defined in (the ignore
// file's directory, or the walker root for config patterns). Non-rooted
// patterns match at any depth below that base; rooted patterns (leading "/")
// match only relative to it. Paths outside the pattern base never match.
func MatchesIgnorePattern(pattern, patternBaseAbsPath, walkerBaseAbsPath, pathToMatchRel string, isRooted bool) bool {
	pattern = filepath.ToSlash(pattern)
	pathToMatchRel = filepath.ToSlash(pathToMatchRel)
	if pattern == "" || pathToMatchRel == "" || pathToMatchRel == "." {
		return false
	}

	pathToMatchAbs := filepath.Join(walkerBaseAbsPath, pathToMatchRel)
	pathRelToPatternBase, err := filepath.Rel(patternBaseAbsPath, pathToMatchAbs)
	if err != nil {
		return false
	}
	pathRelToPatternBase = filepath.ToSlash(pathRelToPatternBase)
	if pathRelToPatternBase == ".." || strings.HasPrefix(pathRelToPatternBase, "../") {
		// A pattern never reaches above the directory it was defined in.
		return false
	}

	if match, _ := filepath.Match(pattern, pathRelToPatternBase); match {
		return true
	}

	if !isRooted {
		// Non-rooted patterns match any trailing segment sequence below
		// the pattern base.
		parts := strings.Split(pathRelToPatternBase, "/")
		for i := 1; i < len(parts); i++ {
			subPath := strings.Join(parts[i:], "/")
			if match, _ := filepath.Match(pattern, subPath); match {
				return true
			}
		}
	}

	return false
}

// NormalizeExtensions canonicalizes a list of file extensions for
// case-insensitive comparison: lowercased, whitespace trimmed, a leading dot
// ensured, duplicates and empties dropped. The result is sorted.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" || normalized == "." {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		seen[normalized] = true
	}
	out := make([]string, 0, len(seen))
	for ext := range seen {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
