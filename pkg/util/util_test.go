package util_test

import (
	"path/filepath"
	"testing"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesIgnorePattern(t *testing.T) {
	walkerBaseAbs, err := filepath.Abs(filepath.FromSlash("/home/user/texts"))
	require.NoError(t, err)
	subDirAbs := filepath.Join(walkerBaseAbs, "novels")

	testCases := []struct {
		name               string
		pattern            string
		patternBaseAbsPath string
		pathToMatchRel     string
		isRooted           bool
		expectedMatch      bool
	}{
		{
			name:               "exact file from config",
			pattern:            "notes.txt",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     "notes.txt",
			expectedMatch:      true,
		},
		{
			name:               "glob matches deep file",
			pattern:            "*.bak",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     "novels/chapter1.bak",
			expectedMatch:      true,
		},
		{
			name:               "directory pattern matches the directory",
			pattern:            "drafts",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     "drafts",
			expectedMatch:      true,
		},
		{
			name:               "no match",
			pattern:            "*.bak",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     "chapter1.txt",
			expectedMatch:      false,
		},
		{
			name:               "rooted pattern matches at base",
			pattern:            "todo.txt",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     "todo.txt",
			isRooted:           true,
			expectedMatch:      true,
		},
		{
			name:               "rooted pattern ignores deeper file",
			pattern:            "todo.txt",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     "novels/todo.txt",
			isRooted:           true,
			expectedMatch:      false,
		},
		{
			name:               "subdir ignore file matches inside its scope",
			pattern:            "appendix.txt",
			patternBaseAbsPath: subDirAbs,
			pathToMatchRel:     "novels/appendix.txt",
			expectedMatch:      true,
		},
		{
			name:               "subdir ignore file never matches outside its scope",
			pattern:            "appendix.txt",
			patternBaseAbsPath: subDirAbs,
			pathToMatchRel:     "appendix.txt",
			expectedMatch:      false,
		},
		{
			name:               "double star prefix matches deep file",
			pattern:            "**/old.txt",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     "a/b/old.txt",
			expectedMatch:      true,
		},
		{
			name:               "empty pattern",
			pattern:            "",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     "chapter1.txt",
			expectedMatch:      false,
		},
		{
			name:               "dot path",
			pattern:            "*.txt",
			patternBaseAbsPath: walkerBaseAbs,
			pathToMatchRel:     ".",
			expectedMatch:      false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			match := util.MatchesIgnorePattern(tc.pattern, tc.patternBaseAbsPath, walkerBaseAbs, tc.pathToMatchRel, tc.isRooted)
			assert.Equal(t, tc.expectedMatch, match)
		})
	}
}

func TestNormalizeExtensions(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "mixed case and missing dots",
			input:    []string{"TXT", ".Text", "md"},
			expected: []string{".md", ".text", ".txt"},
		},
		{
			name:     "duplicates collapse",
			input:    []string{".txt", "txt", " .TXT "},
			expected: []string{".txt"},
		},
		{
			name:     "empties dropped",
			input:    []string{"", " ", "."},
			expected: []string{},
		},
		{
			name:     "nil input",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, util.NormalizeExtensions(tc.input))
		})
	}
}
