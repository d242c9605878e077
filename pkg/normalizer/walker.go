package normalizer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/util"
)

// Walker traverses the root directory, filters entries down to candidate
// text files, applies ignore rules, and dispatches eligible absolute paths
// to the worker pool. Files that fail the extension or temp-marker filter,
// or that match an ignore pattern, are excluded silently; they are not
// candidates and never appear in the report.
type Walker struct {
	opts                 *Options
	workerChan           chan<- string
	hooks                Hooks
	logger               *slog.Logger
	ignoreMatcher        *ignoreMatcher
	extensions           map[string]bool
	tempFilePrefix       string
	dispatchWarnDuration time.Duration
}

// NewWalker creates a new Walker instance.
func NewWalker(opts *Options, workerChan chan<- string, loggerHandler slog.Handler) (*Walker, error) {
	logger := slog.New(loggerHandler).With(slog.String("component", "walker"))

	ignoreMatcher, err := newIgnoreMatcher(opts.RootPath, opts.IgnorePatterns, logger)
	if err != nil {
		logger.Error("Failed to initialize ignore pattern matcher", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize ignore patterns: %w", err)
	}
	logger.Debug("Ignore patterns loaded", slog.Int("count", ignoreMatcher.patternCount()))

	exts := util.NormalizeExtensions(opts.Extensions)
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	extensions := make(map[string]bool, len(exts))
	for _, ext := range exts {
		extensions[ext] = true
	}

	tempFilePrefix := opts.TempFilePrefix
	if tempFilePrefix == "" {
		tempFilePrefix = DefaultTempFilePrefix
	}

	dispatchWarnDuration := opts.DispatchWarnThreshold
	if dispatchWarnDuration <= 0 {
		dispatchWarnDuration = 1 * time.Second
	}

	hooks := opts.EventHooks
	if hooks == nil {
		hooks = &NoOpHooks{}
	}

	return &Walker{
		opts:                 opts,
		workerChan:           workerChan,
		hooks:                hooks,
		logger:               logger,
		ignoreMatcher:        ignoreMatcher,
		extensions:           extensions,
		tempFilePrefix:       tempFilePrefix,
		dispatchWarnDuration: dispatchWarnDuration,
	}, nil
}

// StartWalk begins the directory traversal and closes the worker channel
// when traversal ends, successfully or not.
func (w *Walker) StartWalk(ctx context.Context) error {
	w.logger.Info("Starting directory walk", slog.String("path", w.opts.RootPath))
	walkErr := filepath.WalkDir(w.opts.RootPath, w.walkFunc(ctx))
	close(w.workerChan)
	w.logger.Debug("Worker channel closed")
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			w.logger.Info("Directory walk cancelled", slog.String("reason", walkErr.Error()))
			return walkErr
		}
		w.logger.Error("Directory walk encountered an error during traversal", slog.String("error", walkErr.Error()))
		return fmt.Errorf("directory walk failed: %w", walkErr)
	}
	w.logger.Info("Directory walk completed")
	return nil
}

// walkFunc returns the WalkDirFunc used by filepath.WalkDir.
func (w *Walker) walkFunc(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Error accessing path during walk", slog.String("path", path), slog.String("error", err.Error()))
			if path == w.opts.RootPath && os.IsPermission(err) {
				return fmt.Errorf("permission denied reading root directory %q: %w", path, err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.Type()&fs.ModeSymlink != 0 {
			w.logger.Debug("Skipping symbolic link", slog.String("path", path))
			return nil
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			w.logger.Warn("Could not get absolute path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		relativePath, err := filepath.Rel(w.opts.RootPath, absPath)
		if err != nil {
			w.logger.Warn("Could not calculate relative path", slog.String("path", absPath), slog.String("root", w.opts.RootPath), slog.String("error", err.Error()))
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)
		if relativePath == "." {
			return nil
		}

		if d.IsDir() {
			if w.ignoreMatcher.Match(relativePath, true) {
				w.logger.Debug("Directory ignored",
					slog.String("path", relativePath),
					slog.String("pattern", w.ignoreMatcher.LastMatchPattern(relativePath, true)))
				return filepath.SkipDir
			}
			return nil
		}

		if !w.isCandidate(d.Name()) {
			// Not reported: non-candidates are outside the tool's scope.
			w.logger.Debug("Path is not a candidate file", slog.String("path", relativePath))
			return nil
		}

		// Ignored files are excluded as silently as non-candidates. They are
		// never report entries, so surfacing them through hooks would let
		// display counters drift from the report totals.
		if w.ignoreMatcher.Match(relativePath, false) {
			w.logger.Debug("Path ignored",
				slog.String("path", relativePath),
				slog.String("pattern", w.ignoreMatcher.LastMatchPattern(relativePath, false)))
			return nil
		}

		if hookErr := w.hooks.OnFileDiscovered(relativePath); hookErr != nil {
			w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", relativePath), slog.String("error", hookErr.Error()))
		}

		w.logger.Debug("Dispatching file to worker channel", slog.String("path", relativePath))
		timer := time.NewTimer(w.dispatchWarnDuration)
		defer timer.Stop()
		select {
		case w.workerChan <- absPath:
		case <-timer.C:
			w.logger.Warn("Worker channel dispatch blocked, workers might be busy or pool too small",
				slog.String("path", relativePath), slog.Duration("threshold", w.dispatchWarnDuration))
			select {
			case w.workerChan <- absPath:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
}

// isCandidate applies the extension allowlist and the temp-marker prefix
// filter to a file's base name.
func (w *Walker) isCandidate(name string) bool {
	if w.tempFilePrefix != "" && strings.HasPrefix(name, w.tempFilePrefix) {
		return false
	}
	return w.extensions[strings.ToLower(filepath.Ext(name))]
}

// --- ignoreMatcher ---

type ignoreMatcher struct {
	patterns []ignorePattern
	basePath string // Absolute path to the root directory
	logger   *slog.Logger
}

type ignorePattern struct {
	pattern     string // Cleaned pattern string for matching (using '/' separators)
	origPattern string // Original pattern string for reporting
	negated     bool
	isDirOnly   bool
	isRooted    bool   // Pattern started with '/' relative to its base
	baseAbsPath string // Absolute path of the dir containing the defining ignore file or the root path
}

// newIgnoreMatcher creates an ignoreMatcher by loading patterns from the
// nearest ignore file (walking up from rootPath) and from configuration.
func newIgnoreMatcher(rootPath string, configPatterns []string, logger *slog.Logger) (*ignoreMatcher, error) {
	absRootPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path for root: %w", err)
	}
	matcher := &ignoreMatcher{
		patterns: make([]ignorePattern, 0),
		basePath: absRootPath,
		logger:   logger.With(slog.String("component", "ignoreMatcher")),
	}

	ignoreFilePath, err := findIgnoreFile(absRootPath)
	if err != nil {
		matcher.logger.Warn("Error searching for ignore file", slog.String("error", err.Error()))
	}
	if ignoreFilePath != "" {
		matcher.logger.Debug("Loading ignore patterns from file", slog.String("path", ignoreFilePath))
		filePatterns, err := loadPatternsFromFile(ignoreFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore file %s: %w", ignoreFilePath, err)
		}
		matcher.addPatterns(filePatterns, filepath.Dir(ignoreFilePath))
		matcher.logger.Debug("Loaded patterns from ignore file", slog.Int("count", len(filePatterns)))
	}

	// Patterns from config/flags are relative to the root path.
	matcher.addPatterns(configPatterns, absRootPath)
	return matcher, nil
}

// findIgnoreFile walks up from startPath looking for the ignore file.
func findIgnoreFile(absStartPath string) (string, error) {
	currentPath := absStartPath
	for {
		potentialPath := filepath.Join(currentPath, IgnoreFileName)
		if _, err := os.Stat(potentialPath); err == nil {
			return potentialPath, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("error checking for ignore file at %s: %w", potentialPath, err)
		}
		parent := filepath.Dir(currentPath)
		if parent == currentPath || parent == "" {
			break
		}
		currentPath = parent
	}
	return "", nil
}

// loadPatternsFromFile reads an ignore file and returns its non-comment
// lines.
func loadPatternsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open ignore file %s: %w", filePath, err)
	}
	defer file.Close()
	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", filePath, err)
	}
	return patterns, nil
}

// addPatterns processes raw string patterns into ignorePattern structs.
func (m *ignoreMatcher) addPatterns(rawPatterns []string, baseAbsPath string) {
	for _, rawPattern := range rawPatterns {
		p := ignorePattern{origPattern: rawPattern, baseAbsPath: baseAbsPath}
		trimmedPattern := rawPattern
		if strings.HasPrefix(trimmedPattern, "!") {
			p.negated = true
			trimmedPattern = trimmedPattern[1:]
		}
		trimmedPattern = strings.TrimSpace(trimmedPattern)
		if strings.HasPrefix(trimmedPattern, "/") {
			p.isRooted = true
			trimmedPattern = strings.TrimPrefix(trimmedPattern, "/")
		}
		if strings.HasSuffix(trimmedPattern, "/") {
			p.isDirOnly = true
			trimmedPattern = strings.TrimSuffix(trimmedPattern, "/")
		}
		p.pattern = filepath.ToSlash(trimmedPattern)
		if p.pattern == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
}

// Match checks whether a path relative to the walker's root matches the
// ignore patterns. Later patterns win, so a negated pattern can re-include
// a previously ignored path.
func (m *ignoreMatcher) Match(relativePath string, isDir bool) bool {
	lastMatchResult := false
	for _, p := range m.patterns {
		if util.MatchesIgnorePattern(p.pattern, p.baseAbsPath, m.basePath, relativePath, p.isRooted) {
			if p.isDirOnly && !isDir {
				continue
			}
			lastMatchResult = !p.negated
		}
	}
	return lastMatchResult
}

// LastMatchPattern returns the original pattern string that determined the
// final match decision, for log and status messages.
func (m *ignoreMatcher) LastMatchPattern(relativePath string, isDir bool) string {
	lastPattern := ""
	lastMatchResult := false
	for _, p := range m.patterns {
		if util.MatchesIgnorePattern(p.pattern, p.baseAbsPath, m.basePath, relativePath, p.isRooted) {
			if p.isDirOnly && !isDir {
				continue
			}
			lastPattern = p.origPattern
			lastMatchResult = !p.negated
		}
	}
	if lastMatchResult {
		return lastPattern
	}
	return ""
}

// patternCount returns the number of processed patterns.
func (m *ignoreMatcher) patternCount() int {
	return len(m.patterns)
}
