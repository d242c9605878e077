package normalizer_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattchoo2/batchtxttochineseutf8/internal/testutil"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
)

// walkTree runs a walk over opts.RootPath and returns the dispatched paths
// relative to the root, sorted.
func walkTree(t *testing.T, opts *normalizer.Options) []string {
	t.Helper()
	workerChan := make(chan string, 64)
	w, err := normalizer.NewWalker(opts, workerChan, testutil.DiscardLogHandler())
	require.NoError(t, err)

	var dispatched []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for path := range workerChan {
			dispatched = append(dispatched, path)
		}
	}()

	require.NoError(t, w.StartWalk(context.Background()))
	<-done

	rels := make([]string, 0, len(dispatched))
	for _, p := range dispatched {
		rel, relErr := filepath.Rel(opts.RootPath, p)
		require.NoError(t, relErr)
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)
	return rels
}

func TestWalker_DispatchesCandidatesOnly(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.txt"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "B.TXT"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "c.md"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "~$a.txt"), "owner lock")
	testutil.CreateDummyFile(t, filepath.Join(dir, "sub", "d.txt"), "x")

	opts := &normalizer.Options{RootPath: dir}
	got := walkTree(t, opts)

	assert.Equal(t, []string{"B.TXT", "a.txt", "sub/d.txt"}, got,
		"extension matching is case-insensitive and temp-marked files are excluded")
}

func TestWalker_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.txt"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "c.md"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "d.log"), "x")

	opts := &normalizer.Options{RootPath: dir, Extensions: []string{"md", ".TXT"}}
	got := walkTree(t, opts)

	assert.Equal(t, []string{"a.txt", "c.md"}, got,
		"configured extensions are normalized to lowercase dotted form")
}

func TestWalker_HonorsIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, normalizer.IgnoreFileName), "skip/\nsecret.txt\n")
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.txt"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "secret.txt"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "skip", "b.txt"), "x")

	hooks := &testutil.RecordingHooks{}
	opts := &normalizer.Options{RootPath: dir, EventHooks: hooks}
	got := walkTree(t, opts)

	assert.Equal(t, []string{"a.txt"}, got)

	discovered := hooks.Discovered()
	sort.Strings(discovered)
	assert.Equal(t, []string{"a.txt"}, discovered,
		"ignored candidates are excluded before discovery, like non-candidates")

	assert.Empty(t, hooks.StatusesFor("secret.txt"),
		"ignored files get no status updates, so display counters track dispatched files only")
}

func TestWalker_IgnoreFileNegation(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, normalizer.IgnoreFileName), "*.txt\n!keep.txt\n")
	testutil.CreateDummyFile(t, filepath.Join(dir, "drop.txt"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "keep.txt"), "x")

	opts := &normalizer.Options{RootPath: dir}
	got := walkTree(t, opts)

	assert.Equal(t, []string{"keep.txt"}, got, "a negated pattern re-includes a previously ignored path")
}

func TestWalker_ConfigIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "old-notes.txt"), "x")
	testutil.CreateDummyFile(t, filepath.Join(dir, "new.txt"), "x")

	opts := &normalizer.Options{RootPath: dir, IgnorePatterns: []string{"old-*.txt"}}
	got := walkTree(t, opts)

	assert.Equal(t, []string{"new.txt"}, got)
}

func TestWalker_SkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.txt")
	testutil.CreateDummyFile(t, real, "x")
	require.NoError(t, os.Symlink(real, filepath.Join(dir, "link.txt")))

	opts := &normalizer.Options{RootPath: dir}
	got := walkTree(t, opts)

	assert.Equal(t, []string{"real.txt"}, got, "symlinks are never followed or dispatched")
}

func TestWalker_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.txt"), "x")

	workerChan := make(chan string, 4)
	w, err := normalizer.NewWalker(&normalizer.Options{RootPath: dir}, workerChan, testutil.DiscardLogHandler())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	walkErr := w.StartWalk(ctx)
	assert.ErrorIs(t, walkErr, context.Canceled)

	// The channel is closed regardless, so consumers always drain.
	var dispatched []string
	for path := range workerChan {
		dispatched = append(dispatched, path)
	}
	assert.Empty(t, dispatched)
}
