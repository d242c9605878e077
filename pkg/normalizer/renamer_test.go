package normalizer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattchoo2/batchtxttochineseutf8/internal/testutil"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/script"
)

func newT2SRenamer(t *testing.T, dryRun bool) *normalizer.Renamer {
	t.Helper()
	conv, err := script.NewOpenCCConverter("t2s")
	require.NoError(t, err)
	return normalizer.NewRenamer(conv, testutil.DiscardLogHandler(), dryRun)
}

func TestRenameIfNeeded_RenamesTraditionalName(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "繁體中文.txt")
	testutil.CreateDummyFile(t, src, "content")

	r := newT2SRenamer(t, false)
	res := r.RenameIfNeeded(src)

	want := filepath.Join(dir, "繁体中文.txt")
	assert.Equal(t, want, res.Path)
	assert.Equal(t, src, res.OriginalPath)
	assert.True(t, res.Renamed)
	assert.False(t, res.Collision)

	_, err := os.Stat(want)
	assert.NoError(t, err, "renamed file should exist at the target path")
	_, err = os.Stat(src)
	assert.ErrorIs(t, err, os.ErrNotExist, "original path should be gone after rename")

	content, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content), "renaming must not alter content")
}

func TestRenameIfNeeded_NameAlreadyNormalized(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "简体.txt")
	testutil.CreateDummyFile(t, src, "content")

	r := newT2SRenamer(t, false)
	res := r.RenameIfNeeded(src)

	assert.Equal(t, src, res.Path)
	assert.Equal(t, src, res.OriginalPath)
	assert.False(t, res.Renamed)
	assert.False(t, res.Collision)
}

func TestRenameIfNeeded_AsciiNameUntouched(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "readme.txt")
	testutil.CreateDummyFile(t, src, "content")

	r := newT2SRenamer(t, false)
	res := r.RenameIfNeeded(src)

	assert.Equal(t, src, res.Path)
	assert.False(t, res.Renamed)
}

func TestRenameIfNeeded_TargetExists(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "舊檔.txt")
	existing := filepath.Join(dir, "旧档.txt")
	testutil.CreateDummyFile(t, src, "from traditional name")
	testutil.CreateDummyFile(t, existing, "already here")

	r := newT2SRenamer(t, false)
	res := r.RenameIfNeeded(src)

	assert.Equal(t, src, res.Path, "a collision keeps the file at its original path")
	assert.Equal(t, src, res.OriginalPath)
	assert.True(t, res.Collision)
	assert.False(t, res.Renamed)

	fromContent, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "from traditional name", string(fromContent))
	existingContent, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(existingContent), "the existing file must never be overwritten")
}

func TestRenameIfNeeded_DryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "繁體.txt")
	testutil.CreateDummyFile(t, src, "content")

	r := newT2SRenamer(t, true)
	res := r.RenameIfNeeded(src)

	assert.Equal(t, src, res.Path, "dry run keeps the file readable at its original path")
	assert.Equal(t, src, res.OriginalPath)
	assert.True(t, res.Renamed, "dry run still reports the rename that would happen")

	_, err := os.Stat(src)
	assert.NoError(t, err, "dry run must not move the file")
	_, err = os.Stat(filepath.Join(dir, "繁体.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRenameIfNeeded_ConversionError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "some檔.txt")
	testutil.CreateDummyFile(t, src, "content")

	conv := &testutil.MockConverter{}
	conv.On("ConvertFilename", "some檔.txt").Return("", assert.AnError).Once()

	r := normalizer.NewRenamer(conv, testutil.DiscardLogHandler(), false)
	res := r.RenameIfNeeded(src)

	assert.Equal(t, src, res.Path)
	assert.False(t, res.Renamed)
	assert.False(t, res.Collision, "a conversion error keeps the original name without flagging a collision")
	conv.AssertExpectations(t)

	_, err := os.Stat(src)
	assert.NoError(t, err)
}
