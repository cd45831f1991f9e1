package fulltext

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeletedOverlay_SetIsVisibleBeforeFlush(t *testing.T) {
	// Given: a fresh, all-clear overlay
	dir := t.TempDir()
	path := filepath.Join(dir, "deleted_points.dat")
	require.NoError(t, CreateDeleted(path, 16))

	overlay, err := OpenDeleted(path, false)
	require.NoError(t, err)
	defer overlay.Close()

	alive, found := overlay.Get(3)
	require.True(t, found)
	assert.False(t, alive)

	// When: bit 3 is set, without flushing
	overlay.Set(3)

	// Then: Get observes it immediately via the pending buffer
	deleted, found := overlay.Get(3)
	require.True(t, found)
	assert.True(t, deleted)
}

func TestDeletedOverlay_OutOfRangeIsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deleted_points.dat")
	require.NoError(t, CreateDeleted(path, 8))

	overlay, err := OpenDeleted(path, false)
	require.NoError(t, err)
	defer overlay.Close()

	_, found := overlay.Get(100)
	assert.False(t, found)
}

func TestDeletedOverlay_SetOutOfRangePanics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deleted_points.dat")
	require.NoError(t, CreateDeleted(path, 8))

	overlay, err := OpenDeleted(path, false)
	require.NoError(t, err)
	defer overlay.Close()

	assert.Panics(t, func() { overlay.Set(100) })
}

func TestDeletedOverlay_FlushPersistsAndSurvivesReopen(t *testing.T) {
	// Given: an overlay with a staged deletion
	dir := t.TempDir()
	path := filepath.Join(dir, "deleted_points.dat")
	require.NoError(t, CreateDeleted(path, 16))

	overlay, err := OpenDeleted(path, false)
	require.NoError(t, err)
	overlay.Set(5)

	// When: flushed and closed
	require.NoError(t, overlay.Flush())
	require.NoError(t, overlay.Close())

	// Then: reopening sees the deletion via the mmap region itself
	reopened, err := OpenDeleted(path, false)
	require.NoError(t, err)
	defer reopened.Close()

	deleted, found := reopened.Get(5)
	require.True(t, found)
	assert.True(t, deleted)
	assert.Equal(t, 1, reopened.CountOnes())
}

func TestDeletedOverlay_IsDeleted_SatisfiesQuantizedContract(t *testing.T) {
	// Given: an overlay with one deleted point
	dir := t.TempDir()
	path := filepath.Join(dir, "deleted_points.dat")
	require.NoError(t, CreateDeleted(path, 10))

	overlay, err := OpenDeleted(path, false)
	require.NoError(t, err)
	defer overlay.Close()
	overlay.Set(3)

	// Then: IsDeleted reports true for the deleted id and for anything
	// out of range, matching the S5 scenario (check_point of a deleted id
	// and of an out-of-range id both false). The overlay's length comes
	// from the file size, so 10 bits round up to 16 and 16 is the first
	// out-of-range id.
	assert.True(t, overlay.IsDeleted(3))
	assert.True(t, overlay.IsDeleted(16))
	assert.False(t, overlay.IsDeleted(0))
}
