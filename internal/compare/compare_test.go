package compare

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldermatch/foldermatch/internal/cache"
	"github.com/foldermatch/foldermatch/internal/types"
)

// seedFolder writes files on disk and registers the folder in the store
// without metadata, so sizes come from live stats.
func seedFolder(t *testing.T, store *cache.Store, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	info := types.FolderInfo{Path: dir}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		info.Files = append(info.Files, path)
		info.TotalSize += int64(len(content))
	}
	store.CacheFolderInfo(dir, info)
}

func TestBuildFileComparisonUnionRows(t *testing.T) {
	root := t.TempDir()
	store := cache.NewStore()
	left := filepath.Join(root, "left")
	right := filepath.Join(root, "right")

	seedFolder(t, store, left, map[string]string{
		"shared.txt": "duplicate bytes",
		"only-l.txt": "left only",
	})
	seedFolder(t, store, right, map[string]string{
		"shared.txt": "duplicate bytes",
		"only-r.txt": "right only",
	})

	dups := []types.FileMatch{{
		PathA: filepath.Join(left, "shared.txt"),
		PathB: filepath.Join(right, "shared.txt"),
	}}

	rows := BuildFileComparison(left, right, dups, store)
	require.Len(t, rows, 3, "one row per unique name across both sides")

	byName := make(map[string]types.FileDetailRow)
	for _, r := range rows {
		byName[r.Name] = r
	}

	shared := byName["shared.txt"]
	assert.True(t, shared.IsDuplicate)
	assert.True(t, shared.Left.Present)
	assert.True(t, shared.Right.Present)
	assert.True(t, shared.Left.Available)
	assert.Equal(t, int64(len("duplicate bytes")), shared.Left.Size)
	assert.NotNil(t, shared.Left.Modified)

	onlyL := byName["only-l.txt"]
	assert.False(t, onlyL.IsDuplicate)
	assert.True(t, onlyL.Left.Present)
	assert.False(t, onlyL.Right.Present)

	onlyR := byName["only-r.txt"]
	assert.False(t, onlyR.Left.Present)
	assert.True(t, onlyR.Right.Present)
}

func TestBuildFileComparisonSortedByName(t *testing.T) {
	root := t.TempDir()
	store := cache.NewStore()
	left := filepath.Join(root, "left")
	right := filepath.Join(root, "right")

	seedFolder(t, store, left, map[string]string{"Zeta.txt": "z", "alpha.txt": "a"})
	seedFolder(t, store, right, map[string]string{"Mid.txt": "m"})

	rows := BuildFileComparison(left, right, nil, store)
	require.Len(t, rows, 3)
	assert.Equal(t, "alpha.txt", rows[0].Name)
	assert.Equal(t, "Mid.txt", rows[1].Name)
	assert.Equal(t, "Zeta.txt", rows[2].Name)
}

func TestBuildFileComparisonUnavailableSide(t *testing.T) {
	store := cache.NewStore()
	// The folder is registered but its file never existed on disk and has
	// no cached metadata, so the stat fails.
	ghost := "/ghost/left"
	store.CacheFolderInfo(ghost, types.FolderInfo{
		Path:  ghost,
		Files: []string{filepath.Join(ghost, "gone.txt")},
	})

	rows := BuildFileComparison(ghost, "/ghost/right", nil, store)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Left.Present)
	assert.False(t, rows[0].Left.Available, "failed stat keeps the row but marks the side unavailable")
	assert.False(t, rows[0].Right.Present)
}

func TestBuildFileComparisonPrefersCachedMetadata(t *testing.T) {
	store := cache.NewStore()
	path := "/ghost/left/meta.txt"
	store.CacheFolderInfo("/ghost/left", types.FolderInfo{Path: "/ghost/left", Files: []string{path}})
	store.CacheFileMetadata(path, types.FileMetadata{Path: path, Name: "meta.txt", Size: 77})

	rows := BuildFileComparison("/ghost/left", "/ghost/right", nil, store)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Left.Available, "cached metadata serves the side without touching disk")
	assert.Equal(t, int64(77), rows[0].Left.Size)
}

func TestBuildFileComparisonUncachedFolderIsEmpty(t *testing.T) {
	store := cache.NewStore()
	rows := BuildFileComparison("/never/scanned", "/also/never", nil, store)
	assert.Empty(t, rows)
}

func TestDuplicateMarkingIgnoresForeignPairs(t *testing.T) {
	root := t.TempDir()
	store := cache.NewStore()
	left := filepath.Join(root, "left")
	right := filepath.Join(root, "right")
	seedFolder(t, store, left, map[string]string{"f.txt": "x"})
	seedFolder(t, store, right, map[string]string{"f.txt": "x"})

	// A pair between two unrelated folders must not mark rows here.
	foreign := []types.FileMatch{{PathA: "/elsewhere/a/f.txt", PathB: "/elsewhere/b/f.txt"}}
	rows := BuildFileComparison(left, right, foreign, store)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsDuplicate)
}

func TestFilterFileDetails(t *testing.T) {
	rows := []types.FileDetailRow{
		{Name: "dup.txt", IsDuplicate: true},
		{Name: "unique.txt"},
		{Name: "dup2.txt", IsDuplicate: true},
	}

	all := FilterFileDetails(rows, true)
	assert.Len(t, all, 3)

	dups := FilterFileDetails(rows, false)
	require.Len(t, dups, 2)
	for _, r := range dups {
		assert.True(t, r.IsDuplicate)
	}

	assert.NotNil(t, FilterFileDetails(nil, false))
}
