// Package compare builds the row-level detail view for one folder pair:
// every unique file name on either side, with per-side size, modification
// time, and duplicate marking.
package compare

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/foldermatch/foldermatch/internal/cache"
	"github.com/foldermatch/foldermatch/internal/types"
)

// BuildFileComparison returns one row per unique file name present in
// either folder. Direct file lists come from the cache store; an uncached
// folder contributes an empty list rather than an error. A file that
// cannot be stat'ed still produces its row, with that side marked
// unavailable. Rows are sorted by primary name ascending.
func BuildFileComparison(leftFolder, rightFolder string, duplicateFiles []types.FileMatch, store *cache.Store) []types.FileDetailRow {
	dupNames := duplicateNameLookup(leftFolder, rightFolder, duplicateFiles)

	rows := make(map[string]*types.FileDetailRow)
	fill := func(folder string, pick func(*types.FileDetailRow) *types.FileDetailSide) {
		for _, path := range store.FolderFiles(folder) {
			name := filepath.Base(path)
			key := strings.ToLower(name)
			row, ok := rows[key]
			if !ok {
				row = &types.FileDetailRow{Name: name}
				rows[key] = row
			}
			side := pick(row)
			side.Present = true
			side.Path = path

			if md, ok := store.GetFileMetadata(path); ok {
				side.Available = true
				side.Size = md.Size
				mod := md.Modified
				side.Modified = &mod
			} else if fi, err := os.Stat(path); err == nil {
				side.Available = true
				side.Size = fi.Size()
				mod := fi.ModTime()
				side.Modified = &mod
			}
			// A failed stat leaves Available false: the row still
			// shows, the side reads "not available".
		}
	}
	fill(leftFolder, func(r *types.FileDetailRow) *types.FileDetailSide { return &r.Left })
	fill(rightFolder, func(r *types.FileDetailRow) *types.FileDetailSide { return &r.Right })

	out := make([]types.FileDetailRow, 0, len(rows))
	for key, row := range rows {
		row.IsDuplicate = dupNames[key]
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// duplicateNameLookup collects the lowercased file names participating in
// a duplicate pair between the two folders.
func duplicateNameLookup(leftFolder, rightFolder string, duplicateFiles []types.FileMatch) map[string]bool {
	lk := cache.NormalizeKey(leftFolder)
	rk := cache.NormalizeKey(rightFolder)

	names := make(map[string]bool, len(duplicateFiles))
	for _, m := range duplicateFiles {
		for _, path := range []string{m.PathA, m.PathB} {
			dir := cache.NormalizeKey(filepath.Dir(path))
			if dir == lk || dir == rk {
				names[strings.ToLower(filepath.Base(path))] = true
			}
		}
	}
	return names
}

// FilterFileDetails returns all rows when showUniqueFiles is true, or only
// the duplicate rows when false. Pure function, no I/O.
func FilterFileDetails(rows []types.FileDetailRow, showUniqueFiles bool) []types.FileDetailRow {
	if showUniqueFiles {
		return rows
	}
	out := make([]types.FileDetailRow, 0, len(rows))
	for _, r := range rows {
		if r.IsDuplicate {
			out = append(out, r)
		}
	}
	return out
}
