// Package types contains the shared value types for the duplicate-folder
// detection pipeline: cached folder facts, file matches, folder matches,
// progress reporting, and the serialized project snapshot.
package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FolderInfo describes one folder's direct (non-recursive) contents.
// It is created when the folder is first scanned and is immutable in the
// cache until the folder is invalidated or removed.
type FolderInfo struct {
	// Path is the folder's absolute path as observed on disk
	Path string `json:"path"`

	// Files are the absolute paths of the folder's direct children.
	// Subfolder contents are never included.
	Files []string `json:"files"`

	// TotalSize is the byte sum of all direct files
	TotalSize int64 `json:"totalSize"`

	// LatestModified is the most recent last-write time among direct
	// files; nil when the folder holds no readable files
	LatestModified *time.Time `json:"latestModificationDate"`
}

// FileCount returns the number of direct files.
func (f *FolderInfo) FileCount() int {
	return len(f.Files)
}

// FileMetadata caches one file's stat results so repeated analysis passes
// do not hit the filesystem again.
type FileMetadata struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// FileMatch is an unordered pair of file paths verified to have identical
// content. Two matches holding the same pair in either order are equal.
type FileMatch struct {
	PathA string `json:"pathA"`
	PathB string `json:"pathB"`
}

// Key returns an order-independent, case-insensitive identity for the pair.
func (m FileMatch) Key() string {
	a := strings.ToLower(m.PathA)
	b := strings.ToLower(m.PathB)
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Equal reports whether two matches name the same unordered pair.
func (m FileMatch) Equal(other FileMatch) bool {
	return m.Key() == other.Key()
}

// Folders returns the parent directories of both sides.
func (m FileMatch) Folders() (string, string) {
	return filepath.Dir(m.PathA), filepath.Dir(m.PathB)
}

// FolderMatch is one folder pair that shares at least one verified
// duplicate file, produced once per analysis run and immutable thereafter.
type FolderMatch struct {
	LeftFolder  string `json:"leftFolder"`
	RightFolder string `json:"rightFolder"`

	// DuplicateFiles are the verified content-identical pairs between
	// the two folders
	DuplicateFiles []FileMatch `json:"duplicateFiles"`

	// SimilarityPercentage is the Jaccard similarity of the two direct
	// file sets, in [0, 100]: duplicates / (left + right - duplicates)
	SimilarityPercentage float64 `json:"similarityPercentage"`

	// FolderSizeBytes is the combined direct size of both folders
	FolderSizeBytes int64 `json:"folderSizeBytes"`

	// LatestModificationDate is the newest direct-file mtime across
	// both folders, when known
	LatestModificationDate *time.Time `json:"latestModificationDate"`
}

// Validate checks the structural invariants of a folder match.
func (m *FolderMatch) Validate() error {
	if strings.EqualFold(m.LeftFolder, m.RightFolder) {
		return fmt.Errorf("folder match must pair two distinct folders (got %q twice)", m.LeftFolder)
	}
	if m.SimilarityPercentage < 0 || m.SimilarityPercentage > 100 {
		return fmt.Errorf("similarity must be within [0, 100] (got %.2f)", m.SimilarityPercentage)
	}
	if len(m.DuplicateFiles) == 0 && m.SimilarityPercentage != 0 {
		return fmt.Errorf("similarity must be 0 when no duplicate files are present (got %.2f)", m.SimilarityPercentage)
	}
	return nil
}

// FileDetailSide holds one side of a comparison row. Present is false when
// the folder has no file of that name; Available is false when the file
// exists but could not be stat'ed.
type FileDetailSide struct {
	Present   bool       `json:"present"`
	Available bool       `json:"available"`
	Path      string     `json:"path,omitempty"`
	Size      int64      `json:"size"`
	Modified  *time.Time `json:"modified,omitempty"`
}

// FileDetailRow is one row of the per-pair detail comparison: a unique
// file name with its left/right occurrences.
type FileDetailRow struct {
	Name        string         `json:"name"`
	IsDuplicate bool           `json:"isDuplicate"`
	Left        FileDetailSide `json:"left"`
	Right       FileDetailSide `json:"right"`
}

// FolderInfoSnapshot is the serialized form of FolderInfo inside a project
// file. The path is the map key, so it is not repeated here.
type FolderInfoSnapshot struct {
	Files                  []string   `json:"files"`
	TotalSize              int64      `json:"totalSize"`
	LatestModificationDate *time.Time `json:"latestModificationDate"`
}

// ProjectData is a transient export/import snapshot of the cache store plus
// the scan-folder list. The cache store exclusively owns its live maps;
// ProjectData never aliases them.
type ProjectData struct {
	ScanFolders     []string                      `json:"scanFolders"`
	FolderFileCache map[string][]string           `json:"folderFileCache"`
	FileHashCache   map[string]string             `json:"fileHashCache"`
	FolderInfoCache map[string]FolderInfoSnapshot `json:"folderInfoCache"`
	CreatedDate     time.Time                     `json:"createdDate"`
	Version         string                        `json:"version"`
	ApplicationName string                        `json:"applicationName,omitempty"`
	SnapshotID      string                        `json:"snapshotId,omitempty"`
}

// IsEmpty reports whether the snapshot carries no restorable state at all.
func (p *ProjectData) IsEmpty() bool {
	return len(p.ScanFolders) == 0 &&
		len(p.FolderFileCache) == 0 &&
		len(p.FileHashCache) == 0 &&
		len(p.FolderInfoCache) == 0
}
