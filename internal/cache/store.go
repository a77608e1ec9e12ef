// Package cache provides the shared, thread-safe store of everything the
// pipeline has already computed from disk: per-folder direct file lists,
// per-file content hashes, and per-file stat metadata.
//
// The store is the only state shared across workers. All mutation goes
// through its methods; callers never take external locks. Path keys are
// case-insensitive because the target filesystems are case-preserving but
// case-insensitive.
package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/foldermatch/foldermatch/internal/types"
)

// NormalizeKey canonicalizes a path for use as a cache key: cleaned,
// separator-normalized, lowercased, trailing separator stripped.
func NormalizeKey(path string) string {
	p := filepath.Clean(filepath.ToSlash(path))
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		p = "/"
	}
	return strings.ToLower(p)
}

// Store holds the three cache maps behind a single RWMutex. The folder
// map's values keep the original-cased paths for display; only the keys
// are normalized.
type Store struct {
	mu      sync.RWMutex
	folders map[string]types.FolderInfo
	hashes  map[string]hashEntry
	meta    map[string]types.FileMetadata
}

// hashEntry keeps the original-cased path next to the hash so exports and
// metadata rebuilds can reach the file on case-sensitive filesystems too.
type hashEntry struct {
	path string
	hash string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		folders: make(map[string]types.FolderInfo),
		hashes:  make(map[string]hashEntry),
		meta:    make(map[string]types.FileMetadata),
	}
}

// IsFolderCached reports whether folder info exists for the path.
func (s *Store) IsFolderCached(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.folders[NormalizeKey(path)]
	return ok
}

// CacheFolderInfo stores the folder's direct-contents record.
func (s *Store) CacheFolderInfo(path string, info types.FolderInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[NormalizeKey(path)] = info
}

// GetFolderInfo returns the cached record, if any.
func (s *Store) GetFolderInfo(path string) (types.FolderInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.folders[NormalizeKey(path)]
	return info, ok
}

// CacheFileHash stores a file's hex-encoded content hash.
func (s *Store) CacheFileHash(path, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[NormalizeKey(path)] = hashEntry{path: path, hash: hash}
}

// GetFileHash returns the cached hash, if any.
func (s *Store) GetFileHash(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.hashes[NormalizeKey(path)]
	return e.hash, ok
}

// CacheFileMetadata stores a file's stat record.
func (s *Store) CacheFileMetadata(path string, md types.FileMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[NormalizeKey(path)] = md
}

// GetFileMetadata returns the cached stat record, if any.
func (s *Store) GetFileMetadata(path string) (types.FileMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.meta[NormalizeKey(path)]
	return md, ok
}

// RemoveFolder removes the folder, every cached descendant folder, and all
// file hashes and metadata rooted under it. The cascade happens under one
// write lock, so a concurrent reader never observes a half-removed subtree.
func (s *Store) RemoveFolder(path string) {
	key := NormalizeKey(path)
	prefix := key + "/"

	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.folders {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(s.folders, k)
		}
	}
	for k := range s.hashes {
		if strings.HasPrefix(k, prefix) {
			delete(s.hashes, k)
		}
	}
	for k := range s.meta {
		if strings.HasPrefix(k, prefix) {
			delete(s.meta, k)
		}
	}
}

// Clear removes everything; used before a full reload.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = make(map[string]types.FolderInfo)
	s.hashes = make(map[string]hashEntry)
	s.meta = make(map[string]types.FileMetadata)
}

// AllFolderInfo returns a copy of every cached folder record.
func (s *Store) AllFolderInfo() map[string]types.FolderInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.FolderInfo, len(s.folders))
	for k, v := range s.folders {
		out[k] = v
	}
	return out
}

// AllFileHashes returns a copy of every cached path-to-hash entry, keyed
// by the original-cased path.
func (s *Store) AllFileHashes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes))
	for _, e := range s.hashes {
		out[e.path] = e.hash
	}
	return out
}

// FolderFiles returns the folder's direct file list, or an empty slice if
// the folder is uncached. The returned slice is a copy.
func (s *Store) FolderFiles(path string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.folders[NormalizeKey(path)]
	if !ok {
		return []string{}
	}
	return append([]string(nil), info.Files...)
}

// FolderSize returns the folder's cached total byte size, or 0 if uncached.
func (s *Store) FolderSize(path string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.folders[NormalizeKey(path)]
	if !ok {
		return 0
	}
	return info.TotalSize
}

// FolderCount returns the number of cached folders.
func (s *Store) FolderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.folders)
}

// FileHashCount returns the number of cached file hashes.
func (s *Store) FileHashCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashes)
}

// FileMetadataCount returns the number of cached stat records.
func (s *Store) FileMetadataCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meta)
}

// LoadProjectData clears the store and repopulates it from a snapshot.
// For every file path that still exists on disk a metadata entry is
// rebuilt; paths that are gone or unreadable are skipped silently. This is
// the only store operation that touches the filesystem.
func (s *Store) LoadProjectData(data types.ProjectData) {
	s.mu.Lock()
	s.folders = make(map[string]types.FolderInfo, len(data.FolderInfoCache))
	s.hashes = make(map[string]hashEntry, len(data.FileHashCache))
	s.meta = make(map[string]types.FileMetadata)

	for folder, snap := range data.FolderInfoCache {
		s.folders[NormalizeKey(folder)] = types.FolderInfo{
			Path:           folder,
			Files:          append([]string(nil), snap.Files...),
			TotalSize:      snap.TotalSize,
			LatestModified: snap.LatestModificationDate,
		}
	}
	// Legacy files carry folder listings only in folderFileCache.
	for folder, files := range data.FolderFileCache {
		key := NormalizeKey(folder)
		if _, ok := s.folders[key]; !ok {
			s.folders[key] = types.FolderInfo{
				Path:  folder,
				Files: append([]string(nil), files...),
			}
		}
	}
	for path, hash := range data.FileHashCache {
		s.hashes[NormalizeKey(path)] = hashEntry{path: path, hash: hash}
	}
	s.mu.Unlock()

	// Metadata rebuild stats outside the lock; each entry is committed
	// individually so a slow disk never starves readers.
	for path := range data.FileHashCache {
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		s.CacheFileMetadata(path, types.FileMetadata{
			Path:     path,
			Name:     filepath.Base(path),
			Size:     fi.Size(),
			Modified: fi.ModTime(),
		})
	}
}

// ExportProjectData snapshots the current maps plus the given scan-folder
// list. The snapshot owns its maps; later store mutations do not leak into
// it.
func (s *Store) ExportProjectData(scanFolders []string) types.ProjectData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := types.ProjectData{
		ScanFolders:     append([]string(nil), scanFolders...),
		FolderFileCache: make(map[string][]string, len(s.folders)),
		FileHashCache:   make(map[string]string, len(s.hashes)),
		FolderInfoCache: make(map[string]types.FolderInfoSnapshot, len(s.folders)),
	}
	for _, info := range s.folders {
		files := append([]string(nil), info.Files...)
		data.FolderFileCache[info.Path] = files
		data.FolderInfoCache[info.Path] = types.FolderInfoSnapshot{
			Files:                  files,
			TotalSize:              info.TotalSize,
			LatestModificationDate: info.LatestModified,
		}
	}
	for _, e := range s.hashes {
		data.FileHashCache[e.path] = e.hash
	}
	return data
}
