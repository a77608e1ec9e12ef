package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/foldermatch/foldermatch/internal/types"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"case insensitive", "/Data/Photos", "/data/photos", true},
		{"trailing separator", "/data/photos/", "/data/photos", true},
		{"distinct folders", "/data/photos", "/data/photos2", false},
		{"redundant segments", "/data/./photos", "/data/photos", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.a) == NormalizeKey(tt.b); got != tt.same {
				t.Errorf("NormalizeKey(%q) vs (%q): same=%v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}

func TestCaseInsensitiveLookups(t *testing.T) {
	s := NewStore()

	s.CacheFileHash("/Backup/A/F.txt", "abc123")
	if h, ok := s.GetFileHash("/backup/a/f.txt"); !ok || h != "abc123" {
		t.Fatalf("GetFileHash with different case = (%q, %v), want (abc123, true)", h, ok)
	}

	s.CacheFolderInfo("/Backup/A", types.FolderInfo{Path: "/Backup/A", Files: []string{"/Backup/A/F.txt"}})
	if !s.IsFolderCached("/BACKUP/a") {
		t.Fatal("IsFolderCached should match regardless of case")
	}

	s.CacheFileMetadata("/Backup/A/F.txt", types.FileMetadata{Path: "/Backup/A/F.txt", Size: 42})
	if md, ok := s.GetFileMetadata("/backup/a/f.TXT"); !ok || md.Size != 42 {
		t.Fatalf("GetFileMetadata with different case = (%+v, %v)", md, ok)
	}
}

func TestRemoveFolderCascade(t *testing.T) {
	s := NewStore()

	s.CacheFolderInfo("/data/parent", types.FolderInfo{Path: "/data/parent"})
	s.CacheFolderInfo("/data/parent/child", types.FolderInfo{Path: "/data/parent/child"})
	s.CacheFolderInfo("/data/parent/child/grand", types.FolderInfo{Path: "/data/parent/child/grand"})
	// Sibling whose name shares the removed folder's prefix must survive.
	s.CacheFolderInfo("/data/parentx", types.FolderInfo{Path: "/data/parentx"})

	s.CacheFileHash("/data/parent/a.txt", "h1")
	s.CacheFileHash("/data/parent/child/b.txt", "h2")
	s.CacheFileHash("/data/parentx/c.txt", "h3")
	s.CacheFileMetadata("/data/parent/a.txt", types.FileMetadata{Path: "/data/parent/a.txt"})
	s.CacheFileMetadata("/data/parentx/c.txt", types.FileMetadata{Path: "/data/parentx/c.txt"})

	s.RemoveFolder("/data/parent")

	for _, folder := range []string{"/data/parent", "/data/parent/child", "/data/parent/child/grand"} {
		if s.IsFolderCached(folder) {
			t.Errorf("folder %s should have been removed", folder)
		}
	}
	if !s.IsFolderCached("/data/parentx") {
		t.Error("sibling /data/parentx should not have been removed")
	}
	if _, ok := s.GetFileHash("/data/parent/a.txt"); ok {
		t.Error("hash under removed folder should be gone")
	}
	if _, ok := s.GetFileHash("/data/parent/child/b.txt"); ok {
		t.Error("hash under removed descendant should be gone")
	}
	if _, ok := s.GetFileHash("/data/parentx/c.txt"); !ok {
		t.Error("sibling hash should survive the cascade")
	}
	if _, ok := s.GetFileMetadata("/data/parentx/c.txt"); !ok {
		t.Error("sibling metadata should survive the cascade")
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := NewStore()

	const writers = 10
	const keysPerWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keysPerWriter; i++ {
				folder := fmt.Sprintf("/data/w%d/folder%d", w, i)
				s.CacheFolderInfo(folder, types.FolderInfo{Path: folder})
				file := fmt.Sprintf("/data/w%d/folder%d/file.bin", w, i)
				s.CacheFileHash(file, fmt.Sprintf("hash-%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	if got := s.FolderCount(); got != writers*keysPerWriter {
		t.Errorf("FolderCount = %d, want %d (lost updates)", got, writers*keysPerWriter)
	}
	if got := s.FileHashCount(); got != writers*keysPerWriter {
		t.Errorf("FileHashCount = %d, want %d (lost updates)", got, writers*keysPerWriter)
	}
}

func TestConcurrentReadersDuringRemoval(t *testing.T) {
	s := NewStore()
	for i := 0; i < 100; i++ {
		s.CacheFolderInfo(fmt.Sprintf("/tree/sub%d", i), types.FolderInfo{})
		s.CacheFileHash(fmt.Sprintf("/tree/sub%d/f.txt", i), "h")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.RemoveFolder("/tree")
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.IsFolderCached(fmt.Sprintf("/tree/sub%d", i))
			s.FolderFiles(fmt.Sprintf("/tree/sub%d", i))
		}
	}()
	wg.Wait()

	for i := 0; i < 100; i++ {
		if s.IsFolderCached(fmt.Sprintf("/tree/sub%d", i)) {
			t.Fatalf("subtree entry %d survived removal", i)
		}
	}
}

func TestFolderFilesUncached(t *testing.T) {
	s := NewStore()
	if files := s.FolderFiles("/nowhere"); files == nil || len(files) != 0 {
		t.Errorf("FolderFiles on uncached folder = %v, want empty slice", files)
	}
	if size := s.FolderSize("/nowhere"); size != 0 {
		t.Errorf("FolderSize on uncached folder = %d, want 0", size)
	}
}

func TestProjectDataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fileA := filepath.Join(dir, "a.txt")
	fileB := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(fileA, []byte("alpha"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fileB, []byte("beta"), 0644); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	s := NewStore()
	s.CacheFolderInfo(dir, types.FolderInfo{
		Path:           dir,
		Files:          []string{fileA, fileB},
		TotalSize:      9,
		LatestModified: &now,
	})
	s.CacheFileHash(fileA, "hash-a")
	s.CacheFileHash(fileB, "hash-b")
	s.CacheFileMetadata(fileA, types.FileMetadata{Path: fileA, Name: "a.txt", Size: 5})
	s.CacheFileMetadata(fileB, types.FileMetadata{Path: fileB, Name: "b.txt", Size: 4})

	wantFolders := s.FolderCount()
	wantHashes := s.FileHashCount()
	wantMeta := s.FileMetadataCount()

	data := s.ExportProjectData([]string{dir})
	s.Clear()
	if s.FolderCount() != 0 || s.FileHashCount() != 0 {
		t.Fatal("Clear left entries behind")
	}
	s.LoadProjectData(data)

	if got := s.FolderCount(); got != wantFolders {
		t.Errorf("folders after round trip = %d, want %d", got, wantFolders)
	}
	if got := s.FileHashCount(); got != wantHashes {
		t.Errorf("hashes after round trip = %d, want %d", got, wantHashes)
	}
	if got := s.FileMetadataCount(); got != wantMeta {
		t.Errorf("metadata after round trip = %d, want %d", got, wantMeta)
	}

	if h, ok := s.GetFileHash(fileA); !ok || h != "hash-a" {
		t.Errorf("GetFileHash(%s) = (%q, %v) after round trip", fileA, h, ok)
	}
	info, ok := s.GetFolderInfo(dir)
	if !ok || info.TotalSize != 9 || len(info.Files) != 2 {
		t.Errorf("GetFolderInfo after round trip = (%+v, %v)", info, ok)
	}
}

func TestLoadProjectDataSkipsMissingFiles(t *testing.T) {
	s := NewStore()
	data := types.ProjectData{
		FileHashCache: map[string]string{
			"/no/such/file.bin": "deadbeef",
		},
		FolderInfoCache: map[string]types.FolderInfoSnapshot{
			"/no/such": {Files: []string{"/no/such/file.bin"}},
		},
	}

	s.LoadProjectData(data)

	if got := s.FileHashCount(); got != 1 {
		t.Errorf("hash entries = %d, want 1 (hash survives even for missing file)", got)
	}
	if got := s.FileMetadataCount(); got != 0 {
		t.Errorf("metadata entries = %d, want 0 (missing file is skipped silently)", got)
	}
}

func TestExportSnapshotIsDetached(t *testing.T) {
	s := NewStore()
	s.CacheFolderInfo("/a", types.FolderInfo{Path: "/a", Files: []string{"/a/x.txt"}})
	data := s.ExportProjectData(nil)

	s.CacheFolderInfo("/b", types.FolderInfo{Path: "/b"})
	data.FolderFileCache["/a"][0] = "/mutated"

	if len(data.FolderInfoCache) != 1 {
		t.Errorf("snapshot grew with the store: %d folders", len(data.FolderInfoCache))
	}
	if files := s.FolderFiles("/a"); files[0] != "/a/x.txt" {
		t.Errorf("store aliased snapshot memory: %v", files)
	}
}
