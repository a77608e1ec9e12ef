// Package project serializes a scan session (the scan-folder list plus
// all three cache maps) to a versioned JSON file and restores it.
//
// Two extensions are accepted on load for backward compatibility; only the
// current one is the default save target. Files written by older releases
// lack the applicationName field; they load fine and are normalized on the
// next save.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/foldermatch/foldermatch/internal/types"
)

const (
	// ApplicationName is stamped into every saved project file.
	ApplicationName = "FolderMatch"

	// SchemaVersion is the current project-file schema version.
	SchemaVersion = "2.0.0"

	// Extension is the current project-file extension.
	Extension = ".fmatch"

	// LegacyExtension is accepted on load only.
	LegacyExtension = ".dfproj"
)

// ErrSaveFailed wraps any failure to persist a project file.
var ErrSaveFailed = errors.New("failed to save project")

// ErrLoadFailed wraps any failure to read or parse a project file.
var ErrLoadFailed = errors.New("failed to load project")

// Save writes the snapshot to path as JSON. The applicationName field is
// forced to the current product tag regardless of what the snapshot
// carries, and the schema version and creation date are stamped fresh.
func Save(path string, data types.ProjectData) error {
	data.ApplicationName = ApplicationName
	data.Version = SchemaVersion
	if data.CreatedDate.IsZero() {
		data.CreatedDate = time.Now().UTC()
	}
	if data.SnapshotID == "" {
		data.SnapshotID = uuid.NewString()
	}
	normalize(&data)

	raw, err := json.MarshalIndent(&data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
		}
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, path, err)
	}
	return nil
}

// Load reads and parses a project file. Failures are wrapped under
// ErrLoadFailed with distinct causes: a missing file, malformed JSON, a
// null payload, and an unsupported newer schema each read differently.
// Partial data is never returned.
func Load(path string) (types.ProjectData, error) {
	var data types.ProjectData

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, fmt.Errorf("%w: project file not found: %s", ErrLoadFailed, path)
		}
		return data, fmt.Errorf("%w: cannot read %s: %v", ErrLoadFailed, path, err)
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return types.ProjectData{}, fmt.Errorf("%w: project file is corrupted: %s: %v", ErrLoadFailed, path, err)
	}
	if data.IsEmpty() && data.Version == "" && data.CreatedDate.IsZero() {
		return types.ProjectData{}, fmt.Errorf("%w: project file is corrupted: %s: empty payload", ErrLoadFailed, path)
	}

	// Missing applicationName marks a legacy file: accepted, normalized
	// on next save. A mismatched one is treated the same way.
	if data.Version != "" {
		if v := canonicalVersion(data.Version); v != "" && semver.Major(v) > semver.Major("v"+SchemaVersion) {
			return types.ProjectData{}, fmt.Errorf("%w: %s was written by a newer version (schema %s, supported %s)",
				ErrLoadFailed, path, data.Version, SchemaVersion)
		}
	}

	normalize(&data)
	return data, nil
}

// IsValidProjectFile reports whether path exists, carries a recognized
// extension, and parses as the expected schema. It never returns an error.
func IsValidProjectFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != Extension && ext != LegacyExtension {
		return false
	}
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	_, err = Load(path)
	return err == nil
}

// DefaultFileName returns a project file name under dir using the current
// extension.
func DefaultFileName(dir, name string) string {
	return filepath.Join(dir, name+Extension)
}

// normalize replaces nil maps and slices so consumers never branch on nil.
func normalize(data *types.ProjectData) {
	if data.ScanFolders == nil {
		data.ScanFolders = []string{}
	}
	if data.FolderFileCache == nil {
		data.FolderFileCache = map[string][]string{}
	}
	if data.FileHashCache == nil {
		data.FileHashCache = map[string]string{}
	}
	if data.FolderInfoCache == nil {
		data.FolderInfoCache = map[string]types.FolderInfoSnapshot{}
	}
}

// canonicalVersion maps a stored version string onto semver's expected
// "vX.Y.Z" form; it returns "" when the string is not comparable.
func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
