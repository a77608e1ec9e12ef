// Package scanner populates the cache store for a root folder and its
// entire subtree.
//
// The walk is iterative with an explicit stack; trees with hundreds of
// thousands of folders must not grow the call stack. Access failures are
// resolved per item through the error policy, so one unreadable
// subdirectory never aborts a run unless the policy says so.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foldermatch/foldermatch/internal/cache"
	"github.com/foldermatch/foldermatch/internal/config"
	"github.com/foldermatch/foldermatch/internal/policy"
	"github.com/foldermatch/foldermatch/internal/progress"
	"github.com/foldermatch/foldermatch/internal/types"
)

// ErrDirectoryNotFound reports a missing or invalid root path.
var ErrDirectoryNotFound = errors.New("directory not found")

// ErrAborted reports that the error policy instructed the run to stop.
var ErrAborted = errors.New("aborted by error policy")

// Scanner walks folder hierarchies into the cache store.
type Scanner struct {
	store  *cache.Store
	policy policy.ErrorPolicy
	cfg    config.Config
}

// New returns a scanner writing into store and consulting pol on failures.
func New(store *cache.Store, pol policy.ErrorPolicy, cfg config.Config) *Scanner {
	return &Scanner{store: store, policy: pol, cfg: cfg}
}

// ScanFolderHierarchy walks root's full subtree and caches a FolderInfo
// for every folder not already cached. It returns the paths of all folders
// in the subtree, including previously cached ones.
//
// Progress is reported in two phases: counting subfolders, then scanning.
// Cancellation is honored at every loop iteration; entries already
// committed to the store stay valid after a cancelled run.
func (s *Scanner) ScanFolderHierarchy(ctx context.Context, root string, sink types.ProgressSink) ([]string, error) {
	emit := progress.NewEmitter(sink)

	if root == "" {
		return nil, fmt.Errorf("%w: empty root path", ErrDirectoryNotFound)
	}
	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
	}

	emit.Force(types.Progress{
		Phase:         types.PhaseCountingFolders,
		Status:        fmt.Sprintf("Counting folders under %s...", root),
		Indeterminate: true,
	})

	folders, err := s.enumerateSubtree(ctx, root, emit)
	if err != nil {
		return nil, err
	}

	emit.Force(types.Progress{
		Phase:  types.PhaseScanningFolders,
		Max:    len(folders),
		Status: fmt.Sprintf("Scanning %d folders...", len(folders)),
	})

	if err := s.scanFolders(ctx, folders, emit); err != nil {
		if errors.Is(err, context.Canceled) {
			emit.Force(types.Progress{Phase: types.PhaseCancelled, Status: "Scan cancelled"})
		}
		return nil, err
	}

	emit.Force(types.Progress{
		Phase:   types.PhaseComplete,
		Current: len(folders),
		Max:     len(folders),
		Status:  fmt.Sprintf("Scanned %d folders", len(folders)),
	})
	return folders, nil
}

// enumerateSubtree lists root and every descendant folder using an
// explicit stack. Unreadable subdirectories are skipped per policy.
func (s *Scanner) enumerateSubtree(ctx context.Context, root string, emit *progress.Emitter) ([]string, error) {
	folders := make([]string, 0, 256)
	stack := []string{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			emit.Force(types.Progress{Phase: types.PhaseCancelled, Status: "Scan cancelled"})
			return nil, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		folders = append(folders, dir)

		entries, err := os.ReadDir(dir)
		if err != nil {
			if act := s.classify(dir, err); act.Kind == policy.RecoverAbort {
				return nil, fmt.Errorf("%w: %s: %v", ErrAborted, dir, err)
			}
			// Skipped: the folder itself stays in the result so the
			// failure is visible in the error summary, but its
			// subtree is omitted.
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				stack = append(stack, filepath.Join(dir, e.Name()))
			}
		}

		if len(folders)%s.cfg.ProgressEvery == 0 {
			emit.Emit(types.Progress{
				Phase:         types.PhaseCountingFolders,
				Current:       len(folders),
				Status:        fmt.Sprintf("Counting folders... %d found", len(folders)),
				Indeterminate: true,
			})
		}
	}
	return folders, nil
}

// scanFolders stats every uncached folder's direct children on a bounded
// worker pool and commits one FolderInfo per folder.
func (s *Scanner) scanFolders(ctx context.Context, folders []string, emit *progress.Emitter) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	var done atomic.Int64
	total := len(folders)

	for _, folder := range folders {
		folder := folder
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !s.store.IsFolderCached(folder) {
				info, err := s.collectFolderInfo(gctx, folder, false)
				if err != nil {
					return err
				}
				if info != nil {
					s.store.CacheFolderInfo(folder, *info)
				}
			}
			n := int(done.Add(1))
			if n%s.cfg.ProgressEvery == 0 || n == total {
				emit.Emit(types.Progress{
					Phase:   types.PhaseScanningFolders,
					Current: n,
					Max:     total,
					Status:  fmt.Sprintf("Scanning folders... %d/%d", n, total),
				})
			}
			return nil
		})
	}
	return g.Wait()
}

// collectFolderInfo reads one folder's direct children. A nil info with a
// nil error means the folder was skipped per policy. When cacheMetadata is
// set, each file's stat record is also committed to the store.
func (s *Scanner) collectFolderInfo(ctx context.Context, folder string, cacheMetadata bool) (*types.FolderInfo, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if act := s.classify(folder, err); act.Kind == policy.RecoverAbort {
			return nil, fmt.Errorf("%w: %s: %v", ErrAborted, folder, err)
		}
		return nil, nil
	}

	info := types.FolderInfo{Path: folder, Files: make([]string, 0, len(entries))}
	var latest time.Time

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		path := filepath.Join(folder, e.Name())
		fi, err := e.Info()
		if err != nil {
			if act := s.classify(path, err); act.Kind == policy.RecoverAbort {
				return nil, fmt.Errorf("%w: %s: %v", ErrAborted, path, err)
			}
			// One unreadable file is skipped; the rest of the
			// folder still gets cached.
			continue
		}
		if fi.Size() < s.cfg.MinFileSize {
			continue
		}
		info.Files = append(info.Files, path)
		info.TotalSize += fi.Size()
		if fi.ModTime().After(latest) {
			latest = fi.ModTime()
		}
		if cacheMetadata {
			s.store.CacheFileMetadata(path, types.FileMetadata{
				Path:     path,
				Name:     e.Name(),
				Size:     fi.Size(),
				Modified: fi.ModTime(),
			})
		}
	}
	if !latest.IsZero() {
		info.LatestModified = &latest
	}
	return &info, nil
}

// AnalyzeFolder caches and returns a single folder's direct-contents
// record, also committing per-file metadata as a side effect. A cached
// folder is returned as-is without touching the disk.
func (s *Scanner) AnalyzeFolder(ctx context.Context, folder string) (types.FolderInfo, error) {
	if info, ok := s.store.GetFolderInfo(folder); ok {
		return info, nil
	}
	if _, err := os.Stat(folder); err != nil {
		return types.FolderInfo{}, fmt.Errorf("%w: %s", ErrDirectoryNotFound, folder)
	}
	info, err := s.collectFolderInfo(ctx, folder, true)
	if err != nil {
		return types.FolderInfo{}, err
	}
	if info == nil {
		return types.FolderInfo{}, fmt.Errorf("%w: %s", ErrDirectoryNotFound, folder)
	}
	s.store.CacheFolderInfo(folder, *info)
	return *info, nil
}

// CountSubfolders returns the number of folders below path, not counting
// path itself. It never caches; it exists for progress-bar sizing.
// Unreadable subdirectories are omitted from the count.
func (s *Scanner) CountSubfolders(path string) (int, error) {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return 0, fmt.Errorf("%w: %s", ErrDirectoryNotFound, path)
	}

	count := 0
	stack := []string{path}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				count++
				stack = append(stack, filepath.Join(dir, e.Name()))
			}
		}
	}
	return count, nil
}

// classify routes an access failure to the right policy hook and logs the
// skip when the policy says to continue.
func (s *Scanner) classify(path string, err error) policy.Action {
	var act policy.Action
	if policy.IsNetworkError(err) {
		act = s.policy.HandleNetworkError(path, err)
	} else {
		act = s.policy.HandleFileAccessError(path, err)
	}
	return act
}
