// Package analyzer finds cross-folder duplicate files among a scanned
// folder set and aggregates them into folder-pair matches.
//
// Detection is two-phase. The index phase groups files by (lowercased
// name, byte size) so hashing is bounded to files that could plausibly
// match. The verification phase hashes each remaining candidate (reusing
// cached hashes) and emits a match for every equal-hash pair that spans
// two different folders. Aggregation then scores each folder pair with a
// Jaccard similarity over the folders' direct file counts.
package analyzer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/foldermatch/foldermatch/internal/cache"
	"github.com/foldermatch/foldermatch/internal/config"
	"github.com/foldermatch/foldermatch/internal/policy"
	"github.com/foldermatch/foldermatch/internal/progress"
	"github.com/foldermatch/foldermatch/internal/types"
)

// ErrAborted reports that the error policy instructed the run to stop.
var ErrAborted = errors.New("aborted by error policy")

// Analyzer runs duplicate detection over cache-populated folders.
type Analyzer struct {
	store  *cache.Store
	policy policy.ErrorPolicy
	cfg    config.Config
}

// New returns an analyzer reading and writing the given store.
func New(store *cache.Store, pol policy.ErrorPolicy, cfg config.Config) *Analyzer {
	return &Analyzer{store: store, policy: pol, cfg: cfg}
}

// candidate is one file inside a candidate group.
type candidate struct {
	path   string
	folder string
}

// FindDuplicateFiles returns every verified cross-folder duplicate pair
// among the given folders. Folders must already be cache-populated; files
// of uncached folders simply contribute nothing.
//
// The index phase completes fully before any hashing starts. Hash
// verification runs in parallel across candidate groups, bounded by the
// configured worker count. A file whose hash cannot be computed is
// excluded from all pairs for this run and never retried.
func (a *Analyzer) FindDuplicateFiles(ctx context.Context, folders []string, sink types.ProgressSink) ([]types.FileMatch, error) {
	emit := progress.NewEmitter(sink)

	emit.Force(types.Progress{
		Phase:         types.PhaseBuildingFileIndex,
		Status:        "Building file index...",
		Indeterminate: true,
	})

	groups, err := a.buildCandidateIndex(ctx, folders, emit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			emit.Force(types.Progress{Phase: types.PhaseCancelled, Status: "Analysis cancelled"})
		}
		return nil, err
	}

	emit.Force(types.Progress{
		Phase:  types.PhaseComparingFiles,
		Max:    len(groups),
		Status: fmt.Sprintf("Verifying %d candidate groups...", len(groups)),
	})

	matches, err := a.verifyGroups(ctx, groups, emit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			emit.Force(types.Progress{Phase: types.PhaseCancelled, Status: "Analysis cancelled"})
		}
		return nil, err
	}

	emit.Force(types.Progress{
		Phase:   types.PhaseComplete,
		Current: len(groups),
		Max:     len(groups),
		Status:  fmt.Sprintf("Found %d duplicate file pairs", len(matches)),
	})
	return matches, nil
}

// buildCandidateIndex groups every file of every folder by its
// (lowercased name, size) key and drops groups that cannot pair.
func (a *Analyzer) buildCandidateIndex(ctx context.Context, folders []string, emit *progress.Emitter) ([][]candidate, error) {
	index := make(map[string][]candidate)
	indexed := 0

	// Duplicate folder entries in the input must not fabricate
	// self-matches.
	seen := make(map[string]bool, len(folders))

	for _, folder := range folders {
		nk := cache.NormalizeKey(folder)
		if seen[nk] {
			continue
		}
		seen[nk] = true
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, path := range a.store.FolderFiles(folder) {
			size, ok, err := a.fileSize(path)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if size < a.cfg.MinFileSize {
				continue
			}
			key := fmt.Sprintf("%s|%d", strings.ToLower(filepath.Base(path)), size)
			index[key] = append(index[key], candidate{path: path, folder: folder})

			indexed++
			if indexed%a.cfg.ProgressEvery == 0 {
				emit.Emit(types.Progress{
					Phase:         types.PhaseBuildingFileIndex,
					Current:       indexed,
					Status:        fmt.Sprintf("Indexing files... %d", indexed),
					Indeterminate: true,
				})
			}
		}
	}

	groups := make([][]candidate, 0, len(index))
	for _, g := range index {
		if len(g) >= 2 {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// fileSize reads the file size from cached metadata, statting and caching
// lazily on a miss. A failed stat resolves through the policy: Abort stops
// the run, anything else excludes the file.
func (a *Analyzer) fileSize(path string) (int64, bool, error) {
	if md, ok := a.store.GetFileMetadata(path); ok {
		return md.Size, true, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		if act := a.policy.HandleFileAccessError(path, err); act.Kind == policy.RecoverAbort {
			return 0, false, fmt.Errorf("%w: %s: %v", ErrAborted, path, err)
		}
		return 0, false, nil
	}
	a.store.CacheFileMetadata(path, types.FileMetadata{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     fi.Size(),
		Modified: fi.ModTime(),
	})
	return fi.Size(), true, nil
}

// verifyGroups hashes candidates group by group on a bounded pool and
// emits a match for each equal-hash pair spanning two different folders.
func (a *Analyzer) verifyGroups(ctx context.Context, groups [][]candidate, emit *progress.Emitter) ([]types.FileMatch, error) {
	var (
		mu      sync.Mutex
		matches []types.FileMatch
		done    atomic.Int64
	)
	sem := semaphore.NewWeighted(int64(a.cfg.Workers))
	g, gctx := errgroup.WithContext(ctx)

	for _, group := range groups {
		group := group
		// Cancellation is honored at every group boundary.
		if err := gctx.Err(); err != nil {
			break
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			pairs := a.verifyGroup(group)
			if len(pairs) > 0 {
				mu.Lock()
				matches = append(matches, pairs...)
				mu.Unlock()
			}

			n := int(done.Add(1))
			emit.Emit(types.Progress{
				Phase:   types.PhaseComparingFiles,
				Current: n,
				Max:     len(groups),
				Status:  fmt.Sprintf("Comparing files... group %d/%d", n, len(groups)),
			})
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// verifyGroup hashes one candidate group and pairs equal hashes across
// folders. Files in the same folder never pair; self-duplicates are out
// of scope.
func (a *Analyzer) verifyGroup(group []candidate) []types.FileMatch {
	type hashed struct {
		candidate
		hash string
	}
	verified := make([]hashed, 0, len(group))

	for _, c := range group {
		h, ok := a.store.GetFileHash(c.path)
		if !ok {
			var err error
			h, err = HashFile(c.path)
			if err != nil {
				// Fail open: the file drops out of every pair
				// for this run and is not retried.
				a.policy.LogSkippedItem(c.path, fmt.Sprintf("hash failed: %v", err))
				continue
			}
			a.store.CacheFileHash(c.path, h)
		}
		verified = append(verified, hashed{candidate: c, hash: h})
	}

	var pairs []types.FileMatch
	for i := 0; i < len(verified); i++ {
		for j := i + 1; j < len(verified); j++ {
			if verified[i].hash != verified[j].hash {
				continue
			}
			if cache.NormalizeKey(verified[i].folder) == cache.NormalizeKey(verified[j].folder) {
				continue
			}
			pairs = append(pairs, types.FileMatch{
				PathA: verified[i].path,
				PathB: verified[j].path,
			})
		}
	}
	return pairs
}

// HashFile streams a file through SHA-256 and returns the hex digest.
// Large files are never buffered whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// AggregateFolderMatches groups file matches by their unordered parent
// folder pair and scores each pair.
//
// Similarity deliberately uses each folder's direct (non-recursive) file
// count: detection only ever compares direct children, so the score stays
// at folder-to-folder granularity. Result order is unspecified.
func (a *Analyzer) AggregateFolderMatches(fileMatches []types.FileMatch, sink types.ProgressSink) []types.FolderMatch {
	emit := progress.NewEmitter(sink)

	if len(fileMatches) == 0 {
		emit.Force(types.Progress{
			Phase:  types.PhaseComplete,
			Status: "No duplicate files found; no folder pairs to aggregate",
		})
		return []types.FolderMatch{}
	}

	emit.Force(types.Progress{
		Phase:  types.PhaseAggregatingResults,
		Max:    len(fileMatches),
		Status: fmt.Sprintf("Aggregating %d file matches...", len(fileMatches)),
	})

	type pairAgg struct {
		left, right string
		matches     []types.FileMatch
	}
	byPair := make(map[string]*pairAgg)

	for i, m := range fileMatches {
		left, right := m.Folders()
		lk, rk := cache.NormalizeKey(left), cache.NormalizeKey(right)
		if lk > rk {
			left, right = right, left
			lk, rk = rk, lk
		}
		key := lk + "\x00" + rk
		agg, ok := byPair[key]
		if !ok {
			agg = &pairAgg{left: left, right: right}
			byPair[key] = agg
		}
		agg.matches = append(agg.matches, m)

		if (i+1)%a.cfg.ProgressEvery == 0 {
			emit.Emit(types.Progress{
				Phase:   types.PhaseAggregatingResults,
				Current: i + 1,
				Max:     len(fileMatches),
				Status:  fmt.Sprintf("Aggregating results... %d/%d", i+1, len(fileMatches)),
			})
		}
	}

	emit.Force(types.Progress{
		Phase:  types.PhasePopulatingResults,
		Max:    len(byPair),
		Status: fmt.Sprintf("Building %d folder matches...", len(byPair)),
	})

	result := make([]types.FolderMatch, 0, len(byPair))
	for _, agg := range byPair {
		dup := len(agg.matches)
		leftCount := len(a.store.FolderFiles(agg.left))
		rightCount := len(a.store.FolderFiles(agg.right))
		union := leftCount + rightCount - dup

		var similarity float64
		if union > 0 {
			similarity = float64(dup) / float64(union) * 100
		}

		result = append(result, types.FolderMatch{
			LeftFolder:             agg.left,
			RightFolder:            agg.right,
			DuplicateFiles:         agg.matches,
			SimilarityPercentage:   similarity,
			FolderSizeBytes:        a.store.FolderSize(agg.left) + a.store.FolderSize(agg.right),
			LatestModificationDate: a.latestOf(agg.left, agg.right),
		})
	}

	status := fmt.Sprintf("Aggregated %d folder pairs from %d file matches", len(result), len(fileMatches))
	if len(fileMatches) > a.cfg.LargeResultWarning {
		status += " (large result set; downstream display may be slow)"
	}
	emit.Force(types.Progress{
		Phase:   types.PhaseComplete,
		Current: len(byPair),
		Max:     len(byPair),
		Status:  status,
	})
	return result
}

// latestOf returns the newest cached direct-file mtime of two folders.
func (a *Analyzer) latestOf(left, right string) *time.Time {
	var latest *time.Time
	for _, folder := range []string{left, right} {
		info, ok := a.store.GetFolderInfo(folder)
		if !ok || info.LatestModified == nil {
			continue
		}
		if latest == nil || info.LatestModified.After(*latest) {
			latest = info.LatestModified
		}
	}
	return latest
}

// SortBySimilarity orders matches by similarity descending, then combined
// size descending. Aggregation itself makes no ordering promise; this is a
// display helper.
func SortBySimilarity(matches []types.FolderMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].SimilarityPercentage != matches[j].SimilarityPercentage {
			return matches[i].SimilarityPercentage > matches[j].SimilarityPercentage
		}
		return matches[i].FolderSizeBytes > matches[j].FolderSizeBytes
	})
}
