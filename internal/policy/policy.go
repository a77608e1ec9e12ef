// Package policy defines the error-recovery contract consumed by the
// scanner and analyzer, plus a default classifier implementation.
//
// The pipeline never hard-codes an exception-to-action mapping; it asks the
// policy what to do with each failure and honors the returned action. This
// keeps the scanning and analysis algorithms untouched when the recovery
// policy changes.
package policy

import (
	"errors"
	"io/fs"
	"strings"
	"sync"
	"syscall"
	"time"
)

// RecoveryKind enumerates the actions a policy may return.
type RecoveryKind int

const (
	// RecoverSkip omits the failing item and continues the run
	RecoverSkip RecoveryKind = iota

	// RecoverRetry retries the same item after Action.Delay
	RecoverRetry

	// RecoverRetryWithElevation retries after the caller acquires
	// elevated privileges
	RecoverRetryWithElevation

	// RecoverReduceParallelism asks the caller to shrink the worker pool
	// before the next run
	RecoverReduceParallelism

	// RecoverPauseAndWait pauses the run for Action.Delay
	RecoverPauseAndWait

	// RecoverAbort stops the whole run; it must never be swallowed
	RecoverAbort
)

// String returns the action name for logs and status messages.
func (k RecoveryKind) String() string {
	switch k {
	case RecoverSkip:
		return "skip"
	case RecoverRetry:
		return "retry"
	case RecoverRetryWithElevation:
		return "retry-with-elevation"
	case RecoverReduceParallelism:
		return "reduce-parallelism"
	case RecoverPauseAndWait:
		return "pause-and-wait"
	case RecoverAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Action is a recovery instruction. Delay is meaningful only for
// RecoverRetry and RecoverPauseAndWait.
type Action struct {
	Kind  RecoveryKind
	Delay time.Duration
}

// Skip is the default safe action.
var Skip = Action{Kind: RecoverSkip}

// Abort stops the run.
var Abort = Action{Kind: RecoverAbort}

// ResourceKind names the constrained resource for HandleResourceError.
type ResourceKind string

const (
	ResourceMemory  ResourceKind = "memory"
	ResourceDisk    ResourceKind = "disk"
	ResourceHandles ResourceKind = "handles"
	ResourceCPU     ResourceKind = "cpu"
	ResourceNetwork ResourceKind = "network"
)

// SkippedItem records one path the run had to leave out, with the reason.
type SkippedItem struct {
	Path   string    `json:"path"`
	Reason string    `json:"reason"`
	Time   time.Time `json:"time"`
}

// ErrorSummary accumulates per-category failure counts across operations.
// Counts are cumulative until Reset.
type ErrorSummary struct {
	SkippedFiles     int           `json:"skippedFiles"`
	PermissionErrors int           `json:"permissionErrors"`
	NetworkErrors    int           `json:"networkErrors"`
	ResourceErrors   int           `json:"resourceErrors"`
	SkippedItems     []SkippedItem `json:"skippedItems"`
	LastErrorTime    *time.Time    `json:"lastErrorTime"`
}

// ErrorPolicy classifies failures into recovery actions and keeps the
// running error summary. Implementations must be safe for concurrent use;
// the scanner and analyzer call them from worker goroutines.
type ErrorPolicy interface {
	// HandleFileAccessError classifies a file or directory access
	// failure (permission denied, not found, locked, path too long).
	HandleFileAccessError(path string, err error) Action

	// HandleNetworkError classifies a remote-share failure.
	HandleNetworkError(path string, err error) Action

	// HandleResourceError classifies a resource-constraint failure
	// (low memory, disk full, handle exhaustion).
	HandleResourceError(kind ResourceKind, err error) Action

	// LogSkippedItem records a path omitted from the run.
	LogSkippedItem(path, reason string)

	// Summary returns a copy of the accumulated error summary.
	Summary() ErrorSummary
}

// DefaultPolicy is the stock skip-and-continue policy: per-item access and
// network failures never abort a run, disk exhaustion does, and handle or
// memory pressure asks the caller to throttle.
type DefaultPolicy struct {
	mu      sync.Mutex
	summary ErrorSummary

	// MaxSkippedItems bounds the retained skip list so a run over a
	// badly permissioned tree cannot grow it without limit.
	// Default: 1000. Counts keep accumulating past the bound.
	MaxSkippedItems int
}

// NewDefaultPolicy returns the stock policy.
func NewDefaultPolicy() *DefaultPolicy {
	return &DefaultPolicy{MaxSkippedItems: 1000}
}

// HandleFileAccessError classifies access failures. Permission and
// not-found failures are counted and skipped; anything unrecognized is
// skipped as a generic file error.
func (p *DefaultPolicy) HandleFileAccessError(path string, err error) Action {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case errors.Is(err, fs.ErrPermission):
		p.summary.PermissionErrors++
	default:
		p.summary.SkippedFiles++
	}
	p.record(path, err.Error())
	return Skip
}

// HandleNetworkError counts the failure and skips the item; an unreachable
// share never takes down the rest of the run.
func (p *DefaultPolicy) HandleNetworkError(path string, err error) Action {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary.NetworkErrors++
	p.record(path, err.Error())
	return Skip
}

// HandleResourceError aborts on disk exhaustion and throttles otherwise.
func (p *DefaultPolicy) HandleResourceError(kind ResourceKind, err error) Action {
	p.mu.Lock()
	p.summary.ResourceErrors++
	p.record(string(kind), err.Error())
	p.mu.Unlock()

	if kind == ResourceDisk || errors.Is(err, syscall.ENOSPC) {
		return Abort
	}
	return Action{Kind: RecoverReduceParallelism}
}

// LogSkippedItem records an omitted path without bumping an error category.
func (p *DefaultPolicy) LogSkippedItem(path, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary.SkippedFiles++
	p.record(path, reason)
}

// Summary returns a deep copy so callers can read it while a run mutates
// the live counts.
func (p *DefaultPolicy) Summary() ErrorSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.summary
	out.SkippedItems = append([]SkippedItem(nil), p.summary.SkippedItems...)
	if p.summary.LastErrorTime != nil {
		t := *p.summary.LastErrorTime
		out.LastErrorTime = &t
	}
	return out
}

// Reset clears all accumulated counts and items.
func (p *DefaultPolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary = ErrorSummary{}
}

// record assumes p.mu is held.
func (p *DefaultPolicy) record(path, reason string) {
	now := time.Now()
	p.summary.LastErrorTime = &now
	if len(p.summary.SkippedItems) < p.MaxSkippedItems {
		p.summary.SkippedItems = append(p.summary.SkippedItems, SkippedItem{
			Path:   path,
			Reason: reason,
			Time:   now,
		})
	}
}

// IsNetworkError reports whether an error looks like a remote-share
// failure rather than a local access failure. Callers route these to
// HandleNetworkError.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "network") || strings.Contains(msg, "host is down")
}
