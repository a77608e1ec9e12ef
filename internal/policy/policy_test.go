package policy

import (
	"errors"
	"io/fs"
	"sync"
	"syscall"
	"testing"
)

func TestHandleFileAccessError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantKind       RecoveryKind
		wantPermission int
		wantSkipped    int
	}{
		{
			name:           "permission denied is counted and skipped",
			err:            fs.ErrPermission,
			wantKind:       RecoverSkip,
			wantPermission: 1,
		},
		{
			name:        "not found is skipped as a generic file error",
			err:         fs.ErrNotExist,
			wantKind:    RecoverSkip,
			wantSkipped: 1,
		},
		{
			name:        "unknown error still skips",
			err:         errors.New("file is locked"),
			wantKind:    RecoverSkip,
			wantSkipped: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewDefaultPolicy()
			act := p.HandleFileAccessError("/some/path", tt.err)
			if act.Kind != tt.wantKind {
				t.Errorf("action = %s, want %s", act.Kind, tt.wantKind)
			}
			sum := p.Summary()
			if sum.PermissionErrors != tt.wantPermission {
				t.Errorf("PermissionErrors = %d, want %d", sum.PermissionErrors, tt.wantPermission)
			}
			if sum.SkippedFiles != tt.wantSkipped {
				t.Errorf("SkippedFiles = %d, want %d", sum.SkippedFiles, tt.wantSkipped)
			}
			if len(sum.SkippedItems) != 1 {
				t.Errorf("SkippedItems = %d entries, want 1", len(sum.SkippedItems))
			}
			if sum.LastErrorTime == nil {
				t.Error("LastErrorTime should be set after an error")
			}
		})
	}
}

func TestHandleResourceError(t *testing.T) {
	p := NewDefaultPolicy()

	if act := p.HandleResourceError(ResourceDisk, syscall.ENOSPC); act.Kind != RecoverAbort {
		t.Errorf("disk exhaustion = %s, want abort", act.Kind)
	}
	if act := p.HandleResourceError(ResourceHandles, syscall.EMFILE); act.Kind != RecoverReduceParallelism {
		t.Errorf("handle exhaustion = %s, want reduce-parallelism", act.Kind)
	}
	if got := p.Summary().ResourceErrors; got != 2 {
		t.Errorf("ResourceErrors = %d, want 2", got)
	}
}

func TestHandleNetworkError(t *testing.T) {
	p := NewDefaultPolicy()
	if act := p.HandleNetworkError("//share/x", syscall.ENETUNREACH); act.Kind != RecoverSkip {
		t.Errorf("network error = %s, want skip", act.Kind)
	}
	if got := p.Summary().NetworkErrors; got != 1 {
		t.Errorf("NetworkErrors = %d, want 1", got)
	}
}

func TestSummaryIsCumulativeUntilReset(t *testing.T) {
	p := NewDefaultPolicy()
	p.LogSkippedItem("/a", "first")
	p.LogSkippedItem("/b", "second")

	if got := p.Summary().SkippedFiles; got != 2 {
		t.Fatalf("SkippedFiles = %d, want 2", got)
	}

	p.Reset()
	sum := p.Summary()
	if sum.SkippedFiles != 0 || len(sum.SkippedItems) != 0 || sum.LastErrorTime != nil {
		t.Errorf("summary after Reset = %+v, want empty", sum)
	}
}

func TestSummaryIsACopy(t *testing.T) {
	p := NewDefaultPolicy()
	p.LogSkippedItem("/a", "reason")

	sum := p.Summary()
	sum.SkippedItems[0].Path = "/mutated"
	sum.SkippedFiles = 99

	if got := p.Summary(); got.SkippedItems[0].Path != "/a" || got.SkippedFiles != 1 {
		t.Errorf("Summary leaked internal state: %+v", got)
	}
}

func TestSkippedItemListIsBounded(t *testing.T) {
	p := NewDefaultPolicy()
	p.MaxSkippedItems = 5
	for i := 0; i < 20; i++ {
		p.LogSkippedItem("/path", "reason")
	}
	sum := p.Summary()
	if len(sum.SkippedItems) != 5 {
		t.Errorf("SkippedItems = %d entries, want bounded at 5", len(sum.SkippedItems))
	}
	if sum.SkippedFiles != 20 {
		t.Errorf("SkippedFiles = %d, want 20 (counts keep accumulating)", sum.SkippedFiles)
	}
}

func TestConcurrentPolicyUse(t *testing.T) {
	p := NewDefaultPolicy()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.HandleFileAccessError("/p", fs.ErrPermission)
				p.Summary()
			}
		}()
	}
	wg.Wait()
	if got := p.Summary().PermissionErrors; got != 500 {
		t.Errorf("PermissionErrors = %d, want 500", got)
	}
}

func TestIsNetworkError(t *testing.T) {
	if !IsNetworkError(syscall.ECONNRESET) {
		t.Error("ECONNRESET should classify as network")
	}
	if !IsNetworkError(errors.New("network path not found")) {
		t.Error("message mentioning network should classify as network")
	}
	if IsNetworkError(fs.ErrPermission) {
		t.Error("permission error should not classify as network")
	}
	if IsNetworkError(nil) {
		t.Error("nil should not classify as network")
	}
}
