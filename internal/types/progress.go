package types

// Phase identifies which stage of a scan or analysis run a progress report
// belongs to.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCountingFolders
	PhaseScanningFolders
	PhaseBuildingFileIndex
	PhaseComparingFiles
	PhaseAggregatingResults
	PhasePopulatingResults
	PhaseComplete
	PhaseCancelled
	PhaseError
)

// String returns the human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCountingFolders:
		return "counting folders"
	case PhaseScanningFolders:
		return "scanning folders"
	case PhaseBuildingFileIndex:
		return "building file index"
	case PhaseComparingFiles:
		return "comparing files"
	case PhaseAggregatingResults:
		return "aggregating results"
	case PhasePopulatingResults:
		return "populating results"
	case PhaseComplete:
		return "complete"
	case PhaseCancelled:
		return "cancelled"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Progress is one report pushed from a worker to the caller's sink.
// Sinks are invoked from worker goroutines and must not block; consumers
// that need thread affinity marshal onto their own thread.
type Progress struct {
	Phase         Phase  `json:"phase"`
	Current       int    `json:"currentProgress"`
	Max           int    `json:"maxProgress"`
	Status        string `json:"statusMessage"`
	Indeterminate bool   `json:"isIndeterminate"`
}

// ProgressSink receives progress reports. A nil sink is always legal.
type ProgressSink func(Progress)
