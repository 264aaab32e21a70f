package wizard

import (
	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/models"
)

type State int

const (
	IntakePending State = iota
	IntakeSubmitting
	IntakeComplete
	DocsPending
	DocsComplete
	AnalysisReady
	AnalysisRunning
	AnalysisComplete
)

var stateNames = map[State]string{
	IntakePending:    "intake_pending",
	IntakeSubmitting: "intake_submitting",
	IntakeComplete:   "intake_complete",
	DocsPending:      "docs_pending",
	DocsComplete:     "docs_complete",
	AnalysisReady:    "analysis_ready",
	AnalysisRunning:  "analysis_running",
	AnalysisComplete: "analysis_complete",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Step is the 1-based wizard page a state belongs to.
func (s State) Step() int {
	switch s {
	case IntakePending, IntakeSubmitting, IntakeComplete:
		return 1
	case DocsPending, DocsComplete:
		return 2
	default:
		return 3
	}
}

type SlotStatus int

const (
	Unstaged SlotStatus = iota
	Staged
	Saving
	Saved
	Failed
)

func (s SlotStatus) String() string {
	switch s {
	case Unstaged:
		return "unstaged"
	case Staged:
		return "staged"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Slot tracks one document kind through stage and save. FileName is set from
// Staged onwards, Document only when Saved and Err only when Failed.
type Slot struct {
	Kind     models.DocumentKind
	Status   SlotStatus
	FileName string
	Document *models.Document
	Err      *errors.StandardError

	content []byte
}

func (s Slot) Saved() bool {
	return s.Status == Saved
}

func (s Slot) hasFile() bool {
	return s.FileName != ""
}
