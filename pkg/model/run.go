package model

import "time"

// RunStatus mirrors the lifecycle status of a run on the Apify platform.
type RunStatus string

const (
	RunStatusReady     RunStatus = "READY"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusTimingOut RunStatus = "TIMING-OUT"
	RunStatusTimedOut  RunStatus = "TIMED-OUT"
	RunStatusAborting  RunStatus = "ABORTING"
	RunStatusAborted   RunStatus = "ABORTED"
)

// String returns the string representation of the run status.
func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusTimedOut, RunStatusAborted:
		return true
	}
	return false
}

// ValidRunTransitions defines the status changes a polled run may report.
var ValidRunTransitions = map[RunStatus][]RunStatus{
	RunStatusReady:     {RunStatusRunning, RunStatusFailed, RunStatusAborting, RunStatusAborted},
	RunStatusRunning:   {RunStatusSucceeded, RunStatusFailed, RunStatusTimingOut, RunStatusTimedOut, RunStatusAborting, RunStatusAborted},
	RunStatusTimingOut: {RunStatusTimedOut},
	RunStatusAborting:  {RunStatusAborted},
}

// CanTransitionTo returns true if moving from the current status to next is valid.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RunRecord is the history entry kept for a run. It holds metadata only;
// the submitted payload and the result rows are never stored.
type RunRecord struct {
	ID         string     `json:"id"`
	RunID      string     `json:"run_id"`
	ActorID    string     `json:"actor_id"`
	UserID     string     `json:"user_id"`
	Status     RunStatus  `json:"status"`
	DatasetID  string     `json:"dataset_id,omitempty"`
	ItemCount  int        `json:"item_count"`
	Message    string     `json:"message,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}
