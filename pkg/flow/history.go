package flow

import "time"

// RunStatus is the overall status of one execution run.
type RunStatus string

const (
	// RunRunning means the run is in progress.
	RunRunning RunStatus = "running"
	// RunSuccess means every step completed successfully.
	RunSuccess RunStatus = "success"
	// RunError means at least one step failed.
	RunError RunStatus = "error"
	// RunCancelled means the run was cancelled before completion.
	RunCancelled RunStatus = "cancelled"
)

// StepStatus values recorded per step in a history entry. These extend
// the node statuses with "skipped" for steps whose upstream failed or
// whose dispatch was prevented by cancellation.
const (
	StepSuccess = "success"
	StepError   = "error"
	StepSkipped = "skipped"
)

// StepRecord is the persisted outcome of one step within a run.
type StepRecord struct {
	StepID      string `json:"stepId"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartMS     int64  `json:"startMs"`
	DurationMS  int64  `json:"durationMs"`
	ToolCalls   int    `json:"toolCalls"`
	Error       string `json:"error,omitempty"`
}

// HistoryEntry is the authoritative record of one run. Created in
// memory at run start with status running, mutated only by the engine's
// control flow, and written to durable storage exactly once at terminal
// state. A persisted entry is immutable.
type HistoryEntry struct {
	RunID           string       `json:"runId"`
	FlowID          string       `json:"flowId"`
	FlowName        string       `json:"flowName"`
	StartedAt       time.Time    `json:"startedAt"`
	CompletedAt     time.Time    `json:"completedAt"`
	Status          RunStatus    `json:"status"`
	Model           string       `json:"model,omitempty"`
	Provider        string       `json:"provider,omitempty"`
	Steps           []StepRecord `json:"steps"`
	TotalDurationMS int64        `json:"totalDurationMs"`
	Goal            string       `json:"goal,omitempty"`
	FinalAnswer     string       `json:"finalAnswer"`
	Error           string       `json:"error,omitempty"`
}

// Clone creates a deep copy of the entry. Stores hand out copies so a
// persisted record can never be mutated through a returned pointer.
func (e *HistoryEntry) Clone() *HistoryEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Steps = make([]StepRecord, len(e.Steps))
	copy(c.Steps, e.Steps)
	return &c
}
