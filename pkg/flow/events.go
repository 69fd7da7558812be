package flow

import "time"

// EventKind discriminates the payloads flowing through the run's event
// channel.
type EventKind string

const (
	// EventLog is a log line for one status transition.
	EventLog EventKind = "log"
	// EventTimeline reports a completed step's placement on the run timeline.
	EventTimeline EventKind = "timeline"
	// EventStatus reports a change in the overall run status.
	EventStatus EventKind = "status"
)

// Event is one entry in the run's interleaved event stream. Exactly one
// of Log, Timeline, or Status is set, matching Kind.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Log       *LogEvent      `json:"log,omitempty"`
	Timeline  *TimelineEvent `json:"timeline,omitempty"`
	Status    *StatusEvent   `json:"status,omitempty"`
}

// LogEvent records a single node status transition.
type LogEvent struct {
	Level   string     `json:"level"`
	StepID  string     `json:"stepId,omitempty"`
	Status  NodeStatus `json:"status,omitempty"`
	Message string     `json:"message"`
}

// TimelineEvent places one completed step on the run timeline. StartMS
// is relative to the start of the run; Lane is the visualization row
// assigned so concurrent bars never overlap.
type TimelineEvent struct {
	StepID     string `json:"stepId"`
	Label      string `json:"label"`
	Status     string `json:"status"`
	StartMS    int64  `json:"startMs"`
	DurationMS int64  `json:"durationMs"`
	Lane       int    `json:"lane"`
}

// StatusEvent reports the overall run status.
type StatusEvent struct {
	RunID  string    `json:"runId"`
	Status RunStatus `json:"status"`
}

func logEvent(now time.Time, level, stepID string, status NodeStatus, msg string) Event {
	return Event{
		Kind:      EventLog,
		Timestamp: now,
		Log:       &LogEvent{Level: level, StepID: stepID, Status: status, Message: msg},
	}
}

func timelineEvent(now time.Time, span TimelineSpan) Event {
	return Event{
		Kind:      EventTimeline,
		Timestamp: now,
		Timeline: &TimelineEvent{
			StepID:     span.StepID,
			Label:      span.Label,
			Status:     span.Status,
			StartMS:    span.StartMS,
			DurationMS: span.DurationMS,
			Lane:       span.Lane,
		},
	}
}

func statusEvent(now time.Time, runID string, status RunStatus) Event {
	return Event{
		Kind:      EventStatus,
		Timestamp: now,
		Status:    &StatusEvent{RunID: runID, Status: status},
	}
}
