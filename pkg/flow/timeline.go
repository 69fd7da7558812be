package flow

import "sort"

// TimelineSpan is one bar on the run timeline: derived presentation
// data, never authoritative. Lane is the row index assigned so that
// concurrently overlapping spans render on separate rows.
type TimelineSpan struct {
	StepID     string `json:"stepId"`
	Label      string `json:"label"`
	Status     string `json:"status"`
	StartMS    int64  `json:"startMs"`
	DurationMS int64  `json:"durationMs"`
	Lane       int    `json:"lane"`
}

// BuildTimeline derives timeline spans from a history entry's steps.
// Skipped steps never ran, so they get no span. Lanes are packed
// greedily: spans sorted by start time each take the lowest lane whose
// previous span has already ended, which yields the fewest rows.
func BuildTimeline(entry *HistoryEntry) []TimelineSpan {
	var spans []TimelineSpan
	for _, s := range entry.Steps {
		if s.Status == StepSkipped {
			continue
		}
		spans = append(spans, TimelineSpan{
			StepID:     s.StepID,
			Label:      s.Description,
			Status:     s.Status,
			StartMS:    s.StartMS,
			DurationMS: s.DurationMS,
		})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].StartMS < spans[j].StartMS
	})
	assignLanes(spans)
	return spans
}

// assignLanes packs spans into lanes in place. laneEnds[i] tracks when
// the most recent span in lane i finishes.
func assignLanes(spans []TimelineSpan) {
	var laneEnds []int64
	for i := range spans {
		start := spans[i].StartMS
		end := start + spans[i].DurationMS
		placed := false
		for lane, laneEnd := range laneEnds {
			if laneEnd <= start {
				spans[i].Lane = lane
				laneEnds[lane] = end
				placed = true
				break
			}
		}
		if !placed {
			spans[i].Lane = len(laneEnds)
			laneEnds = append(laneEnds, end)
		}
	}
}
