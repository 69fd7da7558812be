// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package timeline provides ASCII timeline rendering for flow run visualization.
package timeline

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/tombee/flowctl/pkg/flow"
)

const (
	// MinTerminalWidth is the minimum supported terminal width
	MinTerminalWidth = 80
	// DefaultBarWidth is the default width for duration bars
	DefaultBarWidth = 40
	// StatusIconOK indicates successful completion
	StatusIconOK = "✓"
	// StatusIconError indicates failure
	StatusIconError = "✗"

	labelWidth = 20
)

// Renderer renders ASCII timelines from run timeline spans. Each span
// becomes one row; the bar position is proportional to the span's start
// offset within the run, so concurrent steps are visually staggered.
type Renderer struct {
	Width     int
	BarWidth  int
	ShowLanes bool
}

// NewRenderer creates a timeline renderer with terminal width detection.
func NewRenderer() (*Renderer, error) {
	width, _, err := term.GetSize(0)
	if err != nil {
		// Default to 100 if detection fails
		width = 100
	}

	if width < MinTerminalWidth {
		return nil, fmt.Errorf("terminal width %d is too narrow (minimum %d columns)", width, MinTerminalWidth)
	}

	// Reserve space for label, duration, status, and borders
	// Format: "│ step_name ██████░░░░  duration  status │"
	barWidth := width - 42
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < DefaultBarWidth {
		barWidth = DefaultBarWidth
	}

	return &Renderer{
		Width:    width,
		BarWidth: barWidth,
	}, nil
}

// Render generates an ASCII timeline for one run. Spans come ordered by
// start time with lanes already assigned, as produced by flow.BuildTimeline.
func (r *Renderer) Render(title string, spans []flow.TimelineSpan) (string, error) {
	if len(spans) == 0 {
		return "", fmt.Errorf("no spans to render")
	}

	total := totalDurationMS(spans)

	var sb strings.Builder

	border := strings.Repeat("─", r.Width-2)
	sb.WriteString("┌" + border + "┐\n")

	header := fmt.Sprintf("│ Run: %-*s Total: %8s │\n",
		r.Width-25,
		truncate(title, r.Width-25),
		formatDuration(time.Duration(total)*time.Millisecond))
	sb.WriteString(header)

	sb.WriteString("├" + border + "┤\n")

	for _, span := range spans {
		sb.WriteString(r.renderSpan(span, total))
	}

	sb.WriteString("└" + border + "┘\n")

	return sb.String(), nil
}

// totalDurationMS is the end of the latest span. Spans are sorted by
// start, but the longest-running span is not necessarily the last one.
func totalDurationMS(spans []flow.TimelineSpan) int64 {
	var total int64
	for _, span := range spans {
		if end := span.StartMS + span.DurationMS; end > total {
			total = end
		}
	}
	if total == 0 {
		total = 1
	}
	return total
}

// renderSpan generates one timeline row.
func (r *Renderer) renderSpan(span flow.TimelineSpan, totalMS int64) string {
	startPos := int(float64(span.StartMS) / float64(totalMS) * float64(r.BarWidth))
	barLength := int(float64(span.DurationMS) / float64(totalMS) * float64(r.BarWidth))

	if barLength < 1 {
		barLength = 1
	}
	if startPos >= r.BarWidth {
		startPos = r.BarWidth - 1
	}
	if startPos+barLength > r.BarWidth {
		barLength = r.BarWidth - startPos
	}

	bar := make([]rune, r.BarWidth)
	for i := 0; i < r.BarWidth; i++ {
		if i >= startPos && i < startPos+barLength {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}

	statusIcon := StatusIconOK
	if span.Status == flow.StepError {
		statusIcon = StatusIconError
	}

	label := span.Label
	if label == "" {
		label = span.StepID
	}
	if r.ShowLanes {
		label = fmt.Sprintf("%d│%s", span.Lane, label)
	}
	label = truncate(label, labelWidth)

	return fmt.Sprintf("│ %-*s %s  %8s  %s │\n",
		labelWidth,
		label,
		string(bar),
		formatDuration(time.Duration(span.DurationMS)*time.Millisecond),
		statusIcon,
	)
}

// truncate shortens a string to maxLen with ellipsis if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
