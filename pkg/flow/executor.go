package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/tombee/flowctl/pkg/errors"
)

// DefaultMaxConcurrent bounds how many steps may have their external
// calls in flight at once unless overridden.
const DefaultMaxConcurrent = 4

// Executor walks a compiled plan, invoking each step's external action
// in dependency order. Independent ready steps dispatch concurrently;
// their completions interleave through the run's EventChannel. The
// executor owns all workflow runtime state and the history entry under
// construction from a single control goroutine, so step workers only
// ever report results over a channel.
type Executor struct {
	agent         Agent
	renderer      TemplateRenderer
	logger        *slog.Logger
	now           func() time.Time
	maxConcurrent int
	limiter       *rate.Limiter
	tracer        trace.Tracer
	flowID        string
	goal          string
}

// NewExecutor creates an executor bound to its two external
// collaborators.
func NewExecutor(agent Agent, renderer TemplateRenderer) *Executor {
	return &Executor{
		agent:         agent,
		renderer:      renderer,
		logger:        slog.Default(),
		now:           time.Now,
		maxConcurrent: DefaultMaxConcurrent,
		tracer:        noop.NewTracerProvider().Tracer("flowctl"),
	}
}

// WithLogger sets the structured logger for run and step transitions.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithClock overrides the time source. Used by tests for deterministic
// timestamps.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	if now != nil {
		e.now = now
	}
	return e
}

// WithMaxConcurrent bounds concurrent step dispatch. n < 1 means
// unbounded within the plan's own dependency constraints.
func (e *Executor) WithMaxConcurrent(n int) *Executor {
	e.maxConcurrent = n
	return e
}

// WithDispatchLimiter rate-limits step dispatch, pacing calls to the
// external agent.
func (e *Executor) WithDispatchLimiter(l *rate.Limiter) *Executor {
	e.limiter = l
	return e
}

// WithTracer records a span per run and per step.
func (e *Executor) WithTracer(t trace.Tracer) *Executor {
	if t != nil {
		e.tracer = t
	}
	return e
}

// WithFlowID sets the flow id recorded on the history entry.
func (e *Executor) WithFlowID(id string) *Executor {
	e.flowID = id
	return e
}

// WithGoal sets the run goal recorded on the history entry.
func (e *Executor) WithGoal(goal string) *Executor {
	e.goal = goal
	return e
}

// stepDone is a worker's completion report back to the control loop.
type stepDone struct {
	id        string
	result    string
	toolCalls int
	err       error
	started   time.Time
	finished  time.Time
}

// stepState is the control loop's view of one step.
type stepState struct {
	step       Step
	status     string // "", running, success, error, skipped
	started    time.Time
	lane       int
	skipReason string
}

// Run executes the plan against the workflow, streaming events through
// the given channel, which it closes when the run completes. The
// returned error reports programmer misuse only (nil plan or workflow);
// every execution failure is captured in the returned HistoryEntry.
//
// Cancellation is cooperative: once ctx is done no new steps dispatch,
// in-flight steps run to their own outcome, and the run finishes with
// status cancelled.
func (e *Executor) Run(ctx context.Context, plan *Plan, w *Workflow, events *EventChannel[Event]) (*HistoryEntry, error) {
	if plan == nil || w == nil {
		return nil, fmt.Errorf("executor: plan and workflow must not be nil")
	}
	if events == nil {
		events = NewEventChannel[Event]()
	}
	defer events.Close()

	runID := uuid.NewString()
	startedAt := e.now()
	logger := e.logger.With(slog.String("run_id", runID), slog.String("flow", w.Metadata.Name))

	runCtx, runSpan := e.tracer.Start(ctx, "flow.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.steps", plan.MaxSteps),
		))
	defer runSpan.End()

	w.ResetRuntime()

	entry := &HistoryEntry{
		RunID:     runID,
		FlowID:    e.flowID,
		FlowName:  w.Metadata.Name,
		StartedAt: startedAt,
		Status:    RunRunning,
		Goal:      e.goal,
	}
	for _, n := range w.Nodes {
		if n.Kind == KindAgent {
			entry.Model = n.Config.Model
			entry.Provider = n.Config.Provider
			break
		}
	}

	events.Push(statusEvent(startedAt, runID, RunRunning))
	logger.Debug("run started", slog.Int("steps", plan.MaxSteps))

	states := make(map[string]*stepState, len(plan.Steps))
	for i := range plan.Steps {
		states[plan.Steps[i].ID] = &stepState{step: plan.Steps[i]}
	}

	done := make(chan stepDone)
	running := 0
	cancelled := false
	lanes := newLaneTracker()

	for {
		if !cancelled && runCtx.Err() != nil {
			cancelled = true
			logger.Debug("run cancelled, draining in-flight steps")
		}
		if !cancelled {
			for _, s := range plan.Steps {
				st := states[s.ID]
				if st.status != "" || !e.depsSucceeded(states, s) {
					continue
				}
				if e.maxConcurrent > 0 && running >= e.maxConcurrent {
					break
				}
				if e.limiter != nil {
					if err := e.limiter.Wait(runCtx); err != nil {
						cancelled = true
						break
					}
				}
				e.dispatch(runCtx, logger, w, st, lanes, events, startedAt, done)
				running++
			}
		}

		if running == 0 {
			break
		}

		if cancelled {
			// Only drain in-flight completions once cancelled.
			d := <-done
			running--
			e.complete(logger, w, plan, states, d, lanes, events, startedAt, entry)
			continue
		}

		select {
		case d := <-done:
			running--
			e.complete(logger, w, plan, states, d, lanes, events, startedAt, entry)
		case <-runCtx.Done():
			cancelled = true
			logger.Debug("run cancelled, draining in-flight steps")
		}
	}

	e.finish(logger, plan, w, states, entry, events, startedAt, cancelled, runSpan)
	return entry, nil
}

// depsSucceeded reports whether every dependency of the step has
// reached success.
func (e *Executor) depsSucceeded(states map[string]*stepState, s Step) bool {
	for _, dep := range s.DependsOn {
		if st, ok := states[dep]; !ok || st.status != StepSuccess {
			return false
		}
	}
	return true
}

// dispatch marks the step running and launches its worker goroutine.
func (e *Executor) dispatch(ctx context.Context, logger *slog.Logger, w *Workflow, st *stepState, lanes *laneTracker, events *EventChannel[Event], runStart time.Time, done chan<- stepDone) {
	node := w.NodeByID(st.step.ID)
	now := e.now()

	st.status = "running"
	st.started = now
	st.lane = lanes.acquire()
	node.Runtime.Status = StatusRunning

	events.Push(logEvent(now, "info", st.step.ID, StatusRunning,
		fmt.Sprintf("step %s started", st.step.ID)))
	logger.Debug("step started",
		slog.String("step_id", st.step.ID),
		slog.String("kind", string(st.step.Kind)))

	vars := e.resolveInputs(w, st.step.ID)
	prompt := node.Config.Prompt
	template := node.Config.Template
	cfg := AgentConfig{
		Model:      node.Config.Model,
		Provider:   node.Config.Provider,
		Parameters: node.Config.Parameters,
	}
	kind := st.step.Kind
	stepID := st.step.ID

	go func() {
		stepCtx, span := e.tracer.Start(ctx, "flow.step",
			trace.WithAttributes(
				attribute.String("step.id", stepID),
				attribute.String("step.kind", string(kind)),
			))

		d := stepDone{id: stepID, started: now}
		switch kind {
		case KindAgent:
			res, err := e.agent.Invoke(stepCtx, e.renderer.Render(prompt, vars), cfg)
			if err != nil {
				d.err = &errors.StepExecutionError{StepID: stepID, Message: err.Error(), Cause: err}
			} else {
				d.result = res.Text
				d.toolCalls = res.ToolCalls
			}
		case KindTemplate:
			d.result = e.renderer.Render(template, vars)
		}
		d.finished = e.now()

		span.SetAttributes(
			attribute.Int("step.tool_calls", d.toolCalls),
			attribute.Int64("step.duration_ms", d.finished.Sub(d.started).Milliseconds()),
			attribute.Bool("step.failed", d.err != nil),
		)
		span.End()

		done <- d
	}()
}

// resolveInputs gathers the variables available to a step: literal text
// from connected input nodes plus results of completed upstream steps.
// Dependencies have all succeeded by dispatch time, so upstream results
// are final.
func (e *Executor) resolveInputs(w *Workflow, stepID string) map[string]string {
	vars := make(map[string]string)
	for _, edge := range w.Edges {
		if edge.Target != stepID {
			continue
		}
		src := w.NodeByID(edge.Source)
		if src == nil {
			continue
		}
		switch {
		case src.Kind == KindInput:
			vars[src.ID] = src.Config.Text
		case src.Kind.Runnable():
			vars[src.ID] = src.Config.Result
		}
	}
	return vars
}

// complete folds a worker's report into run state: node runtime, result
// propagation, skip marking, and event emission.
func (e *Executor) complete(logger *slog.Logger, w *Workflow, plan *Plan, states map[string]*stepState, d stepDone, lanes *laneTracker, events *EventChannel[Event], runStart time.Time, entry *HistoryEntry) {
	st := states[d.id]
	node := w.NodeByID(d.id)
	durationMS := d.finished.Sub(d.started).Milliseconds()
	node.Runtime.DurationMS = durationMS
	lanes.release(st.lane)

	if d.err != nil {
		st.status = StepError
		node.Runtime.Status = StatusError
		node.Runtime.Error = d.err.Error()

		events.Push(logEvent(d.finished, "error", d.id, StatusError,
			fmt.Sprintf("step %s failed: %v", d.id, d.err)))
		logger.Warn("step failed",
			slog.String("step_id", d.id),
			slog.Int64("duration_ms", durationMS),
			slog.Any("error", d.err))

		e.skipDependents(logger, states, events, d.id, d.finished)
	} else {
		st.status = StepSuccess
		node.Runtime.Status = StatusSuccess
		node.Config.Result = d.result

		// Propagate to the designated output node if wired directly.
		for _, edge := range w.Edges {
			if edge.Source == d.id && edge.Target == plan.OutputNodeID {
				w.NodeByID(plan.OutputNodeID).Config.Result = d.result
			}
		}

		events.Push(logEvent(d.finished, "info", d.id, StatusSuccess,
			fmt.Sprintf("step %s completed", d.id)))
		logger.Debug("step completed",
			slog.String("step_id", d.id),
			slog.Int64("duration_ms", durationMS),
			slog.Int("tool_calls", d.toolCalls))
	}

	events.Push(timelineEvent(d.finished, TimelineSpan{
		StepID:     d.id,
		Label:      d.id,
		Status:     st.status,
		StartMS:    d.started.Sub(runStart).Milliseconds(),
		DurationMS: durationMS,
		Lane:       st.lane,
	}))

	entry.Steps = append(entry.Steps, StepRecord{
		StepID:      d.id,
		Description: stepDescription(st.step.Kind, d.id),
		Status:      st.status,
		StartMS:     d.started.Sub(runStart).Milliseconds(),
		DurationMS:  durationMS,
		ToolCalls:   d.toolCalls,
		Error:       node.Runtime.Error,
	})
}

// skipDependents marks every step that transitively depends on the
// failed step as skipped, so it is never dispatched.
func (e *Executor) skipDependents(logger *slog.Logger, states map[string]*stepState, events *EventChannel[Event], failedID string, now time.Time) {
	skipped := map[string]bool{failedID: true}
	for changed := true; changed; {
		changed = false
		for id, st := range states {
			if st.status != "" {
				continue
			}
			for _, dep := range st.step.DependsOn {
				if skipped[dep] {
					st.status = StepSkipped
					st.skipReason = fmt.Sprintf("upstream step %q failed", failedID)
					skipped[id] = true
					changed = true
					events.Push(logEvent(now, "warn", id, "",
						fmt.Sprintf("step %s skipped: upstream step %q failed", id, failedID)))
					logger.Debug("step skipped",
						slog.String("step_id", id),
						slog.String("failed_upstream", failedID))
					break
				}
			}
		}
	}
}

// finish records the terminal run state on the entry and emits the
// final status event.
func (e *Executor) finish(logger *slog.Logger, plan *Plan, w *Workflow, states map[string]*stepState, entry *HistoryEntry, events *EventChannel[Event], runStart time.Time, cancelled bool, runSpan trace.Span) {
	now := e.now()

	// Steps never dispatched (cancellation or upstream failure found
	// after the loop ended) are recorded as skipped.
	for _, s := range plan.Steps {
		st := states[s.ID]
		if st.status != "" && st.status != StepSkipped {
			continue
		}
		reason := st.skipReason
		if reason == "" {
			reason = "upstream step failed"
			if cancelled && st.status == "" {
				reason = "cancelled"
			}
		}
		if st.status == "" {
			st.status = StepSkipped
		}
		if !hasStepRecord(entry, s.ID) {
			entry.Steps = append(entry.Steps, StepRecord{
				StepID:      s.ID,
				Description: stepDescription(s.Kind, s.ID),
				Status:      StepSkipped,
				Error:       "skipped: " + reason,
			})
		}
	}

	status := RunSuccess
	switch {
	case cancelled:
		status = RunCancelled
	default:
		for _, st := range states {
			if st.status == StepError {
				status = RunError
				entry.Error = w.NodeByID(st.step.ID).Runtime.Error
				break
			}
		}
	}

	// Completion order varies with scheduling; record steps in plan order.
	order := make(map[string]int, len(plan.Steps))
	for i, s := range plan.Steps {
		order[s.ID] = i
	}
	sort.SliceStable(entry.Steps, func(i, j int) bool {
		return order[entry.Steps[i].StepID] < order[entry.Steps[j].StepID]
	})

	entry.Status = status
	entry.CompletedAt = now
	entry.TotalDurationMS = now.Sub(runStart).Milliseconds()
	if out := w.NodeByID(plan.OutputNodeID); out != nil {
		entry.FinalAnswer = out.Config.Result
	}

	runSpan.SetAttributes(
		attribute.String("run.status", string(status)),
		attribute.Int64("run.duration_ms", entry.TotalDurationMS),
	)

	events.Push(statusEvent(now, entry.RunID, status))
	logger.Info("run finished",
		slog.String("status", string(status)),
		slog.Int64("duration_ms", entry.TotalDurationMS))
}

func hasStepRecord(entry *HistoryEntry, stepID string) bool {
	for _, s := range entry.Steps {
		if s.StepID == stepID {
			return true
		}
	}
	return false
}

func stepDescription(kind NodeKind, id string) string {
	switch kind {
	case KindAgent:
		return "agent call " + id
	case KindTemplate:
		return "template render " + id
	}
	return id
}

// laneTracker assigns timeline lanes at dispatch time: each starting
// step takes the lowest free lane and frees it on completion, packing
// concurrently-overlapping bars into the fewest rows.
type laneTracker struct {
	busy []bool
}

func newLaneTracker() *laneTracker {
	return &laneTracker{}
}

func (l *laneTracker) acquire() int {
	for i, b := range l.busy {
		if !b {
			l.busy[i] = true
			return i
		}
	}
	l.busy = append(l.busy, true)
	return len(l.busy) - 1
}

func (l *laneTracker) release(lane int) {
	if lane >= 0 && lane < len(l.busy) {
		l.busy[lane] = false
	}
}
