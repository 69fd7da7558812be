package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tombee/flowctl/pkg/errors"
)

// Step is the execution-time representation of a runnable node within a
// compiled plan. DependsOn lists the ids of other steps that must reach
// success before this step may dispatch; it never contains input or
// output node ids.
type Step struct {
	ID        string   `json:"id"`
	Kind      NodeKind `json:"kind"`
	DependsOn []string `json:"dependsOn"`
}

// Plan is a validated, dependency-ordered execution plan. Steps appear
// in topological order with ties broken by original node order, so the
// same workflow always compiles to the same plan.
type Plan struct {
	Steps        []Step   `json:"steps"`
	MaxSteps     int      `json:"maxSteps"`
	OutputNodeID string   `json:"outputNodeId"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Compile turns a workflow into an execution plan. Failures are always
// *errors.CompileError: no runnable node, no output node, or a cycle
// among runnable-node dependencies.
//
// Only agent and template nodes become steps. Edges from input nodes
// feed data but impose no ordering constraint; edges between runnable
// nodes define the dependency relation the topological sort honors.
// When multiple output nodes exist, the first in node order receives
// the final answer and the rest are reported as warnings.
func Compile(w *Workflow) (*Plan, error) {
	var runnables []string
	runnableSet := make(map[string]bool)
	for _, n := range w.Nodes {
		if n.Kind.Runnable() {
			runnables = append(runnables, n.ID)
			runnableSet[n.ID] = true
		}
	}
	if len(runnables) == 0 {
		return nil, &errors.CompileError{Reason: "no agent or template node to execute"}
	}

	outputID := ""
	var extraOutputs []string
	for _, n := range w.Nodes {
		if n.Kind == KindOutput {
			if outputID == "" {
				outputID = n.ID
			} else {
				extraOutputs = append(extraOutputs, n.ID)
			}
		}
	}
	if outputID == "" {
		return nil, &errors.CompileError{Reason: "no output node to receive the result"}
	}

	// Dependency relation restricted to runnable nodes. An edge only
	// orders execution when both endpoints are runnable.
	deps := make(map[string]map[string]bool, len(runnables))
	hasIncoming := make(map[string]bool)
	for _, id := range runnables {
		deps[id] = make(map[string]bool)
	}
	for _, e := range w.Edges {
		if runnableSet[e.Target] {
			hasIncoming[e.Target] = true
			if runnableSet[e.Source] {
				deps[e.Target][e.Source] = true
			}
		}
	}

	if cycle := findCycle(runnables, deps); len(cycle) > 0 {
		return nil, &errors.CompileError{
			Reason: "cycle detected among node dependencies",
			Nodes:  cycle,
		}
	}

	plan := &Plan{OutputNodeID: outputID}

	// Kahn-style selection: repeatedly take nodes whose dependencies
	// are already ordered, preserving original node order within each
	// round so ties resolve deterministically.
	ordered := make(map[string]bool, len(runnables))
	remaining := len(runnables)
	for remaining > 0 {
		progressed := false
		for _, id := range runnables {
			if ordered[id] {
				continue
			}
			satisfied := true
			for dep := range deps[id] {
				if !ordered[dep] {
					satisfied = false
					break
				}
			}
			if !satisfied {
				continue
			}
			dependsOn := make([]string, 0, len(deps[id]))
			for dep := range deps[id] {
				dependsOn = append(dependsOn, dep)
			}
			sort.Strings(dependsOn)
			plan.Steps = append(plan.Steps, Step{
				ID:        id,
				Kind:      w.NodeByID(id).Kind,
				DependsOn: dependsOn,
			})
			ordered[id] = true
			remaining--
			progressed = true
		}
		if !progressed {
			// Unreachable after findCycle, kept as a guard.
			return nil, &errors.CompileError{Reason: "cycle detected among node dependencies"}
		}
	}
	plan.MaxSteps = len(plan.Steps)

	for _, id := range runnables {
		if !hasIncoming[id] {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("node %q has no incoming edges and is disconnected from any input", id))
		}
	}
	if len(extraOutputs) > 0 {
		plan.Warnings = append(plan.Warnings,
			fmt.Sprintf("only the first output node %q receives the final result; ignoring: %s",
				outputID, strings.Join(extraOutputs, ", ")))
	}

	return plan, nil
}

// Colors for cycle detection.
const (
	colorWhite = iota // unvisited
	colorGray         // in progress on the current DFS path
	colorBlack        // fully explored
)

// findCycle runs a three-color DFS over the runnable dependency graph
// and returns the node ids on the first cycle found, or nil. The gray
// marking distinguishes a genuine back-edge from re-reaching an already
// handled node through a different path.
func findCycle(nodes []string, deps map[string]map[string]bool) []string {
	color := make(map[string]int, len(nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = colorGray
		stack = append(stack, id)
		for dep := range deps[id] {
			switch color[dep] {
			case colorGray:
				// Back-edge: the cycle is the stack segment from dep onward.
				for i, s := range stack {
					if s == dep {
						cycle = append(cycle, stack[i:]...)
						break
					}
				}
				return true
			case colorWhite:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = colorBlack
		return false
	}

	for _, id := range nodes {
		if color[id] == colorWhite && visit(id) {
			sort.Strings(cycle)
			return cycle
		}
	}
	return nil
}
