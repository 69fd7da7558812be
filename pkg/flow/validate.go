package flow

import "fmt"

// ValidationResult is the outcome of structural validation. Every check
// runs even after earlier ones fail, so a single pass surfaces every
// problem at once. Errors and Warnings appear in the fixed order the
// checks run in, which keeps output deterministic.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate runs all structural checks on a workflow.
//
// Check order: required agent/template node, required output node,
// required input node, orphan nodes, duplicate node ids, dangling edge
// references, then warnings (missing name, agent without a model).
func Validate(w *Workflow) ValidationResult {
	var result ValidationResult

	hasRunnable := false
	hasOutput := false
	hasInput := false
	for _, n := range w.Nodes {
		switch {
		case n.Kind.Runnable():
			hasRunnable = true
		case n.Kind == KindOutput:
			hasOutput = true
		case n.Kind == KindInput:
			hasInput = true
		}
	}

	if !hasRunnable {
		result.Errors = append(result.Errors, "workflow needs at least one agent or template node")
	}
	if !hasOutput {
		result.Errors = append(result.Errors, "workflow needs at least one output node")
	}
	if !hasInput {
		result.Errors = append(result.Errors, "workflow needs at least one input node")
	}

	// Orphan check: every node must appear in at least one edge endpoint.
	connected := make(map[string]bool, len(w.Nodes))
	for _, e := range w.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}
	for _, n := range w.Nodes {
		if !connected[n.ID] {
			result.Errors = append(result.Errors, fmt.Sprintf("orphan node %q is not connected to any edge", n.ID))
		}
	}

	seen := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if seen[n.ID] {
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate node id %q", n.ID))
			continue
		}
		seen[n.ID] = true
	}

	for _, e := range w.Edges {
		if !seen[e.Source] {
			result.Errors = append(result.Errors, fmt.Sprintf("edge %q references missing source node %q", e.ID, e.Source))
		}
		if !seen[e.Target] {
			result.Errors = append(result.Errors, fmt.Sprintf("edge %q references missing target node %q", e.ID, e.Target))
		}
	}

	if w.Metadata.Name == "" {
		result.Warnings = append(result.Warnings, "workflow has no name")
	}
	for _, n := range w.Nodes {
		if n.Kind == KindAgent && n.Config.Model == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("agent node %q has no model configured", n.ID))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
