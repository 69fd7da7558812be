package flow

import (
	"strings"
	"testing"

	"github.com/tombee/flowctl/pkg/errors"
)

func TestCompileLinearChain(t *testing.T) {
	plan, err := Compile(linearWorkflow())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if plan.MaxSteps != 2 {
		t.Errorf("MaxSteps = %d, want 2", plan.MaxSteps)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("Steps = %v, want 2 steps", plan.Steps)
	}
	if plan.Steps[0].ID != "ag" || plan.Steps[1].ID != "tpl" {
		t.Errorf("step order = [%s, %s], want [ag, tpl]", plan.Steps[0].ID, plan.Steps[1].ID)
	}
	if plan.OutputNodeID != "out" {
		t.Errorf("OutputNodeID = %q, want %q", plan.OutputNodeID, "out")
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", plan.Warnings)
	}

	// The template step depends on the agent step only.
	if len(plan.Steps[0].DependsOn) != 0 {
		t.Errorf("agent DependsOn = %v, want empty", plan.Steps[0].DependsOn)
	}
	if len(plan.Steps[1].DependsOn) != 1 || plan.Steps[1].DependsOn[0] != "ag" {
		t.Errorf("template DependsOn = %v, want [ag]", plan.Steps[1].DependsOn)
	}
}

func TestCompileInputEdgesImposeNoOrdering(t *testing.T) {
	w := &Workflow{
		Metadata: Metadata{Name: "fan-in"},
		Nodes: []Node{
			{ID: "in1", Kind: KindInput, Config: NodeConfig{Text: "a"}},
			{ID: "in2", Kind: KindInput, Config: NodeConfig{Text: "b"}},
			{ID: "ag", Kind: KindAgent, Config: NodeConfig{Model: "m"}},
			{ID: "out", Kind: KindOutput},
		},
		Edges: []Edge{
			{ID: "e1", Source: "in1", Target: "ag"},
			{ID: "e2", Source: "in2", Target: "ag"},
			{ID: "e3", Source: "ag", Target: "out"},
		},
	}

	plan, err := Compile(w)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("Steps = %v, want 1 step", plan.Steps)
	}
	if len(plan.Steps[0].DependsOn) != 0 {
		t.Errorf("DependsOn = %v, want empty (input edges feed data, not ordering)", plan.Steps[0].DependsOn)
	}
}

func TestCompileFailures(t *testing.T) {
	tests := []struct {
		name       string
		workflow   *Workflow
		wantReason string
	}{
		{
			name: "no runnable node",
			workflow: &Workflow{
				Nodes: []Node{
					{ID: "in", Kind: KindInput},
					{ID: "out", Kind: KindOutput},
				},
				Edges: []Edge{{ID: "e1", Source: "in", Target: "out"}},
			},
			wantReason: "no agent or template node",
		},
		{
			name: "no output node",
			workflow: &Workflow{
				Nodes: []Node{
					{ID: "in", Kind: KindInput},
					{ID: "ag", Kind: KindAgent},
				},
				Edges: []Edge{{ID: "e1", Source: "in", Target: "ag"}},
			},
			wantReason: "no output node",
		},
		{
			name: "cycle between runnable nodes",
			workflow: &Workflow{
				Nodes: []Node{
					{ID: "in", Kind: KindInput},
					{ID: "a", Kind: KindAgent},
					{ID: "b", Kind: KindTemplate},
					{ID: "out", Kind: KindOutput},
				},
				Edges: []Edge{
					{ID: "e1", Source: "in", Target: "a"},
					{ID: "e2", Source: "a", Target: "b"},
					{ID: "e3", Source: "b", Target: "a"},
					{ID: "e4", Source: "b", Target: "out"},
				},
			},
			wantReason: "cycle detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Compile(tt.workflow)
			if plan != nil {
				t.Errorf("plan = %v, want nil", plan)
			}
			var cerr *errors.CompileError
			if !errors.As(err, &cerr) {
				t.Fatalf("error = %v (%T), want *errors.CompileError", err, err)
			}
			if !strings.Contains(cerr.Error(), tt.wantReason) {
				t.Errorf("error = %q, want it to contain %q", cerr.Error(), tt.wantReason)
			}
		})
	}
}

func TestCompileCycleNamesParticipants(t *testing.T) {
	w := &Workflow{
		Nodes: []Node{
			{ID: "in", Kind: KindInput},
			{ID: "a", Kind: KindAgent},
			{ID: "b", Kind: KindAgent},
			{ID: "out", Kind: KindOutput},
		},
		Edges: []Edge{
			{ID: "e1", Source: "in", Target: "a"},
			{ID: "e2", Source: "a", Target: "b"},
			{ID: "e3", Source: "b", Target: "a"},
			{ID: "e4", Source: "a", Target: "out"},
		},
	}

	_, err := Compile(w)
	var cerr *errors.CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *errors.CompileError", err)
	}
	if len(cerr.Nodes) != 2 {
		t.Fatalf("Nodes = %v, want the two cycle members", cerr.Nodes)
	}
	msg := cerr.Error()
	if !strings.Contains(msg, "a") || !strings.Contains(msg, "b") {
		t.Errorf("error %q should name nodes a and b", msg)
	}
}

func TestCompileDisconnectedRunnableWarns(t *testing.T) {
	w := linearWorkflow()
	w.Nodes = append(w.Nodes, Node{ID: "floating", Kind: KindAgent, Config: NodeConfig{Model: "m"}})
	w.Edges = append(w.Edges, Edge{ID: "e5", Source: "floating", Target: "out"})

	plan, err := Compile(w)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	found := false
	for _, warn := range plan.Warnings {
		if strings.Contains(warn, "floating") && strings.Contains(warn, "no incoming edges") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want a disconnected warning naming %q", plan.Warnings, "floating")
	}
}

func TestCompileFirstOutputNodeWins(t *testing.T) {
	w := linearWorkflow()
	w.Nodes = append(w.Nodes, Node{ID: "out2", Kind: KindOutput})
	w.Edges = append(w.Edges, Edge{ID: "e6", Source: "tpl", Target: "out2"})

	plan, err := Compile(w)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if plan.OutputNodeID != "out" {
		t.Errorf("OutputNodeID = %q, want first output node %q", plan.OutputNodeID, "out")
	}
	found := false
	for _, warn := range plan.Warnings {
		if strings.Contains(warn, "out2") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want one naming the ignored output %q", plan.Warnings, "out2")
	}
}

func TestCompileDeterministicTieBreak(t *testing.T) {
	// Two independent agents: order must follow node order, every time.
	w := &Workflow{
		Nodes: []Node{
			{ID: "in", Kind: KindInput},
			{ID: "z", Kind: KindAgent},
			{ID: "a", Kind: KindAgent},
			{ID: "out", Kind: KindOutput},
		},
		Edges: []Edge{
			{ID: "e1", Source: "in", Target: "z"},
			{ID: "e2", Source: "in", Target: "a"},
			{ID: "e3", Source: "z", Target: "out"},
			{ID: "e4", Source: "a", Target: "out"},
		},
	}

	for i := 0; i < 10; i++ {
		plan, err := Compile(w)
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if plan.Steps[0].ID != "z" || plan.Steps[1].ID != "a" {
			t.Fatalf("step order = [%s, %s], want node order [z, a]", plan.Steps[0].ID, plan.Steps[1].ID)
		}
	}
}
