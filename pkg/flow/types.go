// Package flow implements the flowctl core: a graph model for visually
// authored workflows, structural validation, compilation into a
// dependency-ordered execution plan, a concurrent execution engine that
// streams events through a multi-producer channel, and the interchange
// and history contracts around them.
package flow

// NodeKind identifies what a node does. The set is closed: the editor,
// compiler, and engine all switch over exactly these four kinds.
type NodeKind string

const (
	// KindInput holds literal text supplied by the user.
	KindInput NodeKind = "input"
	// KindAgent invokes an LLM agent with a prompt and model config.
	KindAgent NodeKind = "agent"
	// KindTemplate renders a template string against upstream values.
	KindTemplate NodeKind = "template"
	// KindOutput receives the final rendered result of a run.
	KindOutput NodeKind = "output"
)

// Runnable reports whether nodes of this kind perform work during
// execution. Input and output nodes are data boundaries, not steps.
func (k NodeKind) Runnable() bool {
	return k == KindAgent || k == KindTemplate
}

// Known reports whether the kind is one of the four supported kinds.
func (k NodeKind) Known() bool {
	switch k {
	case KindInput, KindAgent, KindTemplate, KindOutput:
		return true
	}
	return false
}

// NodeStatus is the runtime status of a node during a run.
type NodeStatus string

const (
	// StatusIdle is the resting state before a run starts.
	StatusIdle NodeStatus = "idle"
	// StatusRunning means the node's external action is in flight.
	StatusRunning NodeStatus = "running"
	// StatusSuccess means the node's action completed.
	StatusSuccess NodeStatus = "success"
	// StatusError means the node's action failed.
	StatusError NodeStatus = "error"
)

// Position is the node's layout position on the editor canvas.
// It has no effect on validation, compilation, or execution.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeConfig holds the kind-specific configuration of a node. Only the
// fields relevant to the node's kind are populated; the rest stay zero.
type NodeConfig struct {
	// Text is the literal value of an input node.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Model, Provider, Prompt, and Parameters configure an agent node.
	Model      string         `json:"model,omitempty" yaml:"model,omitempty"`
	Provider   string         `json:"provider,omitempty" yaml:"provider,omitempty"`
	Prompt     string         `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Template is the template string of a template node.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`

	// Result is the last value produced for this node during a run.
	// For output nodes it is the final answer. Transient: stripped by
	// export and by ResetRuntime.
	Result string `json:"result,omitempty" yaml:"result,omitempty"`
}

// NodeRuntime is the transient per-node execution state. It is mutated
// only by the engine during a run and never persisted: export and
// template save reset it to the zero value with StatusIdle.
type NodeRuntime struct {
	Status     NodeStatus `json:"status" yaml:"status"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64      `json:"durationMs,omitempty" yaml:"durationMs,omitempty"`
}

// Node is a single typed node in the workflow graph.
type Node struct {
	ID       string      `json:"id" yaml:"id"`
	Kind     NodeKind    `json:"kind" yaml:"kind"`
	Position Position    `json:"position" yaml:"position"`
	Config   NodeConfig  `json:"config" yaml:"config"`
	Runtime  NodeRuntime `json:"runtime" yaml:"runtime"`
}

// Edge is a directed connection between two nodes. Type is cosmetic
// (editor rendering hint); dependency semantics come from the kinds of
// the endpoints, see Compile.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Viewport is the editor camera state. Cosmetic.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// Metadata carries the workflow's name and optional description.
type Metadata struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Workflow is the complete editor-authored graph. Nodes is an ordered
// sequence (order breaks ties during topological sorting and decides
// which output node receives the final answer); Edges is a set.
type Workflow struct {
	Nodes    []Node   `json:"nodes" yaml:"nodes"`
	Edges    []Edge   `json:"edges" yaml:"edges"`
	Viewport Viewport `json:"viewport" yaml:"viewport"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// NodeByID returns a pointer to the node with the given id, or nil.
// The pointer aliases the workflow's backing array so the engine can
// update runtime state in place.
func (w *Workflow) NodeByID(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// ResetRuntime returns every node to idle and clears transient results.
// Called before a run starts and before persisting the workflow as a
// saved template, so stored graphs never remember a previous run.
func (w *Workflow) ResetRuntime() {
	for i := range w.Nodes {
		w.Nodes[i].Runtime = NodeRuntime{Status: StatusIdle}
		w.Nodes[i].Config.Result = ""
	}
}

// Clone creates a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}

	c := &Workflow{
		Viewport: w.Viewport,
		Metadata: w.Metadata,
	}

	c.Nodes = make([]Node, len(w.Nodes))
	for i, n := range w.Nodes {
		c.Nodes[i] = n
		if n.Config.Parameters != nil {
			params := make(map[string]any, len(n.Config.Parameters))
			for k, v := range n.Config.Parameters {
				params[k] = v
			}
			c.Nodes[i].Config.Parameters = params
		}
	}

	c.Edges = make([]Edge, len(w.Edges))
	copy(c.Edges, w.Edges)

	return c
}
