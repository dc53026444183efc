// Package flow provides the workflow graph model and a structural validator
// for n8n-style workflow definitions.
package flow

// Node represents a unit of work in a workflow graph.
//
// A node is identified by its Name, which must be unique within a graph.
// Connections and node-scoped expression references (`$node["Name"]`)
// resolve against this identifier.
type Node struct {
	// Name uniquely identifies the node within its graph.
	Name string

	// Type is the declared node type (e.g. "n8n-nodes-base.httpRequest").
	// The TypeRegistry keys required fields and output-port counts by this value.
	Type string

	// TypeVersion is the declared version of the node type.
	TypeVersion float64

	// Parameters maps configuration field names to values. String values
	// (including strings nested inside maps and slices) may embed
	// double-brace expressions.
	Parameters map[string]any

	// Trigger marks the node as a workflow entry point. A node is also
	// considered a trigger when its type carries the trigger role in the
	// TypeRegistry.
	Trigger bool
}

// Connection represents a directed edge from one node's output port to
// another node's input port.
//
// Multi-output nodes (conditionals) number their output ports from zero:
// port 0 is the true/first branch, port 1 the false/second branch, and so on.
type Connection struct {
	// Source is the identifier of the node the connection leaves.
	Source string

	// SourcePort is the output port index on the source node.
	SourcePort int

	// Target is the identifier of the node the connection enters.
	Target string

	// TargetPort is the input port index on the target node.
	TargetPort int
}

// Graph is a workflow definition: an ordered list of nodes plus the
// connections between them.
//
// A Graph is constructed once (usually by Parse), validated, and discarded.
// The validator never mutates it. Node order is preserved from the input
// document and determines the order of findings in a Report.
type Graph struct {
	// Name is the workflow name from the source document. May be empty.
	Name string

	// Nodes in document order.
	Nodes []Node

	// Connections between nodes, in document order.
	Connections []Connection
}

// NodeByName returns the first node with the given identifier and whether
// one exists.
func (g *Graph) NodeByName(name string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}
