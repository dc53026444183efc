package flow

import (
	"fmt"
	"sort"
	"time"

	"github.com/dshills/flowcheck/flow/emit"
)

// Validator checks a workflow graph for structural soundness before
// deployment and produces an ordered Report of findings.
//
// A Validator holds no mutable state across calls: Validate is a pure
// function of the graph and the configured TypeRegistry, so a single
// Validator may be shared by any number of goroutines without locking.
//
// Example:
//
//	v, err := flow.NewValidator(flow.WithRegistry(reg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := v.Validate(graph)
//	if err != nil {
//	    // malformed input, no partial analysis is possible
//	}
//	if report.HasErrors() {
//	    // block deployment
//	}
type Validator struct {
	registry *TypeRegistry
	metrics  *PrometheusMetrics
	emitter  emit.Emitter
}

// NewValidator creates a Validator. With no options it uses the built-in
// DefaultTypeRegistry, a NullEmitter, and no metrics.
func NewValidator(opts ...Option) (*Validator, error) {
	v := &Validator{
		registry: DefaultTypeRegistry(),
		emitter:  emit.NewNullEmitter(),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Validate checks g and returns a Report of findings.
//
// It fails only when g is not a well-formed graph (nil, a node without a
// name or type, a connection with an empty endpoint or negative port);
// in that case it returns a *MalformedGraphError wrapping ErrMalformed.
// Every structural problem in a well-formed graph is returned as a
// finding, never as an error, so validation always completes and
// enumerates every problem at once.
//
// A graph with no trigger node (including the empty graph) yields exactly
// one error finding of kind no_trigger_node; no further checks run, since
// reachability is undefined without an entry point.
//
// Validate never mutates g.
func (v *Validator) Validate(g *Graph) (*Report, error) {
	start := time.Now()

	if err := checkWellFormed(g); err != nil {
		if v.metrics != nil {
			v.metrics.RecordValidation("malformed", time.Since(start))
		}
		return nil, err
	}

	v.emitter.Emit(emit.Event{
		Workflow: g.Name,
		Msg:      "validate_start",
		Meta: map[string]any{
			"nodes":       len(g.Nodes),
			"connections": len(g.Connections),
		},
	})
	if v.metrics != nil {
		v.metrics.SetGraphSize(len(g.Nodes), len(g.Connections))
	}

	report := &Report{Workflow: g.Name}

	// First occurrence index per identifier. Duplicates resolve to the
	// first occurrence, matching how connections bind by name.
	index := make(map[string]int, len(g.Nodes))
	var duplicates []Finding
	for i, n := range g.Nodes {
		if first, seen := index[n.Name]; seen {
			duplicates = append(duplicates, Finding{
				Severity:  SeverityError,
				Kind:      KindDuplicateNodeID,
				Node:      n.Name,
				Msg:       fmt.Sprintf("node %q: identifier is not unique", n.Name),
				nodeIndex: first,
			})
			continue
		}
		index[n.Name] = i
	}

	triggers := v.triggerIndexes(g)
	if len(triggers) == 0 {
		report.Findings = []Finding{{
			Severity:  SeverityError,
			Kind:      KindNoTriggerNode,
			Msg:       "no trigger node found",
			nodeIndex: -1,
		}}
		v.finish(g, report, start)
		return report, nil
	}

	findings := duplicates

	// Connection endpoints must resolve to existing nodes. Connections
	// with a missing endpoint are excluded from the traversal below.
	incoming := make([]int, len(g.Nodes))
	adjacency := make([][]int, len(g.Nodes))
	portsCovered := make(map[int]map[int]bool, len(g.Nodes))
	for _, c := range g.Connections {
		srcIdx, srcOK := index[c.Source]
		tgtIdx, tgtOK := index[c.Target]
		if !srcOK {
			findings = append(findings, Finding{
				Severity:  SeverityError,
				Kind:      KindUnknownConnectionEndpoint,
				Node:      c.Source,
				Msg:       fmt.Sprintf("connection %q[%d] -> %q: source node does not exist", c.Source, c.SourcePort, c.Target),
				nodeIndex: endpointOrder(index, c.Target, len(g.Nodes)),
			})
		}
		if !tgtOK {
			findings = append(findings, Finding{
				Severity:  SeverityError,
				Kind:      KindUnknownConnectionEndpoint,
				Node:      c.Target,
				Msg:       fmt.Sprintf("connection %q[%d] -> %q: target node does not exist", c.Source, c.SourcePort, c.Target),
				nodeIndex: endpointOrder(index, c.Source, len(g.Nodes)),
			})
		}
		if srcOK {
			// The port counts as connected even when the target is
			// unknown; the broken endpoint is already reported above.
			if portsCovered[srcIdx] == nil {
				portsCovered[srcIdx] = make(map[int]bool)
			}
			portsCovered[srcIdx][c.SourcePort] = true
		}
		if !srcOK || !tgtOK {
			continue
		}
		adjacency[srcIdx] = append(adjacency[srcIdx], tgtIdx)
		incoming[tgtIdx]++
	}

	// Single forward traversal from all triggers drives the
	// reachability-family checks.
	visited := make([]bool, len(g.Nodes))
	queue := append([]int(nil), triggers...)
	for _, t := range triggers {
		visited[t] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	triggerSet := make(map[int]bool, len(triggers))
	for _, t := range triggers {
		triggerSet[t] = true
	}

	for i, n := range g.Nodes {
		if index[n.Name] != i {
			continue // duplicate occurrence, already reported
		}
		info, _ := v.registry.Lookup(n.Type)
		isTrigger := triggerSet[i]

		if isTrigger && incoming[i] > 0 {
			findings = append(findings, Finding{
				Severity:  SeverityWarning,
				Kind:      KindTriggerHasInput,
				Node:      n.Name,
				Msg:       fmt.Sprintf("trigger node %q has incoming connections", n.Name),
				nodeIndex: i,
			})
		}
		if !isTrigger && incoming[i] == 0 {
			findings = append(findings, Finding{
				Severity:  SeverityWarning,
				Kind:      KindOrphanedNode,
				Node:      n.Name,
				Msg:       fmt.Sprintf("node %q: no incoming connections", n.Name),
				nodeIndex: i,
			})
		}
		if !isTrigger && !visited[i] {
			findings = append(findings, Finding{
				Severity:  SeverityWarning,
				Kind:      KindUnreachableFromTrigger,
				Node:      n.Name,
				Msg:       fmt.Sprintf("node %q: not reachable from any trigger node", n.Name),
				nodeIndex: i,
			})
		}
		if info.OutputPorts > 1 {
			for port := 0; port < info.OutputPorts; port++ {
				if !portsCovered[i][port] {
					findings = append(findings, Finding{
						Severity:  SeverityError,
						Kind:      KindIncompleteBranch,
						Node:      n.Name,
						Port:      port,
						Msg:       fmt.Sprintf("node %q: output port %d has no outgoing connection", n.Name, port),
						nodeIndex: i,
					})
				}
			}
		}
		if info.Role == RoleOutput && !visited[i] {
			findings = append(findings, Finding{
				Severity:  SeverityError,
				Kind:      KindDeadEndOutput,
				Node:      n.Name,
				Msg:       fmt.Sprintf("output node %q is never reached from a trigger", n.Name),
				nodeIndex: i,
			})
		}

		findings = append(findings, v.checkRequiredFields(n, info, i)...)
		findings = append(findings, v.checkExpressions(n, index, i)...)
	}

	sortFindings(findings)
	report.Findings = findings
	v.finish(g, report, start)
	return report, nil
}

// triggerIndexes returns the node-list indexes of all trigger nodes:
// nodes flagged explicitly plus nodes whose type carries the trigger role.
func (v *Validator) triggerIndexes(g *Graph) []int {
	var triggers []int
	seen := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if seen[n.Name] {
			continue
		}
		seen[n.Name] = true
		info, _ := v.registry.Lookup(n.Type)
		if n.Trigger || info.Role == RoleTrigger {
			triggers = append(triggers, i)
		}
	}
	return triggers
}

// checkRequiredFields reports configuration fields the node's type
// declares mandatory but the node omits or leaves empty.
func (v *Validator) checkRequiredFields(n Node, info TypeInfo, idx int) []Finding {
	if len(info.RequiredFields) == 0 {
		return nil
	}
	required := append([]string(nil), info.RequiredFields...)
	sort.Strings(required)

	var findings []Finding
	for _, field := range required {
		val, ok := n.Parameters[field]
		if ok {
			if s, isStr := val.(string); !isStr || s != "" {
				continue
			}
		}
		findings = append(findings, Finding{
			Severity:  SeverityError,
			Kind:      KindMissingRequiredField,
			Node:      n.Name,
			Field:     field,
			Msg:       fmt.Sprintf("node %q: required field %q is missing", n.Name, field),
			nodeIndex: idx,
		})
	}
	return findings
}

// checkExpressions scans every string parameter for double-brace
// expressions, reporting unbalanced delimiters and node-scoped references
// that do not resolve.
func (v *Validator) checkExpressions(n Node, index map[string]int, idx int) []Finding {
	var findings []Finding
	reported := make(map[string]bool)

	walkStrings("", n.Parameters, func(field, s string) {
		bodies, ok := scanExpressions(s)
		if !ok {
			key := field + "\x00balance"
			if !reported[key] {
				reported[key] = true
				findings = append(findings, Finding{
					Severity:  SeverityError,
					Kind:      KindInvalidExpressionSyntax,
					Node:      n.Name,
					Field:     field,
					Msg:       fmt.Sprintf("node %q: field %q: unbalanced expression delimiters", n.Name, field),
					nodeIndex: idx,
				})
			}
			return
		}
		for _, body := range bodies {
			for _, ref := range nodeRefs(body) {
				if _, exists := index[ref]; exists {
					continue
				}
				key := field + "\x00" + ref
				if reported[key] {
					continue
				}
				reported[key] = true
				findings = append(findings, Finding{
					Severity:  SeverityError,
					Kind:      KindInvalidExpressionSyntax,
					Node:      n.Name,
					Field:     field,
					Msg:       fmt.Sprintf("node %q: field %q: expression references unknown node %q", n.Name, field, ref),
					nodeIndex: idx,
				})
			}
		}
	})
	return findings
}

// finish records metrics and emits finding and completion events. The
// report is already sorted.
func (v *Validator) finish(g *Graph, report *Report, start time.Time) {
	for _, f := range report.Findings {
		if v.metrics != nil {
			v.metrics.RecordFinding(string(f.Kind), f.Severity.String())
		}
		v.emitter.Emit(emit.Event{
			Workflow: g.Name,
			Node:     f.Node,
			Msg:      "finding",
			Meta: map[string]any{
				"kind":     string(f.Kind),
				"severity": f.Severity.String(),
				"detail":   f.Msg,
			},
		})
	}
	if v.metrics != nil {
		v.metrics.RecordValidation("ok", time.Since(start))
	}
	v.emitter.Emit(emit.Event{
		Workflow: g.Name,
		Msg:      "validate_end",
		Meta: map[string]any{
			"errors":   report.ErrorCount(),
			"warnings": report.WarningCount(),
		},
	})
}

// checkWellFormed enforces the parsing-level invariants on a caller
// constructed graph: Parse output always satisfies them.
func checkWellFormed(g *Graph) error {
	if g == nil {
		return &MalformedGraphError{Msg: "nil graph"}
	}
	for i, n := range g.Nodes {
		if n.Name == "" {
			return &MalformedGraphError{Field: fmt.Sprintf("nodes[%d].name", i), Msg: "required field is missing"}
		}
		if n.Type == "" {
			return &MalformedGraphError{Field: fmt.Sprintf("nodes[%d].type", i), Msg: "required field is missing"}
		}
	}
	for i, c := range g.Connections {
		if c.Source == "" || c.Target == "" {
			return &MalformedGraphError{Field: fmt.Sprintf("connections[%d]", i), Msg: "connection endpoint is empty"}
		}
		if c.SourcePort < 0 || c.TargetPort < 0 {
			return &MalformedGraphError{Field: fmt.Sprintf("connections[%d]", i), Msg: "negative port index"}
		}
	}
	return nil
}

// endpointOrder picks the ordering index for an unknown-endpoint finding:
// the position of the connection's known endpoint when it exists, else
// past the end of the node list.
func endpointOrder(index map[string]int, knownEnd string, nodeCount int) int {
	if i, ok := index[knownEnd]; ok {
		return i
	}
	return nodeCount
}
