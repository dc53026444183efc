package flow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Severity classifies how serious a finding is.
//
// Errors are problems that should block deployment; warnings are problems
// worth surfacing that downstream policy may tolerate.
type Severity int

const (
	// SeverityError indicates a structural or syntactic problem that
	// makes the workflow unsafe to deploy.
	SeverityError Severity = iota

	// SeverityWarning indicates a likely mistake that does not by itself
	// make the workflow undeployable.
	SeverityWarning
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalJSON encodes the severity as its string name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity from its string name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Kind identifies the category of a finding.
type Kind string

// Finding kinds reported by the validator.
const (
	// KindNoTriggerNode: the graph has no trigger node, so nothing can
	// ever execute. Reported exactly once, as the only error finding.
	KindNoTriggerNode Kind = "no_trigger_node"

	// KindDuplicateNodeID: two or more nodes share an identifier.
	KindDuplicateNodeID Kind = "duplicate_node_id"

	// KindUnknownConnectionEndpoint: a connection references a node that
	// does not exist in the graph.
	KindUnknownConnectionEndpoint Kind = "unknown_connection_endpoint"

	// KindOrphanedNode: a non-trigger node has zero incoming connections.
	KindOrphanedNode Kind = "orphaned_node"

	// KindUnreachableFromTrigger: no path from any trigger node reaches
	// this node.
	KindUnreachableFromTrigger Kind = "unreachable_from_trigger"

	// KindIncompleteBranch: a multi-output node has an output port with
	// no outgoing connection.
	KindIncompleteBranch Kind = "incomplete_branch"

	// KindDeadEndOutput: a terminal/output node exists but is not reached
	// by any trigger-originated path.
	KindDeadEndOutput Kind = "dead_end_output"

	// KindInvalidExpressionSyntax: a configuration field embeds an
	// expression with unbalanced delimiters or a node-scoped reference to
	// a node that does not exist.
	KindInvalidExpressionSyntax Kind = "invalid_expression_syntax"

	// KindMissingRequiredField: the node's configuration omits a field
	// the TypeRegistry declares mandatory for its type.
	KindMissingRequiredField Kind = "missing_required_field"

	// KindTriggerHasInput: a trigger node has an incoming connection,
	// which can never fire.
	KindTriggerHasInput Kind = "trigger_has_input"
)

// Finding is a single structural or syntactic problem discovered during
// validation.
type Finding struct {
	// Severity is error or warning.
	Severity Severity `json:"severity"`

	// Kind categorizes the problem.
	Kind Kind `json:"kind"`

	// Node is the identifier of the node the finding concerns. Empty for
	// graph-level findings (no_trigger_node).
	Node string `json:"node,omitempty"`

	// Port is the output port index for incomplete_branch findings.
	Port int `json:"port,omitempty"`

	// Field is the configuration field name for missing_required_field
	// and invalid_expression_syntax findings.
	Field string `json:"field,omitempty"`

	// Msg is a deterministic, human-readable description.
	Msg string `json:"msg"`

	// nodeIndex is the position of the subject node in the input node
	// list, used only for deterministic ordering. Graph-level findings
	// use -1 so they sort first within their severity.
	nodeIndex int
}

// Report is the ordered result of validating a single graph.
//
// Findings are sorted by severity (errors first), then by the position of
// the subject node in the input node list, then by kind name. Validating
// the same graph twice yields byte-identical reports.
type Report struct {
	// Workflow is the name of the validated workflow. May be empty.
	Workflow string `json:"workflow,omitempty"`

	// Findings in deterministic order. Empty for a clean graph.
	Findings []Finding `json:"findings"`
}

// ErrorCount returns the number of error-severity findings.
func (r *Report) ErrorCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-severity findings.
func (r *Report) WarningCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// HasErrors reports whether the report contains any error-severity finding.
// By convention a deployment pipeline blocks when this is true.
func (r *Report) HasErrors() bool { return r.ErrorCount() > 0 }

// Text renders the report in a stable line-oriented format:
//
//	error   [unknown_connection_endpoint] connection "A"[0] -> "Z": target node does not exist
//	warning [orphaned_node] node "C": no incoming connections
//
// The output is byte-identical across repeated validations of the same
// graph, which makes it suitable for snapshot testing.
func (r *Report) Text() string {
	var b strings.Builder
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "%-7s [%s] %s\n", f.Severity, f.Kind, f.Msg)
	}
	return b.String()
}

// sortFindings orders findings by severity, input node position, kind
// name, and finally port/field/message so ties never depend on insertion
// order.
func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.nodeIndex != b.nodeIndex {
			return a.nodeIndex < b.nodeIndex
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.Msg < b.Msg
	})
}
