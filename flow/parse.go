package flow

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// The persisted workflow format mirrors the n8n editor export: a flat
// node list plus a connections object keyed by source node name. Each
// source entry groups its outgoing connections by output port:
//
//	{
//	  "name": "Order intake",
//	  "nodes": [
//	    {"name": "Webhook", "type": "n8n-nodes-base.webhook",
//	     "typeVersion": 1, "parameters": {"path": "orders"}},
//	    {"name": "Route", "type": "n8n-nodes-base.if", "typeVersion": 2,
//	     "parameters": {}}
//	  ],
//	  "connections": {
//	    "Webhook": {"main": [[{"node": "Route", "type": "main", "index": 0}]]},
//	    "Route":   {"main": [[{"node": "Accept", "type": "main", "index": 0}],
//	                         [{"node": "Reject", "type": "main", "index": 0}]]}
//	  }
//	}
//
// The outer index of "main" is the source output port; "index" is the
// target input port. Unknown document fields (position, credentials,
// settings) are ignored.
type document struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Nodes       []documentNode           `json:"nodes"`
	Connections map[string]documentPorts `json:"connections"`
}

type documentNode struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion float64        `json:"typeVersion"`
	Parameters  map[string]any `json:"parameters"`
	Trigger     bool           `json:"trigger,omitempty"`
}

type documentPorts struct {
	Main [][]documentConnection `json:"main"`
}

type documentConnection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Parse decodes a workflow definition from JSON.
//
// Malformed input — invalid JSON, a node without a name or type, a
// connection with a negative port index — fails with a
// *MalformedGraphError wrapping ErrMalformed. Structural problems in a
// decodable document (unknown endpoints, orphans, missing fields) are NOT
// parse failures; they surface later as validation findings.
func Parse(r io.Reader) (*Graph, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &MalformedGraphError{Msg: "invalid JSON", Err: err}
	}
	return graphFromDocument(&doc)
}

// ParseLenient decodes a workflow definition from JSON, first repairing
// common export damage (trailing commas, single quotes, unquoted keys)
// that hand-edited or tool-mangled documents accumulate. Use Parse when
// the input comes straight from the editor's persisted store.
func ParseLenient(r io.Reader) (*Graph, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &MalformedGraphError{Msg: "failed to read input", Err: err}
	}
	repaired, err := jsonrepair.JSONRepair(string(raw))
	if err != nil {
		return nil, &MalformedGraphError{Msg: "invalid JSON", Err: err}
	}
	return Parse(strings.NewReader(repaired))
}

// ParseFile opens path and parses it with Parse (or ParseLenient when
// lenient is true).
func ParseFile(path string, lenient bool) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if lenient {
		return ParseLenient(f)
	}
	return Parse(f)
}

// graphFromDocument converts the wire document to a Graph, enforcing the
// parsing-level invariants.
func graphFromDocument(doc *document) (*Graph, error) {
	g := &Graph{Name: doc.Name}

	for i, dn := range doc.Nodes {
		name := dn.Name
		if name == "" {
			name = dn.ID
		}
		if name == "" {
			return nil, &MalformedGraphError{Field: fmt.Sprintf("nodes[%d].name", i), Msg: "required field is missing"}
		}
		if dn.Type == "" {
			return nil, &MalformedGraphError{Field: fmt.Sprintf("nodes[%d].type", i), Msg: "required field is missing"}
		}
		g.Nodes = append(g.Nodes, Node{
			Name:        name,
			Type:        dn.Type,
			TypeVersion: dn.TypeVersion,
			Parameters:  dn.Parameters,
			Trigger:     dn.Trigger || typeLooksLikeTrigger(dn.Type),
		})
	}

	// Iterate sources in a stable order so repeated parses of the same
	// document build identical Connection slices.
	for _, source := range connectionSources(doc, g) {
		ports := doc.Connections[source]
		for portIdx, group := range ports.Main {
			for j, conn := range group {
				if conn.Node == "" {
					return nil, &MalformedGraphError{
						Field: fmt.Sprintf("connections[%q].main[%d][%d].node", source, portIdx, j),
						Msg:   "required field is missing",
					}
				}
				if conn.Index < 0 {
					return nil, &MalformedGraphError{
						Field: fmt.Sprintf("connections[%q].main[%d][%d].index", source, portIdx, j),
						Msg:   "negative port index",
					}
				}
				g.Connections = append(g.Connections, Connection{
					Source:     source,
					SourcePort: portIdx,
					Target:     conn.Node,
					TargetPort: conn.Index,
				})
			}
		}
	}

	return g, nil
}

// connectionSources returns the connection map keys in a stable order:
// sources that name a node come first in node order, then any remaining
// sources sorted lexicographically.
func connectionSources(doc *document, g *Graph) []string {
	var ordered []string
	seen := make(map[string]bool, len(doc.Connections))
	for _, n := range g.Nodes {
		if _, ok := doc.Connections[n.Name]; ok && !seen[n.Name] {
			ordered = append(ordered, n.Name)
			seen[n.Name] = true
		}
	}
	var extras []string
	for source := range doc.Connections {
		if !seen[source] {
			extras = append(extras, source)
		}
	}
	sort.Strings(extras)
	return append(ordered, extras...)
}

// typeLooksLikeTrigger reports whether a type name marks an entry point
// by convention: n8n trigger types end in "Trigger" or are webhooks.
func typeLooksLikeTrigger(typeName string) bool {
	lower := strings.ToLower(typeName)
	return strings.HasSuffix(lower, "trigger") || strings.HasSuffix(lower, ".webhook")
}
