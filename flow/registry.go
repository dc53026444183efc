package flow

import (
	"encoding/json"
	"fmt"
	"io"
)

// Role classifies what part a node type plays in a workflow.
type Role string

const (
	// RoleTrigger marks types that start workflow execution. Trigger
	// nodes must have no incoming connections.
	RoleTrigger Role = "trigger"

	// RoleOutput marks terminal sink types (notification, storage). An
	// output node the trigger traversal never reaches is a dead end.
	RoleOutput Role = "output"
)

// TypeInfo describes a node type as plain data: how many output ports it
// declares, which configuration fields are mandatory, and its role.
//
// Modeling types as data instead of a type hierarchy keeps the validator
// type-agnostic; new node types are added by registering data alone.
type TypeInfo struct {
	// OutputPorts is the number of output ports the type declares.
	// Zero is treated as one. Conditionals declare two or more, and the
	// validator requires every port 0..OutputPorts-1 to have at least
	// one outgoing connection.
	OutputPorts int `json:"outputPorts"`

	// RequiredFields lists configuration field names that must be
	// present in a node's Parameters.
	RequiredFields []string `json:"requiredFields,omitempty"`

	// Role is the type's role, if any.
	Role Role `json:"role,omitempty"`
}

// TypeRegistry maps node type names to their TypeInfo.
//
// A registry is passed explicitly into each Validator rather than held in
// process-wide state, so concurrent validations stay independent. The
// registry is read-only once handed to a Validator.
type TypeRegistry struct {
	types map[string]TypeInfo
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]TypeInfo)}
}

// Register adds or replaces the TypeInfo for a type name.
func (r *TypeRegistry) Register(typeName string, info TypeInfo) {
	r.types[typeName] = info
}

// Lookup returns the TypeInfo for a type name and whether it is known.
// Unknown types default to a single output port, no required fields, and
// no role.
func (r *TypeRegistry) Lookup(typeName string) (TypeInfo, bool) {
	info, ok := r.types[typeName]
	if !ok {
		return TypeInfo{OutputPorts: 1}, false
	}
	if info.OutputPorts == 0 {
		info.OutputPorts = 1
	}
	return info, true
}

// Len returns the number of registered types.
func (r *TypeRegistry) Len() int { return len(r.types) }

// LoadTypeRegistry reads a registry from JSON: an object mapping type
// name to TypeInfo.
//
//	{
//	  "n8n-nodes-base.if": {"outputPorts": 2},
//	  "n8n-nodes-base.httpRequest": {"requiredFields": ["url"]}
//	}
func LoadTypeRegistry(rd io.Reader) (*TypeRegistry, error) {
	var raw map[string]TypeInfo
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode type registry: %w", err)
	}
	reg := NewTypeRegistry()
	for name, info := range raw {
		reg.Register(name, info)
	}
	return reg, nil
}

// Merge copies every entry of other into r, replacing existing entries.
// Useful for layering a project-specific table over the defaults.
func (r *TypeRegistry) Merge(other *TypeRegistry) {
	if other == nil {
		return
	}
	for name, info := range other.types {
		r.types[name] = info
	}
}

// DefaultTypeRegistry returns a registry preloaded with the common
// n8n-nodes-base types the validator is typically run against. Callers
// layer project-specific tables on top with Merge, or replace it entirely
// via WithRegistry.
func DefaultTypeRegistry() *TypeRegistry {
	reg := NewTypeRegistry()

	// Triggers.
	reg.Register("n8n-nodes-base.manualTrigger", TypeInfo{OutputPorts: 1, Role: RoleTrigger})
	reg.Register("n8n-nodes-base.scheduleTrigger", TypeInfo{OutputPorts: 1, Role: RoleTrigger})
	reg.Register("n8n-nodes-base.webhook", TypeInfo{OutputPorts: 1, Role: RoleTrigger, RequiredFields: []string{"path"}})
	reg.Register("n8n-nodes-base.errorTrigger", TypeInfo{OutputPorts: 1, Role: RoleTrigger})

	// Branching.
	reg.Register("n8n-nodes-base.if", TypeInfo{OutputPorts: 2})
	reg.Register("n8n-nodes-base.filter", TypeInfo{OutputPorts: 1})

	// Processing.
	reg.Register("n8n-nodes-base.httpRequest", TypeInfo{OutputPorts: 1, RequiredFields: []string{"url"}})
	reg.Register("n8n-nodes-base.set", TypeInfo{OutputPorts: 1})
	reg.Register("n8n-nodes-base.code", TypeInfo{OutputPorts: 1})
	reg.Register("n8n-nodes-base.merge", TypeInfo{OutputPorts: 1})
	reg.Register("n8n-nodes-base.noOp", TypeInfo{OutputPorts: 1})

	// Sinks.
	reg.Register("n8n-nodes-base.slack", TypeInfo{OutputPorts: 1, Role: RoleOutput, RequiredFields: []string{"channel"}})
	reg.Register("n8n-nodes-base.emailSend", TypeInfo{OutputPorts: 1, Role: RoleOutput, RequiredFields: []string{"toEmail"}})
	reg.Register("n8n-nodes-base.respondToWebhook", TypeInfo{OutputPorts: 1, Role: RoleOutput})

	return reg
}
