package flow

import (
	"errors"

	"github.com/dshills/flowcheck/flow/emit"
)

// Option is a functional option for configuring a Validator.
//
// Example:
//
//	v, err := flow.NewValidator(
//	    flow.WithRegistry(reg),
//	    flow.WithMetrics(metrics),
//	    flow.WithEmitter(emit.NewLogEmitter(os.Stderr, false)),
//	)
type Option func(*Validator) error

// WithRegistry sets the TypeRegistry consulted for output-port counts,
// required fields, and node roles. The registry replaces the built-in
// defaults entirely; use Merge on DefaultTypeRegistry to layer instead.
func WithRegistry(reg *TypeRegistry) Option {
	return func(v *Validator) error {
		if reg == nil {
			return errors.New("type registry must not be nil")
		}
		v.registry = reg
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection for validation runs.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(v *Validator) error {
		v.metrics = m
		return nil
	}
}

// WithEmitter sets the observability emitter that receives validation
// lifecycle events. Defaults to a NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(v *Validator) error {
		if e == nil {
			return errors.New("emitter must not be nil")
		}
		v.emitter = e
		return nil
	}
}
