package cipher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateOperation is returned when an operation name is registered twice.
var ErrDuplicateOperation = errors.New("operation already registered")

// Registry resolves operation names for pipelines. It is safe for
// concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns a registry holding ops.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{ops: make(map[string]Operation, len(ops))}
	if err := r.Register(ops...); err != nil {
		return nil, err
	}
	return r, nil
}

// Builtin returns the registry of the codec operations.
func Builtin() *Registry {
	return builtin
}

// GetOperation looks name up among the built-in operations.
func GetOperation(name string) (Operation, bool) {
	return builtin.Lookup(name)
}

// Register adds ops. Nothing is added when any of them is invalid.
func (r *Registry) Register(ops ...Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		if op == nil {
			return errors.New("cannot register nil operation")
		}
		name := op.Name()
		if name == "" {
			return errors.New("operation name cannot be empty")
		}
		if _, exists := r.ops[name]; exists || seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateOperation, name)
		}
		seen[name] = true
	}
	for _, op := range ops {
		r.ops[op.Name()] = op
	}
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[name]
	return op, ok
}

// Names lists the registered operation names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run feeds input through each step of p in order. The first failing step
// aborts the run without a partial result.
func (r *Registry) Run(ctx context.Context, p *Pipeline, input []byte) ([]byte, error) {
	out := input
	for i, name := range p.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w at step %d: %s", ErrUnknownOperation, i, name)
		}
		var err error
		if out, err = op.Execute(ctx, out); err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", name, i, err)
		}
	}
	return out, nil
}

// Invert returns the pipeline that undoes p: each step replaced by its
// inverse, last step first.
func (r *Registry) Invert(p *Pipeline) (*Pipeline, error) {
	if !p.Reversible {
		return nil, fmt.Errorf("pipeline is %w", ErrNotReversible)
	}

	n := len(p.Steps)
	inverted := &Pipeline{Steps: make([]string, n), Reversible: true}
	for i, name := range p.Steps {
		op, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
		}
		inverse := op.Inverse()
		if inverse == "" {
			return nil, fmt.Errorf("operation %s is %w", name, ErrNotReversible)
		}
		if _, ok := r.Lookup(inverse); !ok {
			return nil, fmt.Errorf("inverse of %s: %w: %s", name, ErrUnknownOperation, inverse)
		}
		inverted.Steps[n-1-i] = inverse
	}
	return inverted, nil
}
