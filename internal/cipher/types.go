package cipher

import (
	"context"
	"errors"
)

var (
	// ErrUnknownOperation is returned when a pipeline names an operation that
	// is not registered.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrNotReversible is returned when a pipeline cannot be inverted.
	ErrNotReversible = errors.New("not reversible")
)

// Operation is a named text transformation.
type Operation interface {
	Name() string
	Execute(ctx context.Context, input []byte) ([]byte, error)
	// Inverse names the operation that undoes Execute, or "" when none does.
	Inverse() string
}

// Pipeline is an ordered list of operation names. A pipeline marked
// Reversible can be inverted step by step.
type Pipeline struct {
	Steps      []string `json:"steps" yaml:"steps,flow"`
	Reversible bool     `json:"reversible" yaml:"reversible"`
}

// Execute runs the pipeline against the built-in operations.
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	return builtin.Run(ctx, p, input)
}

// Reverse returns the pipeline that undoes p using the built-in operations.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	return builtin.Invert(p)
}

// Recipe is a named, saved pipeline.
type Recipe struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Pipeline    Pipeline `json:"pipeline" yaml:"pipeline"`
	CreatedAt   string   `json:"created_at" yaml:"created_at"`
	UpdatedAt   string   `json:"updated_at" yaml:"updated_at"`
}

// DetectionResult is one candidate encoding for a captured value.
type DetectionResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Reasoning  string  `json:"reasoning"`
	Operation  string  `json:"operation"`
}
