package cipher

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// caseOp applies fn and names its inverse.
type caseOp struct {
	name, inverse string
	fn            func(string) string
}

func (c caseOp) Name() string    { return c.name }
func (c caseOp) Inverse() string { return c.inverse }

func (c caseOp) Execute(_ context.Context, input []byte) ([]byte, error) {
	return []byte(c.fn(string(input))), nil
}

func caseRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(
		caseOp{"upper", "lower", strings.ToUpper},
		caseOp{"lower", "upper", strings.ToLower},
		caseOp{"trim", "", strings.TrimSpace},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestRegistryRegister(t *testing.T) {
	r := caseRegistry(t)

	if err := r.Register(caseOp{name: "upper"}); !errors.Is(err, ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("expected error for nil operation")
	}
	if err := r.Register(caseOp{}); err == nil {
		t.Fatal("expected error for empty name")
	}

	// A rejected batch leaves the registry untouched.
	err := r.Register(caseOp{name: "title"}, caseOp{name: "title"})
	if !errors.Is(err, ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation for repeated name, got %v", err)
	}
	if _, ok := r.Lookup("title"); ok {
		t.Error("title registered despite failed batch")
	}

	if got, want := r.Names(), []string{"lower", "trim", "upper"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names: expected %v, got %v", want, got)
	}
}

func TestRegistryRunAndInvert(t *testing.T) {
	r := caseRegistry(t)
	ctx := context.Background()

	p := &Pipeline{Steps: []string{"lower", "upper"}, Reversible: true}
	out, err := r.Run(ctx, p, []byte("MiXeD"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != "MIXED" {
		t.Errorf("expected MIXED, got %q", out)
	}

	inverse, err := r.Invert(p)
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	if got, want := inverse.Steps, []string{"lower", "upper"}; !reflect.DeepEqual(got, want) {
		t.Errorf("inverse steps: expected %v, got %v", want, got)
	}

	if _, err := r.Invert(&Pipeline{Steps: []string{"upper", "trim"}, Reversible: true}); !errors.Is(err, ErrNotReversible) {
		t.Errorf("expected ErrNotReversible for trim, got %v", err)
	}

	// The built-in names are not visible through a separate registry.
	if _, err := r.Run(ctx, &Pipeline{Steps: []string{"reverse"}}, []byte("x")); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestInvertRequiresRegisteredInverse(t *testing.T) {
	r, err := NewRegistry(caseOp{"upper", "lower", strings.ToUpper})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	_, err = r.Invert(&Pipeline{Steps: []string{"upper"}, Reversible: true})
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation for missing inverse, got %v", err)
	}
}

func TestBuiltinRegistry(t *testing.T) {
	want := []string{
		"base64_decode", "base64_encode",
		"exchange",
		"hex_decode", "hex_encode",
		"postparam_decode", "postparam_encode",
		"reverse",
		"url_decode", "url_encode",
	}
	if got := Builtin().Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected builtins %v, got %v", want, got)
	}
	if err := Builtin().Register(caseOp{name: "reverse"}); !errors.Is(err, ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := GetOperation("postparam_encode"); !ok {
					t.Error("postparam_encode missing")
					return
				}
				_ = Builtin().Names()
			}
		}()
	}
	wg.Wait()
}
