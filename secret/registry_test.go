package secret

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("stub", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "stub"}, nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, err := reg.Create(" stub ", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Name() != "stub" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry()
	factory := func(map[string]any) (Provider, error) { return &stubProvider{name: "stub"}, nil }
	_ = reg.Register("stub", factory)

	if err := reg.Register("stub", factory); !errors.Is(err, ErrDuplicateProvider) {
		t.Errorf("Register() duplicate error = %v", err)
	}
	if err := reg.Register("", factory); err == nil {
		t.Error("Register() accepted an empty name")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Error("Register() accepted a nil factory")
	}
	if _, err := reg.Create("missing", nil); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("Create() error = %v, want ErrProviderNotRegistered", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	if got := DefaultRegistry.List(); !reflect.DeepEqual(got, []string{"env", "file"}) {
		t.Fatalf("List() = %v", got)
	}

	t.Setenv("RPCQUERY_TOKEN", "t0k3n")
	env, err := DefaultRegistry.Create("env", nil)
	if err != nil {
		t.Fatalf("Create(env) error = %v", err)
	}
	if v, err := env.Resolve(context.Background(), "RPCQUERY_TOKEN"); err != nil || v != "t0k3n" {
		t.Errorf("Resolve() = (%q, %v)", v, err)
	}

	if _, err := DefaultRegistry.Create("file", map[string]any{}); !errors.Is(err, ErrInvalidRef) {
		t.Errorf("Create(file) without dir error = %v, want ErrInvalidRef", err)
	}
	if _, err := DefaultRegistry.Create("file", map[string]any{"dir": t.TempDir()}); err != nil {
		t.Errorf("Create(file) error = %v", err)
	}
}
