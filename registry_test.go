package safeio

import (
	"errors"
	"slices"
	"testing"
)

func TestRegistry(t *testing.T) {
	const name = "fake-registry-test"
	var got map[string]string

	Register(name, func(config map[string]string) (Backend, error) {
		got = config
		return newFakeBackend(), nil
	})
	defer Unregister(name)

	if !IsRegistered(name) {
		t.Fatal("IsRegistered = false after Register")
	}
	if !slices.Contains(Backends(), name) {
		t.Errorf("Backends() = %v, missing %q", Backends(), name)
	}

	b, err := Open(name, map[string]string{"root": "/tmp"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = b.Close() }()

	if got["root"] != "/tmp" {
		t.Errorf("factory received %v", got)
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("no-such-backend", nil)
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open error = %v, want ErrUnknownBackend", err)
	}
}

func TestRegisterPanics(t *testing.T) {
	const name = "fake-duplicate-test"
	factory := func(map[string]string) (Backend, error) { return newFakeBackend(), nil }

	Register(name, factory)
	defer Unregister(name)

	assertPanics(t, "duplicate", func() { Register(name, factory) })
	assertPanics(t, "nil factory", func() { Register("fake-nil-test", nil) })
}

func TestUnregister(t *testing.T) {
	if Unregister("never-registered") {
		t.Error("Unregister of an unknown name = true")
	}
}

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
