package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/nscache/observe"
)

type Engine struct {
	Cylinders int
	Fuel      string
}

type Car struct {
	Make   string
	Model  string
	Wheels int
	Engine Engine
}

func newTestShared(t *testing.T, opts ...SharedOption) (*MemoryStore, *Shared) {
	t.Helper()
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	shared, err := NewShared(store, opts...)
	if err != nil {
		t.Fatalf("NewShared() error = %v", err)
	}
	return store, shared
}

func mustNew[T any](t *testing.T, shared *Shared, prefix string, secs int) *Namespaced[T] {
	t.Helper()
	c, err := New[T](shared, prefix, secs)
	if err != nil {
		t.Fatalf("New(%q) error = %v", prefix, err)
	}
	return c
}

func logBuffer() (*bytes.Buffer, observe.Logger) {
	var buf bytes.Buffer
	return &buf, observe.NewLoggerWithWriter("debug", &buf)
}

var errStoreDown = errors.New("store down")

// faultyStore fails or panics on every call.
type faultyStore struct {
	panics bool
}

func (s faultyStore) fail() error {
	if s.panics {
		panic("store exploded")
	}
	return errStoreDown
}

func (s faultyStore) TrySet(context.Context, string, any, time.Duration) (bool, error) {
	return false, s.fail()
}

func (s faultyStore) TryGet(context.Context, string) (any, bool, error) {
	return nil, false, s.fail()
}

func (s faultyStore) Remove(context.Context, string) (bool, error) {
	return false, s.fail()
}

func (s faultyStore) Keys(context.Context) ([]string, error) {
	return nil, s.fail()
}

var _ Store = faultyStore{}
