// Package engine implements C7: a uniform contract over a SQL engine.
// Multiple adapters may coexist; the adapter is chosen by configured
// factory name. Adapter instances are not assumed
// thread-safe — callers serialize access to a single instance or pool them
// (spec.md §4.7, §5).
//
// The registry shape (RegisterFactory/registry) is lifted directly
// from the teacher's _teacher_ref/storage_factory/factory.go
// BackendFactory/RegisterBackend pattern, generalized from storage backends
// to SQL engines.
package engine

import (
	"context"

	"github.com/steveyegge/curq/internal/types"
)

// Feature is a capability an adapter may or may not support.
type Feature int

const (
	FeatureWindowFunctions Feature = iota
	FeatureCTEs
	FeatureReadRemoteDirectly
)

// Adapter is the minimal capability set the dispatcher consumes. It is the
// only place engine-specific behavior lives (spec.md §4.7).
type Adapter interface {
	// RegisterTable associates a logical name with a set of files.
	RegisterTable(ctx context.Context, name string, files []types.FileRef) error
	// RegisterFile is a single-file convenience wrapper over RegisterTable.
	RegisterFile(ctx context.Context, name string, file types.FileRef) error
	// Execute runs sql and returns at most rowLimit rows.
	Execute(ctx context.Context, sql string, rowLimit int) (*types.ResultFrame, error)
	// Supports reports whether a feature is available on this adapter.
	Supports(feature Feature) bool
	// Name identifies the adapter for query metadata (spec.md §4.8 step 6).
	Name() string
	// Reset discards all table registrations made on this instance, so a
	// pooled adapter can be returned clean after an Execute call (spec.md
	// §4.8: "each query owns its registrations for the duration of the
	// execute call").
	Reset(ctx context.Context) error
}

// Factory constructs an Adapter instance. Factories are registered by name
// so the dispatcher can select one by configuration.
type Factory func() (Adapter, error)

var registry = make(map[string]Factory)

// RegisterFactory registers an engine adapter factory under name.
func RegisterFactory(name string, factory Factory) {
	registry[name] = factory
}

// New constructs a fresh adapter instance for the named, registered engine.
func New(name string) (Adapter, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, &UnknownEngineError{Name: name}
	}
	return factory()
}

// UnknownEngineError is returned by New for an unregistered engine name.
type UnknownEngineError struct{ Name string }

func (e *UnknownEngineError) Error() string {
	return "unknown engine adapter: " + e.Name
}
