package engine

import (
	"context"
	"fmt"
)

// Pool serializes access to a small set of non-reentrant Adapter instances,
// so concurrent queries do not race on one adapter's table registrations
// (spec.md §4.7, §5).
type Pool struct {
	factory Factory
	slots   chan Adapter
}

// NewPool creates a Pool of size adapters, all built by factory.
func NewPool(ctx context.Context, factory Factory, size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{factory: factory, slots: make(chan Adapter, size)}
	for i := 0; i < size; i++ {
		a, err := factory()
		if err != nil {
			return nil, fmt.Errorf("building engine adapter %d/%d: %w", i+1, size, err)
		}
		p.slots <- a
	}
	return p, nil
}

// Borrow waits for an available adapter or ctx cancellation. The caller must
// call release (returned) exactly once.
func (p *Pool) Borrow(ctx context.Context) (Adapter, func(), error) {
	select {
	case a := <-p.slots:
		return a, func() { p.slots <- a }, nil
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	}
}

// With runs fn against a borrowed adapter, resetting its registrations
// afterward so the next borrower starts clean.
func (p *Pool) With(ctx context.Context, fn func(Adapter) error) error {
	a, release, err := p.Borrow(ctx)
	if err != nil {
		return err
	}
	defer release()
	defer a.Reset(ctx) //nolint:errcheck // best-effort cleanup; Execute's own error takes precedence
	return fn(a)
}
