package dispatch

import (
	"context"

	"media-deriver/internal/mediatypes"
	"media-deriver/internal/processor"
)

// WorkerPool is a fixed set of execution slots. Each slot runs one asset at
// a time: Acquire a slot, Invoke on it, then Release it.
type WorkerPool interface {
	Name() string
	Size() int
	Acquire(ctx context.Context) (slot int, err error)
	Release(slot int)
	Invoke(ctx context.Context, slot int, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) error
}

// slots hands out slot indexes 0..n-1.
type slots chan int

func newSlots(n int) slots {
	if n < 1 {
		n = 1
	}
	s := make(slots, n)
	for i := 0; i < n; i++ {
		s <- i
	}
	return s
}

func (s slots) Size() int {
	return cap(s)
}

func (s slots) Acquire(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	select {
	case slot := <-s:
		return slot, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s slots) Release(slot int) {
	s <- slot
}

// AssetProcessor is the per-asset unit of work. *processor.Processor
// implements it.
type AssetProcessor interface {
	Process(ctx context.Context, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) (processor.Outcome, error)
}

// Gate holds back new work, for example under memory pressure.
type Gate interface {
	Wait(ctx context.Context) error
}

// LocalPool runs assets in-process.
type LocalPool struct {
	slots
	proc AssetProcessor
	gate Gate
}

// NewLocalPool creates a pool of size in-process slots.
func NewLocalPool(proc AssetProcessor, size int) *LocalPool {
	return &LocalPool{slots: newSlots(size), proc: proc}
}

// WithGate makes Acquire wait on g after taking a slot.
func (p *LocalPool) WithGate(g Gate) *LocalPool {
	p.gate = g
	return p
}

// Name implements WorkerPool.
func (p *LocalPool) Name() string {
	return "local"
}

// Acquire implements WorkerPool.
func (p *LocalPool) Acquire(ctx context.Context) (int, error) {
	slot, err := p.slots.Acquire(ctx)
	if err != nil || p.gate == nil {
		return slot, err
	}
	if err := p.gate.Wait(ctx); err != nil {
		p.Release(slot)
		return 0, err
	}
	return slot, nil
}

// Invoke implements WorkerPool.
func (p *LocalPool) Invoke(ctx context.Context, _ int, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) error {
	_, err := p.proc.Process(ctx, asset, opts)
	return err
}
