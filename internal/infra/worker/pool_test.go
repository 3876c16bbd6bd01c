//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"coach-storefront/internal/infra/logging"
)

func TestPool(t *testing.T) {
	t.Run("runs every submitted task before Stop returns", func(t *testing.T) {
		p := NewPool(3, logging.Nop())
		p.Start(context.Background())

		var done int32
		for i := 0; i < 20; i++ {
			if err := p.Submit(func(ctx context.Context) error {
				atomic.AddInt32(&done, 1)
				return nil
			}); err != nil {
				t.Fatalf("submit %d: %v", i, err)
			}
		}
		p.Stop()

		if done != 20 {
			t.Fatalf("expected 20 tasks, got %d", done)
		}
	})

	t.Run("a panicking task does not kill the worker", func(t *testing.T) {
		p := NewPool(1, logging.Nop())
		p.Start(context.Background())

		var ran int32
		_ = p.Submit(func(ctx context.Context) error { panic("boom") })
		_ = p.Submit(func(ctx context.Context) error { atomic.AddInt32(&ran, 1); return errors.New("logged") })
		p.Stop()

		if ran != 1 {
			t.Fatal("expected the second task to run")
		}
	})

	t.Run("submit after stop", func(t *testing.T) {
		p := NewPool(1, logging.Nop())
		p.Start(context.Background())
		p.Stop()
		p.Stop()
		if err := p.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrPoolStopped) {
			t.Fatalf("expected ErrPoolStopped, got %v", err)
		}
	})

	t.Run("full queue is reported", func(t *testing.T) {
		p := NewPool(1, logging.Nop()) // not started, so nothing drains
		var err error
		for i := 0; i < 100 && err == nil; i++ {
			err = p.Submit(func(ctx context.Context) error { return nil })
		}
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	})
}
