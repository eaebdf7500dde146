package bacnet

import (
	"context"
	"testing"
	"time"
)

func TestRegistryRegister(t *testing.T) {
	t.Run("second registration for the same key fails", func(t *testing.T) {
		r := newRegistry[int]()
		if _, err := r.register("10.0.0.5:47808"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := r.register("10.0.0.5:47808"); err == nil {
			t.Error("expected error for duplicate registration")
		}
	})

	t.Run("different keys are independent", func(t *testing.T) {
		r := newRegistry[int]()
		if _, err := r.register("10.0.0.5:47808"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := r.register("10.0.0.6:47808"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.outstanding() != 2 {
			t.Errorf("expected 2 outstanding slots, got %d", r.outstanding())
		}
	})
}

func TestRegistryResolve(t *testing.T) {
	t.Run("delivers the result and clears the slot", func(t *testing.T) {
		r := newRegistry[int]()
		ch, _ := r.register("a")

		if !r.resolve("a", 42) {
			t.Fatal("expected resolve to find the slot")
		}
		got, err := r.await(context.Background(), "a", ch, time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 42 {
			t.Errorf("expected 42, got %d", got)
		}
		if r.outstanding() != 0 {
			t.Errorf("expected empty registry, got %d slots", r.outstanding())
		}
	})

	t.Run("result with no outstanding request is dropped", func(t *testing.T) {
		r := newRegistry[int]()
		if r.resolve("nobody", 1) {
			t.Error("expected resolve to report a miss")
		}
	})
}

func TestRegistryAwait(t *testing.T) {
	t.Run("timeout clears the slot", func(t *testing.T) {
		r := newRegistry[int]()
		ch, _ := r.register("a")

		_, err := r.await(context.Background(), "a", ch, 10*time.Millisecond)
		if err == nil {
			t.Fatal("expected timeout error")
		}
		if r.outstanding() != 0 {
			t.Errorf("expected slot removed after timeout, got %d slots", r.outstanding())
		}

		// The key is reusable immediately after the timeout.
		if _, err := r.register("a"); err != nil {
			t.Errorf("unexpected error re-registering after timeout: %v", err)
		}
	})

	t.Run("cancellation clears the slot", func(t *testing.T) {
		r := newRegistry[int]()
		ch, _ := r.register("a")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := r.await(ctx, "a", ch, time.Second); err == nil {
			t.Fatal("expected cancellation error")
		}
		if r.outstanding() != 0 {
			t.Errorf("expected slot removed after cancellation, got %d slots", r.outstanding())
		}
	})
}
