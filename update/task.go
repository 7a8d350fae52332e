package update

import (
	"context"
)

// Task is the future of an operation running on its own goroutine.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func runTask[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.val, t.err = fn()
	}()
	return t
}

// Done is closed once the operation has finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the operation finishes or ctx is done. Giving up on
// ctx does not stop the operation; cancel the context it was started with.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
