package engine

import (
	"context"
)

// Future is the handle to the result of a submitted job or subflow. It is resolved exactly once.
type Future[T any] struct {
	name  string
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any](name string) *Future[T] {
	return &Future[T]{name: name, done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

func (f *Future[T]) Name() string {
	return f.name
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future resolves or ctx is done.
func (f *Future[T]) Result(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
