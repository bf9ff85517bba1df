package syncengine

import (
	"context"
	"sync"
)

// Result tracks the remote side of an optimistic mutation. Callers may
// ignore it or Wait for the writes and the trailing refresh to finish.
type Result struct {
	op   string
	done chan struct{}
	once sync.Once
	err  error
}

func newResult(op string) *Result {
	return &Result{op: op, done: make(chan struct{})}
}

// resolved returns a Result that is already finished.
func resolved(op string, err error) *Result {
	r := newResult(op)
	r.finish(err)
	return r
}

func (r *Result) finish(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Operation names the mutation the result belongs to.
func (r *Result) Operation() string {
	return r.op
}

// Done is closed once the remote writes have completed.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Err returns the write error after Done is closed, nil before.
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the writes complete or ctx is done.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
