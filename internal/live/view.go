package live

import (
	"context"
	"sync"
)

// View is a live query result. C always holds at most one value, the newest;
// a reader that falls behind skips straight to the latest snapshot.
type View[T any] struct {
	ch    chan T
	done  chan struct{}
	once  sync.Once
	unsub func()

	// serializes query+deliver so an older snapshot never lands after a newer one
	mu     sync.Mutex
	closed bool
}

func newView[T any]() *View[T] {
	return &View[T]{
		ch:   make(chan T, 1),
		done: make(chan struct{}),
	}
}

// C delivers snapshots. It is closed when the view is closed.
func (v *View[T]) C() <-chan T {
	return v.ch
}

// Done is closed together with C
func (v *View[T]) Done() <-chan struct{} {
	return v.done
}

func (v *View[T]) Close() {
	v.once.Do(func() {
		if v.unsub != nil {
			v.unsub()
		}
		v.mu.Lock()
		v.closed = true
		close(v.ch)
		close(v.done)
		v.mu.Unlock()
	})
}

// refresh runs query and replaces whatever snapshot is still unread
func (v *View[T]) refresh(ctx context.Context, query func(context.Context) (T, error)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}

	val, err := query(ctx)
	if err != nil {
		return err
	}

	select {
	case <-v.ch:
	default:
	}
	v.ch <- val
	return nil
}

// closeOnDone ties the view's lifetime to ctx
func (v *View[T]) closeOnDone(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			v.Close()
		case <-v.done:
		}
	}()
}
