package live

import "context"

// Snapshot is one evaluation of a live query.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Watch evaluates query immediately and again after every change to topics,
// delivering each result on the returned channel. The channel is closed when
// ctx is cancelled or the hub is closed.
//
// The subscription is registered before the first evaluation, so a write that
// completes while the first evaluation runs still triggers a re-run.
func Watch[T any](ctx context.Context, h *Hub, query func(context.Context) (T, error), topics ...string) <-chan Snapshot[T] {
	sub := h.Subscribe(topics...)
	out := make(chan Snapshot[T])

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			v, err := query(ctx)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Snapshot[T]{Value: v, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case _, ok := <-sub.C():
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
