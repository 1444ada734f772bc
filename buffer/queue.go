package buffer

import "sync"

// queue is the unbounded hand-off between producers and the receiver
// loop. push never blocks; ready is signalled after every push.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{signal: make(chan struct{}, 1)}
}

func (q *queue[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// ready may fire with nothing queued when a push raced with drainInto.
func (q *queue[T]) ready() <-chan struct{} {
	return q.signal
}

// drainInto appends every queued value to dst in push order.
func (q *queue[T]) drainInto(dst *[]T) {
	q.mu.Lock()
	*dst = append(*dst, q.items...)
	clear(q.items)
	q.items = q.items[:0]
	q.mu.Unlock()
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
