package view

import (
	"sync"

	"github.com/google/uuid"
)

// invalidation asks for one computed node to be refreshed. gen is the node
// generation the firing token was issued for.
type invalidation struct {
	id  uuid.UUID
	gen uint64
}

// queue collects invalidations from any goroutine. Entries are keyed by
// node, so repeated firings before a drain coalesce into one.
type queue struct {
	pending map[uuid.UUID]uint64
	signal  chan struct{}
	order   []uuid.UUID
	mu      sync.Mutex
}

func newQueue() *queue {
	return &queue{
		pending: make(map[uuid.UUID]uint64),
		signal:  make(chan struct{}, 1),
	}
}

// push records an invalidation and reports whether it was new.
func (q *queue) push(id uuid.UUID, gen uint64) bool {
	q.mu.Lock()
	old, dup := q.pending[id]
	if !dup || gen > old {
		q.pending[id] = gen
	}
	if !dup {
		q.order = append(q.order, id)
	}
	q.mu.Unlock()

	if !dup {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return !dup
}

// drain removes and returns everything pending, oldest first.
func (q *queue) drain() []invalidation {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return nil
	}
	out := make([]invalidation, len(q.order))
	for i, id := range q.order {
		out[i] = invalidation{id: id, gen: q.pending[id]}
	}
	clear(q.pending)
	q.order = q.order[:0]
	return out
}

// requeue puts entries back ahead of anything queued since the drain,
// keeping the newer generation where both exist. It does not signal.
func (q *queue) requeue(invs ...invalidation) {
	if len(invs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	front := make([]uuid.UUID, 0, len(invs)+len(q.order))
	for _, inv := range invs {
		old, dup := q.pending[inv.id]
		if dup {
			if inv.gen > old {
				q.pending[inv.id] = inv.gen
			}
			continue
		}
		q.pending[inv.id] = inv.gen
		front = append(front, inv.id)
	}
	q.order = append(front, q.order...)
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
