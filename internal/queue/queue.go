// Package queue provides the durable per-stage work queues. Every mutation
// is persisted through the store before it is visible to other goroutines,
// so a crash at any point loses at most the item held in a current-item
// file, never a queued one.
package queue

import (
	"sync"

	"wai/internal/item"
	"wai/internal/store"
)

// Queue is a persistent FIFO guarded by a mutex. A buffered wake channel
// lets producers nudge the owning worker out of its interval sleep.
type Queue struct {
	mu       sync.Mutex
	stage    item.Stage
	store    *store.Store
	items    []item.Item
	flipFlop bool
	wake     chan struct{}
}

// New loads the stage's queue file into memory.
func New(st *store.Store, stage item.Stage, flipFlop bool) (*Queue, error) {
	items, err := st.LoadQueue(stage)
	if err != nil {
		return nil, err
	}
	return &Queue{
		stage:    stage,
		store:    st,
		items:    items,
		flipFlop: flipFlop,
		wake:     make(chan struct{}, 1),
	}, nil
}

// Stage returns the stage this queue feeds.
func (q *Queue) Stage() item.Stage { return q.stage }

// Wake returns the channel the worker selects on to cut its sleep short.
func (q *Queue) Wake() <-chan struct{} { return q.wake }

// Enqueue appends an item, persists, and wakes the worker.
func (q *Queue) Enqueue(it item.Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, it)
	if err := q.persistLocked(); err != nil {
		q.items = q.items[:len(q.items)-1]
		return err
	}
	q.notify()
	return nil
}

// DequeueFIFO removes and returns the head, or nil when empty. A non-nil
// commit runs while the head is still in the persisted queue file; only
// after it succeeds does the queue shrink, so a crash at any point leaves
// the item durable in exactly one place. With flip-flop enabled the
// remainder is reversed after every dequeue, which alternates service
// between the oldest and newest entries.
func (q *Queue) DequeueFIFO(commit func(item.Item) error) (*item.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, nil
	}
	head := q.items[0]
	if commit != nil {
		if err := commit(head); err != nil {
			return nil, err
		}
	}
	rest := append([]item.Item(nil), q.items[1:]...)
	if q.flipFlop {
		reverse(rest)
	}
	prev := q.items
	q.items = rest
	if err := q.persistLocked(); err != nil {
		q.items = prev
		return nil, err
	}
	return &head, nil
}

// DequeueDue removes and returns the most overdue item whose next_aging is
// at or before now. Items without aging state count as immediately due.
// Commit follows the same contract as in DequeueFIFO.
func (q *Queue) DequeueDue(now int64, commit func(item.Item) error) (*item.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	best := -1
	var bestDue int64
	for i := range q.items {
		due := int64(0)
		if q.items[i].Aging != nil {
			due = q.items[i].Aging.NextAging
		}
		if due > now {
			continue
		}
		if best == -1 || due < bestDue {
			best = i
			bestDue = due
		}
	}
	if best == -1 {
		return nil, nil
	}

	picked := q.items[best]
	if commit != nil {
		if err := commit(picked); err != nil {
			return nil, err
		}
	}
	prev := q.items
	q.items = append(append([]item.Item(nil), q.items[:best]...), q.items[best+1:]...)
	if err := q.persistLocked(); err != nil {
		q.items = prev
		return nil, err
	}
	return &picked, nil
}

// Remove deletes every queued item the predicate selects.
func (q *Queue) Remove(match func(item.Item) bool) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := make([]item.Item, 0, len(q.items))
	removed := 0
	for _, it := range q.items {
		if match(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	if removed == 0 {
		return 0, nil
	}
	prev := q.items
	q.items = kept
	if err := q.persistLocked(); err != nil {
		q.items = prev
		return 0, err
	}
	return removed, nil
}

// Snapshot returns a copy of the queued items in order.
func (q *Queue) Snapshot() []item.Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]item.Item(nil), q.items...)
}

// Len reports the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) persistLocked() error {
	return q.store.SaveQueue(q.stage, q.items)
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func reverse(items []item.Item) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
