package pipeline

import (
	"fmt"

	"wai/internal/item"
	"wai/internal/queue"
)

// Dispatcher moves items between stages. Stages never reference each other
// directly; they hand items to the dispatcher by stage name.
type Dispatcher interface {
	Dispatch(stage item.Stage, it item.Item) error
}

// Router is the concrete dispatcher: a stage-to-queue table with an optional
// prepare hook per stage, run on the item before it is enqueued. The aging
// stage uses the hook to initialize ripeness bookkeeping.
type Router struct {
	queues  map[item.Stage]*queue.Queue
	prepare map[item.Stage]func(*item.Item)
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{
		queues:  make(map[item.Stage]*queue.Queue),
		prepare: make(map[item.Stage]func(*item.Item)),
	}
}

// Register wires a queue into the routing table. A nil prepare is allowed.
func (r *Router) Register(q *queue.Queue, prepare func(*item.Item)) {
	r.queues[q.Stage()] = q
	if prepare != nil {
		r.prepare[q.Stage()] = prepare
	}
}

// Dispatch prepares and enqueues the item onto the named stage's queue.
func (r *Router) Dispatch(stage item.Stage, it item.Item) error {
	q, ok := r.queues[stage]
	if !ok {
		return fmt.Errorf("pipeline: no queue registered for stage %q", stage)
	}
	if prepare, ok := r.prepare[stage]; ok {
		prepare(&it)
	}
	return q.Enqueue(it)
}
