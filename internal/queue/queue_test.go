package queue_test

import (
	"errors"
	"testing"

	"wai/internal/item"
	"wai/internal/logging"
	"wai/internal/queue"
	"wai/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func mk(title string) item.Item {
	return item.New("creator", title, "20260101", "https://example.com/"+title)
}

func TestEnqueueDequeueOrder(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageDecision, false)
	if err != nil {
		t.Fatal(err)
	}

	for _, title := range []string{"a", "b", "c"} {
		if err := q.Enqueue(mk(title)); err != nil {
			t.Fatalf("enqueue %s: %v", title, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("len = %d, want 3", q.Len())
	}

	for _, want := range []string{"a", "b", "c"} {
		it, err := q.DequeueFIFO(nil)
		if err != nil {
			t.Fatal(err)
		}
		if it == nil || it.Title != want {
			t.Fatalf("dequeued %v, want %s", it, want)
		}
	}
	if it, _ := q.DequeueFIFO(nil); it != nil {
		t.Fatalf("empty queue returned %v", it)
	}
}

func TestFlipFlopReversesRemainder(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageDownload, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, title := range []string{"a", "b", "c", "d"} {
		if err := q.Enqueue(mk(title)); err != nil {
			t.Fatal(err)
		}
	}

	// a [b c d] -> reversed [d c b]; d [c b] -> reversed [b c]; b; c.
	for _, want := range []string{"a", "d", "b", "c"} {
		it, err := q.DequeueFIFO(nil)
		if err != nil {
			t.Fatal(err)
		}
		if it.Title != want {
			t.Fatalf("dequeued %q, want %q", it.Title, want)
		}
	}
}

func TestPersistenceAcrossReload(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageAging, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(mk("survivor")); err != nil {
		t.Fatal(err)
	}

	reloaded, err := queue.New(st, item.StageAging, false)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("reloaded len = %d, want 1", reloaded.Len())
	}
	it, err := reloaded.DequeueFIFO(nil)
	if err != nil {
		t.Fatal(err)
	}
	if it.Title != "survivor" {
		t.Fatalf("reloaded item %q", it.Title)
	}
}

func TestDequeueDuePicksMostOverdue(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageAging, false)
	if err != nil {
		t.Fatal(err)
	}

	future := mk("future")
	future.Aging = &item.AgingState{NextAging: 2000}
	recent := mk("recent")
	recent.Aging = &item.AgingState{NextAging: 900}
	overdue := mk("overdue")
	overdue.Aging = &item.AgingState{NextAging: 500}
	for _, it := range []item.Item{future, recent, overdue} {
		if err := q.Enqueue(it); err != nil {
			t.Fatal(err)
		}
	}

	it, err := q.DequeueDue(1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if it == nil || it.Title != "overdue" {
		t.Fatalf("dequeued %v, want overdue", it)
	}
	if q.Len() != 2 {
		t.Fatalf("len after dequeue = %d, want 2", q.Len())
	}

	it, err = q.DequeueDue(1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if it == nil || it.Title != "recent" {
		t.Fatalf("dequeued %v, want recent", it)
	}

	if it, _ := q.DequeueDue(1000, nil); it != nil {
		t.Fatalf("future item dequeued early: %v", it)
	}
}

func TestDequeueDueTreatsMissingAgingAsDue(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageAging, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(mk("fresh")); err != nil {
		t.Fatal(err)
	}

	it, err := q.DequeueDue(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if it == nil || it.Title != "fresh" {
		t.Fatalf("dequeued %v, want fresh", it)
	}
}

func TestDequeueCommitRunsBeforeQueueShrinks(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageDecision, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(mk("handoff")); err != nil {
		t.Fatal(err)
	}

	it, err := q.DequeueFIFO(func(it item.Item) error {
		// At commit time the item must still sit in the persisted queue
		// file; a crash here leaves it recoverable.
		persisted, err := st.LoadQueue(item.StageDecision)
		if err != nil {
			return err
		}
		if len(persisted) != 1 || persisted[0].Title != "handoff" {
			t.Fatalf("queue file during commit = %v, want the undequeued item", persisted)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if it == nil || it.Title != "handoff" {
		t.Fatalf("dequeued %v, want handoff", it)
	}

	persisted, err := st.LoadQueue(item.StageDecision)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 0 {
		t.Fatalf("queue file after dequeue = %v, want empty", persisted)
	}
}

func TestDequeueCommitErrorKeepsItemQueued(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageDecision, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(mk("sticky")); err != nil {
		t.Fatal(err)
	}

	wantErr := errors.New("current file write failed")
	it, err := q.DequeueFIFO(func(item.Item) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if it != nil {
		t.Fatalf("dequeued %v despite commit failure", it)
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want item kept", q.Len())
	}
	persisted, err := st.LoadQueue(item.StageDecision)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 1 || persisted[0].Title != "sticky" {
		t.Fatalf("queue file = %v, want the kept item", persisted)
	}
}

func TestDequeueDueCommitErrorKeepsItemQueued(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageAging, false)
	if err != nil {
		t.Fatal(err)
	}
	due := mk("due")
	due.Aging = &item.AgingState{NextAging: 10}
	if err := q.Enqueue(due); err != nil {
		t.Fatal(err)
	}

	wantErr := errors.New("current file write failed")
	it, err := q.DequeueDue(100, func(item.Item) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if it != nil {
		t.Fatalf("dequeued %v despite commit failure", it)
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want item kept", q.Len())
	}
}

func TestRemove(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageDecision, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, title := range []string{"keep", "drop", "drop"} {
		if err := q.Enqueue(mk(title)); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := q.Remove(func(it item.Item) bool { return it.Title == "drop" })
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	snapshot := q.Snapshot()
	if len(snapshot) != 1 || snapshot[0].Title != "keep" {
		t.Fatalf("snapshot = %v", snapshot)
	}
}

func TestEnqueueSignalsWake(t *testing.T) {
	st := newStore(t)
	q, err := queue.New(st, item.StageDecision, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(mk("a")); err != nil {
		t.Fatal(err)
	}
	// Second enqueue must not block even though nobody drained the channel.
	if err := q.Enqueue(mk("b")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-q.Wake():
	default:
		t.Fatal("wake channel empty after enqueue")
	}
}
