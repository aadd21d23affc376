package daemon_test

import (
	"testing"

	"wai/internal/config"
	"wai/internal/daemon"
	"wai/internal/item"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.OutPath = t.TempDir()
	cfg.Sonarr.URL = "http://localhost:8989"
	cfg.Sonarr.APIKey = "test-key"
	cfg.Sonarr.InPath = "/import"
	return &cfg
}

func mk(title string) item.Item {
	return item.New("creator", title, "20260101", "https://example.com/"+title)
}

func TestFlipFlopConfigAppliesToDecisionQueue(t *testing.T) {
	cfg := newConfig(t)
	cfg.Workflow.FlipFlopQueue = true

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	q := d.Queues()[item.StageDecision]
	for _, title := range []string{"a", "b", "c"} {
		if err := q.Enqueue(mk(title)); err != nil {
			t.Fatal(err)
		}
	}

	it, err := q.DequeueFIFO(nil)
	if err != nil {
		t.Fatal(err)
	}
	if it == nil || it.Title != "a" {
		t.Fatalf("dequeued %v, want a", it)
	}
	tail := q.Snapshot()
	if len(tail) != 2 || tail[0].Title != "c" || tail[1].Title != "b" {
		t.Fatalf("decision queue tail not reversed: got %q, %q", tail[0].Title, tail[1].Title)
	}
}

func TestFlipFlopConfigAppliesToDownloadQueue(t *testing.T) {
	cfg := newConfig(t)
	cfg.Workflow.FlipFlopQueue = true

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	q := d.Queues()[item.StageDownload]
	for _, title := range []string{"a", "b", "c"} {
		if err := q.Enqueue(mk(title)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := q.DequeueFIFO(nil); err != nil {
		t.Fatal(err)
	}
	tail := q.Snapshot()
	if len(tail) != 2 || tail[0].Title != "c" || tail[1].Title != "b" {
		t.Fatalf("download queue tail not reversed: got %q, %q", tail[0].Title, tail[1].Title)
	}
}

func TestFlipFlopDisabledKeepsOrder(t *testing.T) {
	d, err := daemon.New(newConfig(t), nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, stage := range []item.Stage{item.StageDecision, item.StageDownload} {
		q := d.Queues()[stage]
		for _, title := range []string{"a", "b", "c"} {
			if err := q.Enqueue(mk(title)); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := q.DequeueFIFO(nil); err != nil {
			t.Fatal(err)
		}
		tail := q.Snapshot()
		if len(tail) != 2 || tail[0].Title != "b" || tail[1].Title != "c" {
			t.Fatalf("%s queue reordered without flip-flop: got %q, %q", stage, tail[0].Title, tail[1].Title)
		}
	}
}
