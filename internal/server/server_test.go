package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wai/internal/item"
	"wai/internal/logging"
	"wai/internal/pipeline"
	"wai/internal/queue"
	"wai/internal/server"
	"wai/internal/store"
)

type fakeController struct {
	running map[item.Stage]bool
}

func (f *fakeController) Start(stage item.Stage) bool {
	f.running[stage] = true
	return true
}

func (f *fakeController) Stop(stage item.Stage) bool {
	stopped := f.running[stage]
	f.running[stage] = false
	return stopped
}

func (f *fakeController) Running(stage item.Stage) bool { return f.running[stage] }

type harness struct {
	srv      *httptest.Server
	store    *store.Store
	decision *queue.Queue
	control  *fakeController
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.New(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	dq, err := queue.New(st, item.StageDecision, false)
	if err != nil {
		t.Fatal(err)
	}
	router := pipeline.NewRouter()
	router.Register(dq, nil)
	control := &fakeController{running: make(map[item.Stage]bool)}

	apiServer := server.New("127.0.0.1:0", st,
		map[item.Stage]*queue.Queue{item.StageDecision: dq}, router, control, logging.NewNop())
	srv := httptest.NewServer(apiServer.Handler())
	t.Cleanup(srv.Close)
	return &harness{srv: srv, store: st, decision: dq, control: control}
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestNotifyEnqueues(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Post(h.srv.URL+"/api/notify?creator=c&title=t&datecode=20250427&url=https%3A%2F%2Fexample%2Fx", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["status"] != "queued" {
		t.Fatalf("body = %v", body)
	}
	if h.decision.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", h.decision.Len())
	}
}

func TestNotifyRejectsMissingFields(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Post(h.srv.URL+"/api/notify?creator=c", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if h.decision.Len() != 0 {
		t.Fatal("invalid item was enqueued")
	}
}

func TestEnqueueParsesMessage(t *testing.T) {
	h := newHarness(t)
	message := "Jet Lag: The Game :: 20250427 :: Ep 2 We Played Hide And Seek Across NYC\n\nhttps://example/x"
	payload, _ := json.Marshal(map[string]string{"message": message})

	resp, err := http.Post(h.srv.URL+"/enqueue", "application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	items := h.decision.Snapshot()
	if len(items) != 1 {
		t.Fatalf("queue len = %d, want 1", len(items))
	}
	it := items[0]
	if it.Creator != "Jet Lag: The Game" || it.Datecode != "20250427" ||
		it.Title != "Ep 2 We Played Hide And Seek Across NYC" || it.URL != "https://example/x" {
		t.Fatalf("parsed item = %+v", it)
	}
}

func TestEnqueueRejectsBadMessage(t *testing.T) {
	h := newHarness(t)
	payload, _ := json.Marshal(map[string]string{"message": "no separators here"})

	resp, err := http.Post(h.srv.URL+"/enqueue", "application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["error"] != "Unable to process message" {
		t.Fatalf("error = %q", body["error"])
	}
	if h.decision.Len() != 0 {
		t.Fatal("unparseable message was enqueued")
	}
}

func TestGetItemFilters(t *testing.T) {
	h := newHarness(t)
	a := item.New("creator-a", "first", "20250101", "https://example/a")
	b := item.New("creator-b", "second", "20250102", "https://example/b")
	for _, it := range []item.Item{a, b} {
		if err := h.store.ArchiveAppend(item.OutcomePass, it); err != nil {
			t.Fatal(err)
		}
	}

	var both []item.Item
	resp, err := http.Get(h.srv.URL + "/get_item?datafrom=pass")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &both)
	if len(both) != 2 {
		t.Fatalf("unfiltered returned %d items", len(both))
	}

	var exact []item.Item
	resp, err = http.Get(h.srv.URL + "/get_item?datafrom=pass.json&name=creator&value=creator-a")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &exact)
	if len(exact) != 1 || exact[0].Title != "first" {
		t.Fatalf("name+value filter returned %+v", exact)
	}

	var byValue []item.Item
	resp, err = http.Get(h.srv.URL + "/get_item?datafrom=pass&value=second")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &byValue)
	if len(byValue) != 1 || byValue[0].Creator != "creator-b" {
		t.Fatalf("value filter returned %+v", byValue)
	}
}

func TestGetItemUnknownArchive(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.srv.URL + "/get_item?datafrom=nonsense")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDequeueItemRemovesFirstExactMatch(t *testing.T) {
	h := newHarness(t)
	target := item.New("c", "t", "20250427", "https://example/x")
	other := item.New("c", "other", "20250427", "https://example/y")
	for _, it := range []item.Item{other, target} {
		if err := h.decision.Enqueue(it); err != nil {
			t.Fatal(err)
		}
	}

	payload, _ := json.Marshal(target)
	resp, err := http.Post(h.srv.URL+"/dequeue_item", "application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatal(err)
	}
	var removed bool
	decode(t, resp, &removed)
	if !removed {
		t.Fatal("dequeue reported false")
	}
	if h.decision.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", h.decision.Len())
	}

	// A second identical request finds nothing.
	resp, err = http.Post(h.srv.URL+"/dequeue_item", "application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &removed)
	if removed {
		t.Fatal("second dequeue reported true")
	}
}

func TestRemoveItemFromArchive(t *testing.T) {
	h := newHarness(t)
	for _, title := range []string{"keep", "drop"} {
		if err := h.store.ArchiveAppend(item.OutcomeSeriesScore, item.New("c", title, "20250101", "https://example/"+title)); err != nil {
			t.Fatal(err)
		}
	}

	resp, err := http.Post(h.srv.URL+"/remove_item?from_file=series_score&name=title&value=drop", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]int
	decode(t, resp, &body)
	if body["removed"] != 1 {
		t.Fatalf("removed = %d, want 1", body["removed"])
	}
	left, err := h.store.ArchiveLoad(item.OutcomeSeriesScore)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].Title != "keep" {
		t.Fatalf("archive after removal = %+v", left)
	}
}

func TestStageControlEndpoints(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Post(h.srv.URL+"/api/start_decision", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	decode(t, resp, &body)
	if body["running"] != true {
		t.Fatalf("start response = %v", body)
	}
	if !h.control.running[item.StageDecision] {
		t.Fatal("controller not started")
	}

	resp, err = http.Post(h.srv.URL+"/api/stop_decision", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &body)
	if body["running"] != false {
		t.Fatalf("stop response = %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newHarness(t)
	if err := h.decision.Enqueue(item.New("c", "t", "20250427", "https://example/x")); err != nil {
		t.Fatal(err)
	}
	h.control.running[item.StageDecision] = true

	resp, err := http.Get(h.srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]struct {
		Running     bool `json:"running"`
		QueueLength int  `json:"queue_length"`
		HasCurrent  bool `json:"has_current"`
	}
	decode(t, resp, &body)
	if !body["decision"].Running || body["decision"].QueueLength != 1 {
		t.Fatalf("status = %+v", body["decision"])
	}
	if body["download"].Running {
		t.Fatal("download stage reported running")
	}
}

func TestParseMessageVariants(t *testing.T) {
	it, err := server.ParseMessage("Creator :: 20250427 :: A Title\n\n\nhttps://example/x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if it.Creator != "Creator" || it.Datecode != "20250427" || it.Title != "A Title" || it.URL != "https://example/x" {
		t.Fatalf("parsed = %+v", it)
	}

	if _, err := server.ParseMessage("Creator :: not-a-date :: Title\n\nhttps://example"); err == nil {
		t.Fatal("expected error for bad datecode")
	}
	if _, err := server.ParseMessage(""); err == nil {
		t.Fatal("expected error for empty message")
	}
}
