package item

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRoundTripPreservesUnknownFields(t *testing.T) {
	raw := `{"creator":"c","title":"t","datecode":"20250427","url":"https://x",` +
		`"legacy_flag":true,"operator_note":{"by":"admin"}}`

	var it Item
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if it.Creator != "c" || it.URL != "https://x" {
		t.Fatalf("ingress fields lost: %+v", it)
	}
	if len(it.Extra) != 2 {
		t.Fatalf("expected 2 extra fields, got %v", it.Extra)
	}

	data, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"legacy_flag":true`) {
		t.Fatalf("unknown field dropped: %s", data)
	}
	if !strings.Contains(string(data), `"operator_note":{"by":"admin"}`) {
		t.Fatalf("unknown object dropped: %s", data)
	}
}

func TestAgingFieldsFlatten(t *testing.T) {
	it := New("c", "t", "20250427", "https://x")
	it.Aging = &AgingState{Ripeness: 3, NextAging: 1700000000, LastScan: 1699999000}

	data, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if fields["ripeness"] != float64(3) {
		t.Fatalf("ripeness not flattened: %v", fields["ripeness"])
	}
	if fields["next_aging"] != float64(1700000000) {
		t.Fatalf("next_aging not flattened: %v", fields["next_aging"])
	}

	var back Item
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Aging == nil || back.Aging.Ripeness != 3 || back.Aging.LastScan != 1699999000 {
		t.Fatalf("aging state lost: %+v", back.Aging)
	}
}

func TestAgingAbsentMeansNil(t *testing.T) {
	var it Item
	if err := json.Unmarshal([]byte(`{"creator":"c","title":"t","datecode":"d","url":"u"}`), &it); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if it.Aging != nil {
		t.Fatalf("expected nil aging state, got %+v", it.Aging)
	}
}

func TestShowMatchNullsWhenNoCandidates(t *testing.T) {
	m := ShowMatch{Input: "x", Score: -1, Reason: "no candidates"}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"matched_show":null`) {
		t.Fatalf("expected null matched_show: %s", data)
	}
	if !strings.Contains(string(data), `"matched_id":null`) {
		t.Fatalf("expected null matched_id: %s", data)
	}
}

func TestEpisodeMatchEmitsFullMatch(t *testing.T) {
	m := EpisodeMatch{
		MatchInput:      "x",
		MatchedShow:     "show",
		MatchedSeriesID: 9,
		Season:          1,
		Episode:         2,
		Score:           88,
		FullMatch:       &Episode{Series: "show", SeriesID: 9, Season: 1, Episode: 2, HasFile: true},
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"has_file":true`) {
		t.Fatalf("full match missing has_file: %s", data)
	}
}

func TestEqualIgnoresRawFormatting(t *testing.T) {
	var a, b Item
	if err := json.Unmarshal([]byte(`{"creator":"c","title":"t","datecode":"d","url":"u","x":{"k": 1}}`), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"creator":"c","title":"t","datecode":"d","url":"u","x":{"k":1}}`), &b); err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Fatal("items with equivalent raw fields should be equal")
	}
	b.Title = "other"
	if a.Equal(b) {
		t.Fatal("differing items reported equal")
	}
}

func TestIngressFieldsSurviveEnrichment(t *testing.T) {
	it := New("Jet Lag: The Game", "Ep 2", "20250427", "https://example/x")
	it.TitleResult = &ShowMatch{Input: it.MatchInput(), MatchedShow: "Jet Lag: The Game", MatchedID: 5, Score: 90}
	it.DownloadFilename = "/tmp/x.mkv"

	round := it.Clone()
	if round.Creator != it.Creator || round.Title != it.Title ||
		round.Datecode != it.Datecode || round.URL != it.URL {
		t.Fatalf("ingress fields mutated across round-trip: %+v", round)
	}
}

func TestParseDateFormats(t *testing.T) {
	for _, value := range []string{"20250427", "2025-04-27", "April 27, 2025"} {
		parsed, ok := ParseDate(value)
		if !ok {
			t.Fatalf("failed to parse %q", value)
		}
		if parsed.Year() != 2025 || parsed.Month() != time.April || parsed.Day() != 27 {
			t.Fatalf("wrong date for %q: %v", value, parsed)
		}
	}
	if _, ok := ParseDate("not a date"); ok {
		t.Fatal("expected parse failure")
	}
}

func TestDateDistanceDays(t *testing.T) {
	if got := DateDistanceDays("20250427", "2025-04-26"); got != 1 {
		t.Fatalf("expected 1 day, got %d", got)
	}
	if got := DateDistanceDays("garbage", "20250427"); got != -1 {
		t.Fatalf("expected -1 for unparseable input, got %d", got)
	}
}

func TestDerivedRipeness(t *testing.T) {
	now := time.Date(2025, 5, 17, 12, 0, 0, 0, time.UTC)
	if got := DerivedRipeness("20250427", 4, now); got != 80 {
		t.Fatalf("expected ripeness 80 for 20-day-old item, got %d", got)
	}
	if got := DerivedRipeness("20250518", 4, now); got != 0 {
		t.Fatalf("future datecode should floor at 0, got %d", got)
	}
	if got := DerivedRipeness("garbage", 4, now); got != 0 {
		t.Fatalf("unparseable datecode should yield 0, got %d", got)
	}
}

func TestParseOutcome(t *testing.T) {
	if _, ok := ParseOutcome("pass"); !ok {
		t.Fatal("pass should be a known outcome")
	}
	if _, ok := ParseOutcome("../etc/passwd"); ok {
		t.Fatal("unknown outcome accepted")
	}
	if got := OutcomePass.Filename(); got != "pass.json" {
		t.Fatalf("unexpected filename: %s", got)
	}
}
