package textutil

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	in := "Jet Lag: The Game — Ep 2!"
	once := Normalize(in)
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("normalize not idempotent: %q vs %q", once, twice)
	}
}

func TestNormalizeStripsPunctuation(t *testing.T) {
	got := Normalize("We Played Hide & Seek, Across N.Y.C.")
	want := "we played hide seek across n y c"
	if got != want {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestTokensEmpty(t *testing.T) {
	if tokens := Tokens("!!! ---"); tokens != nil {
		t.Fatalf("expected nil tokens, got %v", tokens)
	}
}

func TestRatioIdentical(t *testing.T) {
	if r := Ratio("hide and seek", "hide and seek"); r != 100 {
		t.Fatalf("identical strings should score 100, got %v", r)
	}
}

func TestRatioDisjoint(t *testing.T) {
	if r := Ratio("aaaa", "bbbb"); r != 0 {
		t.Fatalf("disjoint strings should score 0, got %v", r)
	}
}

func TestTokenSetRatioSubset(t *testing.T) {
	r := TokenSetRatio("jet lag the game", "creator says :: jet lag the game episode two")
	if r != 100 {
		t.Fatalf("token subset should score 100, got %v", r)
	}
}

func TestTokenSetRatioOrderInsensitive(t *testing.T) {
	a := TokenSetRatio("seek hide played we", "we played hide seek")
	if a != 100 {
		t.Fatalf("reordered tokens should score 100, got %v", a)
	}
}

func TestTokenSetRatioPartial(t *testing.T) {
	r := TokenSetRatio("hide and seek", "hide and watch")
	if r <= 0 || r >= 100 {
		t.Fatalf("partial overlap should land strictly between 0 and 100, got %v", r)
	}
}

func TestTokenSetRatioEmpty(t *testing.T) {
	if r := TokenSetRatio("", "anything"); r != 0 {
		t.Fatalf("empty versus non-empty should score 0, got %v", r)
	}
	if r := TokenSetRatio("", ""); r != 100 {
		t.Fatalf("both empty should score 100, got %v", r)
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"Jet Lag: The Game": "jet_lag__the_game",
		"":                  "unknown",
		"Already-safe_123":  "already-safe_123",
	}
	for in, want := range cases {
		if got := SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
