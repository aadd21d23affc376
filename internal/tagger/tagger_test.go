package tagger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wai/internal/tagger"
	"wai/internal/ytdlp"
)

func writeMediaPair(t *testing.T, dir, name string, sidecar tagger.Sidecar) string {
	t.Helper()
	media := filepath.Join(dir, name)
	if err := os.WriteFile(media, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(sidecar)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ytdlp.SidecarPath(media), data, 0o644); err != nil {
		t.Fatal(err)
	}
	return media
}

func TestTagComposesSuffixAndRenamesPair(t *testing.T) {
	dir := t.TempDir()
	media := writeMediaPair(t, dir, "video.mkv", tagger.Sidecar{
		Width: 1918, Height: 1072, Language: "en",
	})

	tagged, err := tagger.New().Tag(media)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	want := filepath.Join(dir, "video.WEB-DL.1920x1080.eng-cfwai.mkv")
	if tagged != want {
		t.Fatalf("tagged path %q, want %q", tagged, want)
	}
	if _, err := os.Stat(tagged); err != nil {
		t.Fatalf("media not renamed: %v", err)
	}
	if _, err := os.Stat(ytdlp.SidecarPath(tagged)); err != nil {
		t.Fatalf("sidecar not renamed alongside: %v", err)
	}
	if _, err := os.Stat(media); !os.IsNotExist(err) {
		t.Fatal("original media still present")
	}
}

func TestTagIdempotent(t *testing.T) {
	dir := t.TempDir()
	name := "video.WEB-DL.1920x1080.eng-cfwai.mkv"
	media := filepath.Join(dir, name)
	if err := os.WriteFile(media, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	tagged, err := tagger.New().Tag(media)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	if tagged != media {
		t.Fatalf("already-tagged file should be untouched, got %q", tagged)
	}
}

func TestTagMissingSidecarFails(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "video.mkv")
	if err := os.WriteFile(media, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := tagger.New().Tag(media); err == nil {
		t.Fatal("expected error for missing sidecar")
	}
}

func TestTagClassifierFallback(t *testing.T) {
	dir := t.TempDir()
	media := writeMediaPair(t, dir, "video.mkv", tagger.Sidecar{
		Width: 3840, Height: 2160,
		Description: "der Hund ist nicht mit der Katze und das ist gut",
	})

	tagged, err := tagger.New().Tag(media)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	if !strings.Contains(tagged, ".3840x2160.deu-cfwai.") {
		t.Fatalf("expected German tag, got %q", tagged)
	}
}

func TestTagDefaultsToEnglishWithoutSignal(t *testing.T) {
	dir := t.TempDir()
	media := writeMediaPair(t, dir, "video.mkv", tagger.Sidecar{Width: 640, Height: 360})

	tagged, err := tagger.New().Tag(media)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	if !strings.Contains(tagged, ".640x360.eng-cfwai.") {
		t.Fatalf("expected default language, got %q", tagged)
	}
}

func TestBucketResolution(t *testing.T) {
	cases := []struct{ w, h, wantW, wantH int }{
		{426, 240, 426, 240},
		{1920, 1080, 1920, 1080},
		{1910, 1072, 1920, 1080},
		{700, 300, 854, 480},
		{9000, 5000, 7680, 4320},
		{0, 0, 426, 240},
	}
	for _, tc := range cases {
		w, h := tagger.BucketResolution(tc.w, tc.h)
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("%dx%d: got %dx%d, want %dx%d", tc.w, tc.h, w, h, tc.wantW, tc.wantH)
		}
	}
}

func TestToAlpha3(t *testing.T) {
	if three, ok := tagger.ToAlpha3("en"); !ok || three != "eng" {
		t.Fatalf("en: %q %v", three, ok)
	}
	if three, ok := tagger.ToAlpha3("de"); !ok || three != "deu" {
		t.Fatalf("de: %q %v", three, ok)
	}
	if _, ok := tagger.ToAlpha3("!!"); ok {
		t.Fatal("garbage should not parse")
	}
}
