package logs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLastLinesMissingFile(t *testing.T) {
	lines, offset, err := LastLines(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v at %d", lines, offset)
	}
}

func TestLastLinesLimitsToTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wai.log")
	content := "one\ntwo\nthree\nfour\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := LastLines(path, 2)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "three" || lines[1] != "four" {
		t.Fatalf("unexpected tail: %v", lines)
	}
	if offset != int64(len(content)) {
		t.Fatalf("expected offset %d, got %d", len(content), offset)
	}
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wai.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := LastLines(path, 0)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, path, offset, &buf)
	}()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log for append: %v", err)
	}
	if _, err := file.WriteString("fresh\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), "fresh") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Follow: %v", err)
	}

	if strings.Contains(buf.String(), "old") {
		t.Fatalf("expected only appended lines, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "fresh") {
		t.Fatalf("expected appended line in output, got %q", buf.String())
	}
}
