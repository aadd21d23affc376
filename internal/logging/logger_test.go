package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level slog.Level) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	return slog.New(newPrettyHandler(&buf, lvl, false)), &buf
}

func TestPrettyHandlerFormatsLine(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelInfo)
	logger.Info("item dispatched", String("url", "https://example/x"), Int("score", 88))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Fatalf("missing level label: %q", line)
	}
	if !strings.Contains(line, "item dispatched") {
		t.Fatalf("missing message: %q", line)
	}
	if !strings.Contains(line, "url=https://example/x") || !strings.Contains(line, "score=88") {
		t.Fatalf("missing attrs: %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("color escapes on non-terminal writer: %q", line)
	}
}

func TestPrettyHandlerComponentPrefix(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelInfo)
	NewComponentLogger(logger, "decision").Info("queue empty")

	line := buf.String()
	if !strings.Contains(line, " decision: queue empty") {
		t.Fatalf("component not folded into prefix: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component leaked as attr: %q", line)
	}
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("visible")

	line := buf.String()
	if strings.Contains(line, "hidden") {
		t.Fatalf("info line leaked past warn level: %q", line)
	}
	if !strings.Contains(line, "visible") {
		t.Fatalf("warn line missing: %q", line)
	}
}

func TestPrettyHandlerQuotesValues(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelInfo)
	logger.Info("msg", String("title", "two words"))
	if !strings.Contains(buf.String(), `title="two words"`) {
		t.Fatalf("value not quoted: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") != slog.LevelDebug {
		t.Fatal("debug")
	}
	if parseLevel("") != slog.LevelInfo {
		t.Fatal("default")
	}
	if parseLevel("nonsense") != slog.LevelInfo {
		t.Fatal("unknown maps to info")
	}
}
