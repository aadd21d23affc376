package ytdlp

import (
	"strconv"
	"strings"
	"time"
)

const (
	progressMinInterval = 60 * time.Second
	progressStepPercent = 25.0
)

// parseProgressLine extracts the percentage from a "[download]  42.3% of
// ..." line. Non-progress lines report false.
func parseProgressLine(line string) (ProgressUpdate, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return ProgressUpdate{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))
	fields := strings.Fields(rest)
	if len(fields) == 0 || !strings.HasSuffix(fields[0], "%") {
		return ProgressUpdate{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	return ProgressUpdate{Percent: percent, Message: rest}, true
}

// progressSampler forwards at most one update per minute, plus one whenever
// progress crosses another quarter of the file.
type progressSampler struct {
	sink        func(ProgressUpdate)
	now         func() time.Time
	lastEmit    time.Time
	nextPercent float64
}

func newProgressSampler(sink func(ProgressUpdate)) *progressSampler {
	return &progressSampler{sink: sink, now: time.Now, nextPercent: progressStepPercent}
}

func (s *progressSampler) Observe(update ProgressUpdate) {
	if s.sink == nil {
		return
	}
	now := s.now()
	due := s.lastEmit.IsZero() || now.Sub(s.lastEmit) >= progressMinInterval
	if update.Percent >= s.nextPercent {
		due = true
		for update.Percent >= s.nextPercent {
			s.nextPercent += progressStepPercent
		}
	}
	if !due {
		return
	}
	s.lastEmit = now
	s.sink(update)
}
